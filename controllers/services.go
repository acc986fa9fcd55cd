package controllers

import (
	"github.com/fabricaconecta/parceria-api/config"
	"github.com/fabricaconecta/parceria-api/services"
)

// Services are built per request from the configured database, logger and integrations.

func connectionService() *services.ConnectionService {
	return services.NewConnectionService(config.GetDB(), config.GetLogger(), services.GetAddressService())
}

func commissionService() *services.CommissionService {
	return services.NewCommissionService(config.GetDB(), config.GetLogger(), connectionService())
}

func catalogService() *services.CatalogService {
	return services.NewCatalogService(config.GetDB(), config.GetLogger())
}

func orderService() *services.OrderService {
	return services.NewOrderService(config.GetDB(), config.GetLogger())
}

func paymentService() *services.PaymentService {
	return services.NewPaymentService(config.GetDB(), config.GetLogger(), orderService(),
		services.GetProofStorage(), services.GetPaymentGateway())
}

func orderMessageService() *services.OrderMessageService {
	return services.NewOrderMessageService(config.GetDB(), config.GetLogger(), orderService())
}

func reportService() *services.ReportService {
	return services.NewReportService(orderService(), config.GetLogger())
}
