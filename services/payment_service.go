package services

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/utils"
)

// statuses from which payment can be confirmed
var confirmableStatuses = []string{models.OrderEnviado, models.OrderAprovado, models.OrderEmProducao}

// PaymentService handles payment selection, proof upload and confirmation
type PaymentService struct {
	db      *gorm.DB
	logger  *zap.Logger
	orders  *OrderService
	storage ProofStorage
	gateway PaymentGateway
}

// NewPaymentService creates the service. storage and gateway may be nil;
// operations that need them then fail with a precondition error.
func NewPaymentService(db *gorm.DB, logger *zap.Logger, orders *OrderService, storage ProofStorage, gateway PaymentGateway) *PaymentService {
	return &PaymentService{db: db, logger: logger, orders: orders, storage: storage, gateway: gateway}
}

// Methods returns the payment catalog
func (s *PaymentService) Methods() []models.PaymentMethod {
	return models.PaymentCatalog()
}

// Select records the payment modality. proofURL may be nil when a proof was attached earlier.
func (s *PaymentService) Select(ctx context.Context, actor Actor, orderID uint, modality string, proofURL *string) (*models.Order, error) {
	method, ok := models.LookupPaymentMethod(modality)
	if !ok {
		return nil, newValidationError("INVALID_PAYMENT_METHOD", "Unknown payment method: "+modality, map[string]string{"tipo_pagamento": "oneof"})
	}

	order, err := s.loadPayable(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"tipo_pagamento": method.Code}
	proof := order.ComprovantePagamentoURL
	if proofURL != nil && *proofURL != "" {
		proof = proofURL
		updates["comprovante_pagamento_url"] = *proofURL
	}
	if method.RequiresProof && (proof == nil || *proof == "") {
		return nil, &WorkflowError{Kind: KindProofRequired, Code: "PROOF_REQUIRED", Message: "Payment method " + method.Code + " requires a proof of payment"}
	}

	if err := s.updateUnconfirmed(ctx, order, updates); err != nil {
		return nil, err
	}

	s.logger.Info("payment selected", zap.Uint("order_id", orderID), zap.String("tipo_pagamento", method.Code))
	return s.orders.Get(ctx, actor, orderID)
}

// AttachProof uploads a proof file and stores its URL on the order, replacing any earlier one
func (s *PaymentService) AttachProof(ctx context.Context, actor Actor, orderID uint, fileHeader *multipart.FileHeader) (*models.Order, error) {
	if s.storage == nil {
		return nil, newPreconditionError("STORAGE_UNAVAILABLE", "Proof storage is not configured")
	}
	order, err := s.loadPayable(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	url, err := s.storage.UploadProof(ctx, fileHeader)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			return nil, newValidationError(uploadErr.Code, uploadErr.Message, map[string]string{"file": uploadErr.Code})
		}
		return nil, err
	}

	if err := s.updateUnconfirmed(ctx, order, map[string]interface{}{"comprovante_pagamento_url": url}); err != nil {
		// The order moved on while uploading; the new file is orphaned
		if delErr := s.storage.DeleteProof(ctx, url); delErr != nil {
			s.logger.Warn("failed to delete orphaned proof", zap.String("url", url), zap.Error(delErr))
		}
		return nil, err
	}

	if previous := order.ComprovantePagamentoURL; previous != nil && *previous != "" && *previous != url {
		if err := s.storage.DeleteProof(ctx, *previous); err != nil {
			s.logger.Warn("failed to delete replaced proof", zap.String("url", *previous), zap.Error(err))
		}
	}

	s.logger.Info("payment proof attached", zap.Uint("order_id", orderID))
	return s.orders.Get(ctx, actor, orderID)
}

// Confirm stamps etapa_pagamento and forces the order into em_producao.
// Gateway modalities are charged here.
func (s *PaymentService) Confirm(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	if err := requireFactory(actor); err != nil {
		return nil, err
	}
	order, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsPaymentConfirmed() {
		return nil, newPreconditionError("PAYMENT_ALREADY_CONFIRMED", "Payment was already confirmed")
	}
	if !containsStatus(confirmableStatuses, order.Status) {
		return nil, newPreconditionError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot confirm payment of an order with status %s", order.Status))
	}
	if order.TipoPagamento == nil || *order.TipoPagamento == "" {
		return nil, newPreconditionError("PAYMENT_NOT_SELECTED", "No payment method was selected")
	}
	method, ok := models.LookupPaymentMethod(*order.TipoPagamento)
	if !ok {
		return nil, newPreconditionError("PAYMENT_NOT_SELECTED", "Selected payment method is no longer accepted")
	}
	if method.RequiresProof && (order.ComprovantePagamentoURL == nil || *order.ComprovantePagamentoURL == "") {
		return nil, newPreconditionError("PROOF_MISSING", "Proof of payment is required before confirmation")
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":          models.OrderEmProducao,
		"etapa_pagamento": now,
	}
	if order.EtapaFabricacao == nil {
		updates["etapa_fabricacao"] = now
	}

	if method.UsesGateway {
		if s.gateway == nil {
			return nil, newPreconditionError("GATEWAY_UNAVAILABLE", "Online payment is not configured")
		}
		result, err := s.gateway.Charge(ctx, ChargeRequest{
			OrderNumero: order.Numero,
			Amount:      order.ValorTotal,
			PayerEmail:  order.ClienteEmail,
			Description: "Pedido " + order.Numero,
		})
		if err != nil {
			return nil, err
		}
		if !result.Approved() {
			return nil, newPreconditionError("PAYMENT_DECLINED", "Payment was not approved by the gateway: "+result.Status)
		}
		updates["pagamento_externo_id"] = result.ExternalID
	}

	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND etapa_pagamento IS NULL", orderID, order.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if id, ok := updates["pagamento_externo_id"]; ok {
			s.logger.Error("charge approved but order changed concurrently",
				zap.Uint("order_id", orderID),
				zap.Any("external_id", id))
		}
		return nil, errTransitionLost()
	}

	s.logger.Info("payment confirmed",
		zap.Uint("order_id", orderID),
		zap.String("tipo_pagamento", method.Code),
		zap.String("from", order.Status))
	return s.orders.Get(ctx, actor, orderID)
}

// ProofLink returns a read link for the order's proof of payment. Both participants may call it.
func (s *PaymentService) ProofLink(ctx context.Context, actor Actor, orderID uint) (string, error) {
	order, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return "", err
	}
	if order.ComprovantePagamentoURL == nil || *order.ComprovantePagamentoURL == "" {
		return "", newNotFoundError("PROOF_NOT_FOUND", "Order has no proof of payment")
	}
	if s.storage == nil {
		return *order.ComprovantePagamentoURL, nil
	}
	return s.storage.ProofDownloadURL(ctx, *order.ComprovantePagamentoURL)
}

// loadPayable returns an order the acting specifier may still change payment data on
func (s *PaymentService) loadPayable(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	if err := requireSpecifier(actor); err != nil {
		return nil, err
	}
	order, err := s.orders.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.IsTerminal() {
		return nil, newPreconditionError("ORDER_CLOSED", "Order is closed")
	}
	if order.IsPaymentConfirmed() {
		return nil, newPreconditionError("PAYMENT_ALREADY_CONFIRMED", "Payment was already confirmed")
	}
	return order, nil
}

func (s *PaymentService) updateUnconfirmed(ctx context.Context, order *models.Order, updates map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ? AND etapa_pagamento IS NULL", order.ID, order.Status).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errTransitionLost()
	}
	return nil
}
