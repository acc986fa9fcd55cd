package services

import (
	"context"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/fabricaconecta/parceria-api/models"
)

const orderSheet = "Pedidos"

var orderReportHeaders = []string{
	"Número", "Status", "Cliente", "Cidade", "UF", "Valor total", "Comissão (%)", "Valor comissão",
	"Pagamento", "Data envio", "Data aprovação", "Pagamento confirmado", "Expedição", "Entrega",
}

// ReportService renders order exports
type ReportService struct {
	orders *OrderService
	logger *zap.Logger
}

// NewReportService creates the service
func NewReportService(orders *OrderService, logger *zap.Logger) *ReportService {
	return &ReportService{orders: orders, logger: logger}
}

// ExportOrders writes the actor's orders as an XLSX workbook to w
func (s *ReportService) ExportOrders(ctx context.Context, actor Actor, status string, w io.Writer) error {
	orders, err := s.orders.List(ctx, actor, status)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", orderSheet); err != nil {
		return err
	}
	if err := f.SetSheetRow(orderSheet, "A1", &orderReportHeaders); err != nil {
		return err
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(orderReportHeaders), 1)
	if err := f.SetCellStyle(orderSheet, "A1", lastHeader, style); err != nil {
		return err
	}

	for i := range orders {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		row := orderReportRow(&orders[i])
		if err := f.SetSheetRow(orderSheet, cell, &row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(orderSheet, "A", "A", 14)
	_ = f.SetColWidth(orderSheet, "C", "C", 30)
	_ = f.SetColWidth(orderSheet, "J", "N", 18)

	s.logger.Debug("orders exported", zap.Uint("actor_id", actor.UserID), zap.Int("rows", len(orders)))
	return f.Write(w)
}

func orderReportRow(o *models.Order) []interface{} {
	var rate interface{}
	if o.PercentualComissao != nil {
		rate = *o.PercentualComissao
	}
	var payment string
	if o.TipoPagamento != nil {
		payment = *o.TipoPagamento
	}
	return []interface{}{
		o.Numero, o.Status, o.ClienteNome, o.EntregaCidade, o.EntregaEstado,
		o.ValorTotal, rate, o.ValorComissao, payment,
		formatDate(o.DataEnvio), formatDate(o.DataAprovacao), formatDate(o.EtapaPagamento),
		formatDate(o.EtapaExpedicao), formatDate(o.DataEntrega),
	}
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("02/01/2006 15:04")
}
