package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order statuses. entregue and cancelado are terminal.
const (
	OrderRascunho       = "rascunho"
	OrderEnviado        = "enviado"
	OrderAprovado       = "aprovado"
	OrderEmProducao     = "em_producao"
	OrderEnviadoCliente = "enviado_cliente"
	OrderEntregue       = "entregue"
	OrderCancelado      = "cancelado"
)

// Summary buckets
const (
	BucketDraft     = "draft"
	BucketInFlight  = "in_flight"
	BucketDelivered = "delivered"
	BucketCancelled = "cancelled"
)

// Order represents a purchase request from a specifier to a factory
type Order struct {
	ID           uint   `gorm:"primaryKey" json:"id"`
	Numero       string `gorm:"index" json:"numero"` // derived from ID
	ConnectionID uint   `gorm:"not null;index" json:"connection_id"`
	SpecifierID  uint   `gorm:"not null;index" json:"specifier_id"`
	FactoryID    uint   `gorm:"not null;index" json:"factory_id"`
	Status       string `gorm:"not null;default:'rascunho';index" json:"status"`

	// Customer snapshot, taken at creation
	ClienteNome        string `gorm:"not null" json:"cliente_nome"`
	ClienteEmail       string `json:"cliente_email"`
	ClienteTelefone    string `json:"cliente_telefone"`
	ClienteDocumento   string `json:"cliente_documento"`
	EntregaCEP         string `json:"entrega_cep"`
	EntregaLogradouro  string `json:"entrega_logradouro"`
	EntregaNumero      string `json:"entrega_numero"`
	EntregaComplemento string `json:"entrega_complemento"`
	EntregaBairro      string `json:"entrega_bairro"`
	EntregaCidade      string `json:"entrega_cidade"`
	EntregaEstado      string `json:"entrega_estado"`

	ValorTotal         float64  `gorm:"not null;default:0" json:"valor_total"`
	ValorComissao      float64  `gorm:"not null;default:0" json:"valor_comissao"`
	PercentualComissao *float64 `json:"percentual_comissao"` // set at submission, immutable afterwards

	DataEnvio        *time.Time `json:"data_envio"`
	DataAprovacao    *time.Time `json:"data_aprovacao"`
	EtapaPagamento   *time.Time `json:"etapa_pagamento"`
	EtapaFabricacao  *time.Time `json:"etapa_fabricacao"`
	EtapaExpedicao   *time.Time `json:"etapa_expedicao"`
	DataEntrega      *time.Time `json:"data_entrega"`
	DataCancelamento *time.Time `json:"data_cancelamento"`

	TipoPagamento           *string `json:"tipo_pagamento"`
	ComprovantePagamentoURL *string `json:"comprovante_pagamento_url"`
	PagamentoExternoID      *string `json:"pagamento_externo_id"` // gateway payment id

	Observacoes        string      `gorm:"type:text" json:"observacoes"`
	MotivoCancelamento string      `gorm:"type:text" json:"motivo_cancelamento"`
	Items              []OrderItem `gorm:"foreignKey:OrderID" json:"items,omitempty"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// TableName specifies the table name for the Order model
func (Order) TableName() string {
	return "orders"
}

// OrderNumber formats the human-readable number for an order id
func OrderNumber(id uint) string {
	return fmt.Sprintf("PED-%06d", id)
}

// IsTerminalStatus reports whether no transition may leave status
func IsTerminalStatus(status string) bool {
	return status == OrderEntregue || status == OrderCancelado
}

// StatusBucket maps an order status to its summary bucket
func StatusBucket(status string) string {
	switch status {
	case OrderRascunho:
		return BucketDraft
	case OrderEntregue:
		return BucketDelivered
	case OrderCancelado:
		return BucketCancelled
	default:
		return BucketInFlight
	}
}

// IsTerminal reports whether the order reached entregue or cancelado
func (o *Order) IsTerminal() bool {
	return IsTerminalStatus(o.Status)
}

// IsPaymentConfirmed reports whether the payment milestone was stamped
func (o *Order) IsPaymentConfirmed() bool {
	return o.EtapaPagamento != nil
}

// ItemsTotal sums preco_unitario × quantidade over the loaded items
func (o *Order) ItemsTotal() float64 {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(decimal.NewFromFloat(item.PrecoUnitario).Mul(decimal.NewFromInt(int64(item.Quantidade))))
	}
	return total.Round(2).InexactFloat64()
}

// RoundMoney rounds half away from zero to two decimal places, on the value as written (1.005 → 1.01)
func RoundMoney(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
