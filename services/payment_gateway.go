package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mercadopago/sdk-go/pkg/config"
	"github.com/mercadopago/sdk-go/pkg/payment"
	"go.uber.org/zap"
)

var ErrMissingMercadoPagoAccessToken = errors.New("missing MERCADOPAGO_ACCESS_TOKEN")
var ErrPaymentGatewayNotConfigured = errors.New("payment gateway not configured")

// ChargeRequest describes a card charge for one order
type ChargeRequest struct {
	OrderNumero string
	Amount      float64
	PayerEmail  string
	Description string
}

// ChargeResult is the gateway outcome of a charge
type ChargeResult struct {
	ExternalID string
	Status     string // gateway status, "approved" when the charge succeeded
}

// Approved reports whether the gateway accepted the charge
func (r *ChargeResult) Approved() bool {
	return r != nil && r.Status == "approved"
}

// PaymentGateway charges orders paid online
type PaymentGateway interface {
	Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error)
}

// MercadoPagoGateway is the PaymentGateway backed by the Mercado Pago API
type MercadoPagoGateway struct {
	client   payment.Client
	mockMode bool
	logger   *zap.Logger
}

var paymentGatewayInstance PaymentGateway

// NewMercadoPagoGateway creates the gateway. PAYMENT_GATEWAY_MOCK turns on a local mock that approves everything.
func NewMercadoPagoGateway(accessToken string, logger *zap.Logger) (*MercadoPagoGateway, error) {
	if isPaymentGatewayMockEnabled() {
		logger.Info("payment gateway mock mode enabled")
		return &MercadoPagoGateway{mockMode: true, logger: logger}, nil
	}

	if accessToken == "" {
		return nil, ErrMissingMercadoPagoAccessToken
	}

	cfg, err := config.New(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed creating mercado pago config: %w", err)
	}
	logger.Info("Mercado Pago client initialized")

	return &MercadoPagoGateway{client: payment.NewClient(cfg), logger: logger}, nil
}

// GetPaymentGateway returns the configured gateway, or nil
func GetPaymentGateway() PaymentGateway {
	return paymentGatewayInstance
}

// SetPaymentGateway sets the gateway instance
func SetPaymentGateway(gateway PaymentGateway) {
	paymentGatewayInstance = gateway
}

// Charge creates a payment for the order
func (g *MercadoPagoGateway) Charge(ctx context.Context, req ChargeRequest) (*ChargeResult, error) {
	if g != nil && g.mockMode {
		id := uuid.NewString()
		g.logger.Info("mock charge approved", zap.String("numero", req.OrderNumero), zap.String("external_id", id))
		return &ChargeResult{ExternalID: id, Status: "approved"}, nil
	}
	if g == nil || g.client == nil {
		return nil, ErrPaymentGatewayNotConfigured
	}

	payload, err := json.Marshal(map[string]any{
		"transaction_amount": req.Amount,
		"description":        req.Description,
		"external_reference": req.OrderNumero,
		"payer":              map[string]any{"email": req.PayerEmail},
	})
	if err != nil {
		return nil, err
	}
	var mpReq payment.Request
	if err := json.Unmarshal(payload, &mpReq); err != nil {
		return nil, fmt.Errorf("failed building payment request: %w", err)
	}

	resp, err := g.client.Create(ctx, mpReq)
	if err != nil {
		g.logger.Error("mercado pago create failed", zap.String("numero", req.OrderNumero), zap.Error(err))
		return nil, fmt.Errorf("payment gateway: %w", err)
	}
	externalID := fmt.Sprintf("%d", resp.ID)
	g.logger.Info("mercado pago payment created",
		zap.String("numero", req.OrderNumero),
		zap.String("external_id", externalID),
		zap.String("status", resp.Status))

	return &ChargeResult{ExternalID: externalID, Status: resp.Status}, nil
}

func isPaymentGatewayMockEnabled() bool {
	for _, key := range []string{"PAYMENT_GATEWAY_MOCK", "MERCADOPAGO_MOCK"} {
		v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
		switch v {
		case "1", "true", "yes", "on", "mock":
			return true
		}
	}
	return false
}
