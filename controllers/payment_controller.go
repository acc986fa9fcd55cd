package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/services"
)

// SelectPaymentRequest chooses the payment modality of an order
type SelectPaymentRequest struct {
	TipoPagamento           string  `json:"tipo_pagamento" binding:"required"`
	ComprovantePagamentoURL *string `json:"comprovante_pagamento_url"`
}

// ListPaymentMethods handles GET /api/v1/payment-methods
func ListPaymentMethods(c *gin.Context) {
	respondOK(c, models.PaymentCatalog())
}

// SelectPayment handles PUT /api/v1/orders/:id/payment (specifiers only)
func SelectPayment(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req SelectPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := paymentService().Select(c.Request.Context(), actor, id, req.TipoPagamento, req.ComprovantePagamentoURL)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// UploadPaymentProof handles POST /api/v1/orders/:id/payment/proof (multipart, field "file")
func UploadPaymentProof(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respondErrorCode(c, http.StatusBadRequest, "FILE_REQUIRED", "A proof file is required in the \"file\" field", nil)
		return
	}

	order, err := paymentService().AttachProof(c.Request.Context(), actor, id, fileHeader)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// ConfirmPayment handles POST /api/v1/orders/:id/payment/confirm (factories only)
func ConfirmPayment(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		return paymentService().Confirm(c.Request.Context(), actor, id)
	})
}

// GetPaymentProof handles GET /api/v1/orders/:id/payment/proof - a temporary link to the proof file
func GetPaymentProof(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	url, err := paymentService().ProofLink(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"order_id": id, "url": url})
}
