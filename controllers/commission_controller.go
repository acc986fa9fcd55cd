package controllers

import (
	"github.com/gin-gonic/gin"
)

// RequestCommissionRequest is the specifier's proposed commission percentage
type RequestCommissionRequest struct {
	Percentual *float64 `json:"percentual" binding:"required"`
	Observacao string   `json:"observacao"`
}

// RespondCommissionRequest is the factory decision on a pending agreement.
// PercentualAprovado is required when approving.
type RespondCommissionRequest struct {
	Decision           string   `json:"decision" binding:"required,oneof=approve reject"`
	PercentualAprovado *float64 `json:"percentual_aprovado"`
	Observacao         string   `json:"observacao"`
}

// RequestCommission handles POST /api/v1/connections/:id/commissions (specifiers only)
func RequestCommission(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req RequestCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	agreement, err := commissionService().Request(c.Request.Context(), actor, id, *req.Percentual, req.Observacao)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, agreement)
}

// ListCommissions handles GET /api/v1/connections/:id/commissions
func ListCommissions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	history, err := commissionService().History(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, history)
}

// GetCurrentCommission handles GET /api/v1/connections/:id/commissions/current
func GetCurrentCommission(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	rate, err := commissionService().CurrentRate(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"connection_id":   id,
		"commission_rate": rate,
	})
}

// RespondCommission handles POST /api/v1/commissions/:id/respond (factories only)
func RespondCommission(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req RespondCommissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	agreement, err := commissionService().Respond(c.Request.Context(), actor, id, req.Decision, req.PercentualAprovado, req.Observacao)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, agreement)
}
