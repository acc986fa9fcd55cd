package controllers

import (
	"github.com/gin-gonic/gin"
)

// PostOrderMessageRequest represents the request body for sending a message
type PostOrderMessageRequest struct {
	Content string `json:"content" binding:"required"`
}

// PostOrderMessage handles POST /api/v1/orders/:id/messages - either participant writes on an order
func PostOrderMessage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req PostOrderMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	message, err := orderMessageService().Post(c.Request.Context(), actor, id, req.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, message)
}

// ListOrderMessages handles GET /api/v1/orders/:id/messages - oldest first
func ListOrderMessages(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	messages, err := orderMessageService().List(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, messages)
}
