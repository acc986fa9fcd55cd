package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/services"
)

// UpdateOrderItemRequest changes the quantity of a draft line
type UpdateOrderItemRequest struct {
	Quantidade  int     `json:"quantidade" binding:"required,min=1"`
	Observacoes *string `json:"observacoes"`
}

// ReasonRequest carries the reason for rejecting or cancelling an order
type ReasonRequest struct {
	Motivo string `json:"motivo"`
}

// orderAction is a status transition exposed as POST /orders/:id/<action>
type orderAction func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error)

func runOrderAction(c *gin.Context, action orderAction) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	order, err := action(orderService(), c, actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// CreateOrder handles POST /api/v1/orders - creates a draft order (specifiers only)
func CreateOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := orderService().Create(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, order)
}

// ListOrders handles GET /api/v1/orders?status=
func ListOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	orders, err := orderService().List(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, orders)
}

// GetOrderSummary handles GET /api/v1/orders/summary
func GetOrderSummary(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	summary, err := orderService().Summary(c.Request.Context(), actor)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

// ExportOrders handles GET /api/v1/orders/export?status= - downloads the actor's orders as XLSX
func ExportOrders(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := reportService().ExportOrders(c.Request.Context(), actor, c.Query("status"), &buf); err != nil {
		respondError(c, err)
		return
	}

	filename := fmt.Sprintf("pedidos_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

// GetOrder handles GET /api/v1/orders/:id
func GetOrder(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		return s.Get(c.Request.Context(), actor, id)
	})
}

// UpdateOrder handles PUT /api/v1/orders/:id - edits customer and delivery data of a draft
func UpdateOrder(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		var req services.DraftDetailsInput
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindFailure(err)
		}
		return s.UpdateDraft(c.Request.Context(), actor, id, req)
	})
}

// DeleteOrder handles DELETE /api/v1/orders/:id (drafts only)
func DeleteOrder(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	if err := orderService().Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"id": id})
}

// AddOrderItem handles POST /api/v1/orders/:id/items
func AddOrderItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req services.OrderItemInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := orderService().AddItem(c.Request.Context(), actor, id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, order)
}

// UpdateOrderItem handles PUT /api/v1/orders/:id/items/:itemId
func UpdateOrderItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}

	var req UpdateOrderItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	order, err := orderService().UpdateItem(c.Request.Context(), actor, id, itemID, req.Quantidade, req.Observacoes)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// RemoveOrderItem handles DELETE /api/v1/orders/:id/items/:itemId
func RemoveOrderItem(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	itemID, ok := idParam(c, "itemId")
	if !ok {
		return
	}

	order, err := orderService().RemoveItem(c.Request.Context(), actor, id, itemID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, order)
}

// SubmitOrder handles POST /api/v1/orders/:id/submit
func SubmitOrder(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		return s.Submit(c.Request.Context(), actor, id)
	})
}

// ApproveOrder handles POST /api/v1/orders/:id/approve
func ApproveOrder(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		return s.Approve(c.Request.Context(), actor, id)
	})
}

// StartProduction handles POST /api/v1/orders/:id/production
func StartProduction(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		return s.StartProduction(c.Request.Context(), actor, id)
	})
}

// ShipOrder handles POST /api/v1/orders/:id/ship
func ShipOrder(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		return s.Ship(c.Request.Context(), actor, id)
	})
}

// ConfirmDelivery handles POST /api/v1/orders/:id/deliver
func ConfirmDelivery(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		return s.ConfirmDelivery(c.Request.Context(), actor, id)
	})
}

// RejectOrder handles POST /api/v1/orders/:id/reject
func RejectOrder(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		var req ReasonRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			return nil, bindFailure(err)
		}
		return s.Reject(c.Request.Context(), actor, id, req.Motivo)
	})
}

// CancelOrder handles POST /api/v1/orders/:id/cancel
func CancelOrder(c *gin.Context) {
	runOrderAction(c, func(s *services.OrderService, c *gin.Context, actor services.Actor, id uint) (*models.Order, error) {
		var req ReasonRequest
		// the reason is optional on cancel, an empty body is fine
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, bindFailure(err)
			}
		}
		return s.Cancel(c.Request.Context(), actor, id, req.Motivo)
	})
}

func bindFailure(err error) error {
	return &services.WorkflowError{Kind: services.KindValidation, Code: "VALIDATION_ERROR", Message: "Invalid request data: " + err.Error()}
}
