package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fabricaconecta/parceria-api/models"
)

// OrderItemInput is one line requested by the specifier
type OrderItemInput struct {
	ProductID   uint   `json:"product_id" binding:"required"`
	Quantidade  int    `json:"quantidade" binding:"required,min=1"`
	Observacoes string `json:"observacoes"`
}

// CreateOrderInput carries the customer snapshot and the initial items of a draft
type CreateOrderInput struct {
	ConnectionID       uint             `json:"connection_id" binding:"required"`
	ClienteNome        string           `json:"cliente_nome"`
	ClienteEmail       string           `json:"cliente_email"`
	ClienteTelefone    string           `json:"cliente_telefone"`
	ClienteDocumento   string           `json:"cliente_documento"`
	EntregaCEP         string           `json:"entrega_cep"`
	EntregaLogradouro  string           `json:"entrega_logradouro"`
	EntregaNumero      string           `json:"entrega_numero"`
	EntregaComplemento string           `json:"entrega_complemento"`
	EntregaBairro      string           `json:"entrega_bairro"`
	EntregaCidade      string           `json:"entrega_cidade"`
	EntregaEstado      string           `json:"entrega_estado"`
	Observacoes        string           `json:"observacoes"`
	Items              []OrderItemInput `json:"items" binding:"dive"`
}

// DraftDetailsInput edits the customer and delivery snapshot of a draft. Nil fields are kept.
type DraftDetailsInput struct {
	ClienteNome        *string `json:"cliente_nome"`
	ClienteEmail       *string `json:"cliente_email"`
	ClienteTelefone    *string `json:"cliente_telefone"`
	ClienteDocumento   *string `json:"cliente_documento"`
	EntregaCEP         *string `json:"entrega_cep"`
	EntregaLogradouro  *string `json:"entrega_logradouro"`
	EntregaNumero      *string `json:"entrega_numero"`
	EntregaComplemento *string `json:"entrega_complemento"`
	EntregaBairro      *string `json:"entrega_bairro"`
	EntregaCidade      *string `json:"entrega_cidade"`
	EntregaEstado      *string `json:"entrega_estado"`
	Observacoes        *string `json:"observacoes"`
}

func (in DraftDetailsInput) updates() map[string]interface{} {
	updates := map[string]interface{}{}
	for column, v := range map[string]*string{
		"cliente_nome":        in.ClienteNome,
		"cliente_email":       in.ClienteEmail,
		"cliente_telefone":    in.ClienteTelefone,
		"cliente_documento":   in.ClienteDocumento,
		"entrega_cep":         in.EntregaCEP,
		"entrega_logradouro":  in.EntregaLogradouro,
		"entrega_numero":      in.EntregaNumero,
		"entrega_complemento": in.EntregaComplemento,
		"entrega_bairro":      in.EntregaBairro,
		"entrega_cidade":      in.EntregaCidade,
	} {
		if v != nil {
			updates[column] = strings.TrimSpace(*v)
		}
	}
	if in.EntregaEstado != nil {
		updates["entrega_estado"] = strings.ToUpper(strings.TrimSpace(*in.EntregaEstado))
	}
	if in.Observacoes != nil {
		updates["observacoes"] = *in.Observacoes
	}
	return updates
}

// OrderSummary aggregates the actor's orders by bucket
type OrderSummary struct {
	Draft           int64   `json:"draft"`
	InFlight        int64   `json:"in_flight"`
	Delivered       int64   `json:"delivered"`
	Cancelled       int64   `json:"cancelled"`
	RealizedRevenue float64 `json:"realized_revenue"` // valor_total over delivered orders
}

// OrderService drives orders from draft to delivery or cancellation
type OrderService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewOrderService creates the service
func NewOrderService(db *gorm.DB, logger *zap.Logger) *OrderService {
	return &OrderService{db: db, logger: logger}
}

// Create inserts a draft order and its initial items in one transaction
func (s *OrderService) Create(ctx context.Context, actor Actor, input CreateOrderInput) (*models.Order, error) {
	if err := requireSpecifier(actor); err != nil {
		return nil, err
	}

	var conn models.Connection
	if err := s.db.WithContext(ctx).First(&conn, input.ConnectionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, newNotFoundError("CONNECTION_NOT_FOUND", "Connection not found")
		}
		return nil, err
	}
	if conn.SpecifierID != actor.UserID {
		return nil, newNotFoundError("CONNECTION_NOT_FOUND", "Connection not found")
	}
	if !conn.IsApproved() {
		return nil, newPreconditionError("CONNECTION_NOT_APPROVED", "Orders require an approved connection")
	}

	order := models.Order{
		ConnectionID:       conn.ID,
		SpecifierID:        conn.SpecifierID,
		FactoryID:          conn.FactoryID,
		Status:             models.OrderRascunho,
		ClienteNome:        strings.TrimSpace(input.ClienteNome),
		ClienteEmail:       strings.TrimSpace(input.ClienteEmail),
		ClienteTelefone:    strings.TrimSpace(input.ClienteTelefone),
		ClienteDocumento:   strings.TrimSpace(input.ClienteDocumento),
		EntregaCEP:         strings.TrimSpace(input.EntregaCEP),
		EntregaLogradouro:  strings.TrimSpace(input.EntregaLogradouro),
		EntregaNumero:      strings.TrimSpace(input.EntregaNumero),
		EntregaComplemento: strings.TrimSpace(input.EntregaComplemento),
		EntregaBairro:      strings.TrimSpace(input.EntregaBairro),
		EntregaCidade:      strings.TrimSpace(input.EntregaCidade),
		EntregaEstado:      strings.ToUpper(strings.TrimSpace(input.EntregaEstado)),
		Observacoes:        input.Observacoes,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Items").Create(&order).Error; err != nil {
			return err
		}
		order.Numero = models.OrderNumber(order.ID)
		if err := tx.Model(&models.Order{}).Where("id = ?", order.ID).Update("numero", order.Numero).Error; err != nil {
			return err
		}
		for _, in := range input.Items {
			if err := s.insertItem(tx, &order, in); err != nil {
				return err
			}
		}
		return refreshDraftTotal(tx, order.ID)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order created",
		zap.Uint("order_id", order.ID),
		zap.String("numero", order.Numero),
		zap.Uint("connection_id", conn.ID),
		zap.Int("items", len(input.Items)))
	return s.Get(ctx, actor, order.ID)
}

// UpdateDraft changes the customer and delivery data of a draft
func (s *OrderService) UpdateDraft(ctx context.Context, actor Actor, orderID uint, in DraftDetailsInput) (*models.Order, error) {
	order, err := s.loadOwnedDraft(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	updates := in.updates()
	if len(updates) == 0 {
		return order, nil
	}

	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderRascunho).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errNotDraft()
	}

	s.logger.Debug("draft updated", zap.Uint("order_id", orderID), zap.Int("fields", len(updates)))
	return s.Get(ctx, actor, orderID)
}

// AddItem appends a line to a draft, snapshotting the product price
func (s *OrderService) AddItem(ctx context.Context, actor Actor, orderID uint, in OrderItemInput) (*models.Order, error) {
	order, err := s.loadOwnedDraft(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.insertItem(tx, order, in); err != nil {
			return err
		}
		return refreshDraftTotal(tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, orderID)
}

// UpdateItem changes quantity and notes of a draft line. observacoes is left untouched when nil.
func (s *OrderService) UpdateItem(ctx context.Context, actor Actor, orderID, itemID uint, quantidade int, observacoes *string) (*models.Order, error) {
	if quantidade < 1 {
		return nil, newValidationError("INVALID_QUANTITY", "Quantity must be at least 1", map[string]string{"quantidade": "min"})
	}
	if _, err := s.loadOwnedDraft(ctx, actor, orderID); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.Where("id = ? AND order_id = ?", itemID, orderID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return newNotFoundError("ITEM_NOT_FOUND", "Order item not found")
			}
			return err
		}
		item.Quantidade = quantidade
		item.ComputeSubtotal()
		updates := map[string]interface{}{
			"quantidade": item.Quantidade,
			"subtotal":   item.Subtotal,
		}
		if observacoes != nil {
			updates["observacoes"] = *observacoes
		}
		if err := tx.Model(&models.OrderItem{}).Where("id = ?", itemID).Updates(updates).Error; err != nil {
			return err
		}
		return refreshDraftTotal(tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, orderID)
}

// RemoveItem deletes a draft line
func (s *OrderService) RemoveItem(ctx context.Context, actor Actor, orderID, itemID uint) (*models.Order, error) {
	if _, err := s.loadOwnedDraft(ctx, actor, orderID); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("id = ? AND order_id = ?", itemID, orderID).Delete(&models.OrderItem{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return newNotFoundError("ITEM_NOT_FOUND", "Order item not found")
		}
		return refreshDraftTotal(tx, orderID)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, orderID)
}

// Submit freezes the draft: totals and the commission snapshot are computed here and never again
func (s *OrderService) Submit(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	order, err := s.loadOwnedDraft(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if len(order.Items) == 0 {
		return nil, newPreconditionError("ORDER_EMPTY", "Order needs at least one item")
	}
	if order.ClienteNome == "" {
		return nil, newPreconditionError("CUSTOMER_NAME_REQUIRED", "Customer name is required")
	}
	if order.EntregaEstado == "" || order.EntregaCidade == "" {
		return nil, newPreconditionError("DELIVERY_ADDRESS_REQUIRED", "Delivery city and state are required")
	}

	var conn models.Connection
	if err := s.db.WithContext(ctx).First(&conn, order.ConnectionID).Error; err != nil {
		return nil, err
	}
	if !conn.IsApproved() {
		return nil, newPreconditionError("CONNECTION_NOT_APPROVED", "Connection is no longer approved")
	}
	if !conn.CanDeliverTo(order.EntregaEstado, order.EntregaCidade) {
		return nil, newValidationError("REGION_NOT_AUTHORIZED",
			fmt.Sprintf("Delivery to %s/%s is outside the authorized territory", order.EntregaCidade, order.EntregaEstado),
			map[string]string{"entrega_cidade": "not_authorized"})
	}

	rate := 0.0
	if conn.CommissionRate != nil {
		rate = *conn.CommissionRate
	}

	now := time.Now()
	var total float64
	// The status claim locks the row first, so item writes still in flight either
	// commit before the sum below or fail their own draft check afterwards.
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Order{}).
			Where("id = ? AND status = ?", orderID, models.OrderRascunho).
			Updates(map[string]interface{}{
				"status":     models.OrderEnviado,
				"data_envio": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errTransitionLost()
		}

		var items []models.OrderItem
		if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return newPreconditionError("ORDER_EMPTY", "Order needs at least one item")
		}
		total = (&models.Order{Items: items}).ItemsTotal()
		return tx.Model(&models.Order{}).
			Where("id = ?", orderID).
			Updates(map[string]interface{}{
				"valor_total":         total,
				"percentual_comissao": rate,
				"valor_comissao":      models.RoundMoney(total * rate / 100),
			}).Error
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("order submitted",
		zap.Uint("order_id", orderID),
		zap.Float64("valor_total", total),
		zap.Float64("percentual_comissao", rate))
	return s.Get(ctx, actor, orderID)
}

// Approve moves a submitted order to aprovado
func (s *OrderService) Approve(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRule{
		name:  "approve",
		from:  []string{models.OrderEnviado},
		to:    models.OrderAprovado,
		role:  models.RoleFactory,
		stamp: "data_aprovacao",
	}, nil)
}

// Reject cancels a submitted order on the factory's side
func (s *OrderService) Reject(ctx context.Context, actor Actor, orderID uint, motivo string) (*models.Order, error) {
	if strings.TrimSpace(motivo) == "" {
		return nil, newValidationError("VALIDATION_ERROR", "A reason is required to reject an order", map[string]string{"motivo": "required"})
	}
	return s.transition(ctx, actor, orderID, transitionRule{
		name:  "reject",
		from:  []string{models.OrderEnviado},
		to:    models.OrderCancelado,
		role:  models.RoleFactory,
		stamp: "data_cancelamento",
	}, map[string]interface{}{"motivo_cancelamento": strings.TrimSpace(motivo)})
}

// StartProduction moves an approved order to em_producao
func (s *OrderService) StartProduction(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRule{
		name:  "start production",
		from:  []string{models.OrderAprovado},
		to:    models.OrderEmProducao,
		role:  models.RoleFactory,
		stamp: "etapa_fabricacao",
	}, nil)
}

// Ship hands the order over for delivery
func (s *OrderService) Ship(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRule{
		name:  "ship",
		from:  []string{models.OrderEmProducao},
		to:    models.OrderEnviadoCliente,
		role:  models.RoleFactory,
		stamp: "etapa_expedicao",
	}, nil)
}

// ConfirmDelivery closes a shipped order
func (s *OrderService) ConfirmDelivery(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRule{
		name:  "confirm delivery",
		from:  []string{models.OrderEnviadoCliente},
		to:    models.OrderEntregue,
		role:  models.RoleFactory,
		stamp: "data_entrega",
	}, nil)
}

// Cancel ends any non-terminal order. Totals are kept as they were.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, orderID uint, motivo string) (*models.Order, error) {
	return s.transition(ctx, actor, orderID, transitionRule{
		name: "cancel",
		from: []string{
			models.OrderRascunho, models.OrderEnviado, models.OrderAprovado,
			models.OrderEmProducao, models.OrderEnviadoCliente,
		},
		to:    models.OrderCancelado,
		stamp: "data_cancelamento",
	}, map[string]interface{}{"motivo_cancelamento": strings.TrimSpace(motivo)})
}

// Delete hard-deletes a draft with its items and messages
func (s *OrderService) Delete(ctx context.Context, actor Actor, orderID uint) error {
	if _, err := s.loadOwnedDraft(ctx, actor, orderID); err != nil {
		return err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Unscoped().Where("order_id = ?", orderID).Delete(&models.OrderMessage{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("id = ? AND status = ?", orderID, models.OrderRascunho).Delete(&models.Order{})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return errNotDraft()
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("order deleted", zap.Uint("order_id", orderID))
	return nil
}

// Get returns an order with its items. Factories never see drafts.
func (s *OrderService) Get(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Items.Product").
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errOrderNotFound()
		}
		return nil, err
	}
	if !canSeeOrder(actor, &order) {
		return nil, errOrderNotFound()
	}
	return &order, nil
}

// List returns the actor's orders, newest first. status filters when non-empty.
func (s *OrderService) List(ctx context.Context, actor Actor, status string) ([]models.Order, error) {
	query, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var orders []models.Order
	if err := query.Order("created_at DESC").Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Summary counts orders per bucket and sums revenue of delivered orders
func (s *OrderService) Summary(ctx context.Context, actor Actor) (*OrderSummary, error) {
	query, err := s.scope(ctx, actor)
	if err != nil {
		return nil, err
	}

	var rows []struct {
		Status string
		Count  int64
		Total  float64
	}
	if err := query.Model(&models.Order{}).
		Select("status, COUNT(*) AS count, COALESCE(SUM(valor_total), 0) AS total").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	summary := &OrderSummary{}
	for _, row := range rows {
		switch models.StatusBucket(row.Status) {
		case models.BucketDraft:
			summary.Draft += row.Count
		case models.BucketInFlight:
			summary.InFlight += row.Count
		case models.BucketDelivered:
			summary.Delivered += row.Count
			summary.RealizedRevenue += row.Total
		case models.BucketCancelled:
			summary.Cancelled += row.Count
		}
	}
	summary.RealizedRevenue = models.RoundMoney(summary.RealizedRevenue)
	return summary, nil
}

type transitionRule struct {
	name  string
	from  []string
	to    string
	role  string // empty means either participant
	stamp string
}

// transition applies rule as a compare-and-update on the status read; losing a race fails without writing
func (s *OrderService) transition(ctx context.Context, actor Actor, orderID uint, rule transitionRule, extra map[string]interface{}) (*models.Order, error) {
	order, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if rule.role != "" && actor.Role != rule.role {
		return nil, newForbiddenError(fmt.Sprintf("Only the %s can %s this order", rule.role, rule.name))
	}
	if !containsStatus(rule.from, order.Status) {
		return nil, newPreconditionError("INVALID_TRANSITION",
			fmt.Sprintf("Cannot %s an order with status %s", rule.name, order.Status))
	}

	now := time.Now()
	updates := map[string]interface{}{"status": rule.to}
	if rule.stamp != "" {
		updates[rule.stamp] = now
	}
	for k, v := range extra {
		updates[k] = v
	}

	result := s.db.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, order.Status).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, errTransitionLost()
	}

	s.logger.Info("order transitioned",
		zap.Uint("order_id", orderID),
		zap.String("from", order.Status),
		zap.String("to", rule.to),
		zap.Uint("actor_id", actor.UserID))
	return s.Get(ctx, actor, orderID)
}

// loadOwnedDraft returns the order if the actor is its specifier and it is still a draft
func (s *OrderService) loadOwnedDraft(ctx context.Context, actor Actor, orderID uint) (*models.Order, error) {
	if err := requireSpecifier(actor); err != nil {
		return nil, err
	}
	order, err := s.Get(ctx, actor, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != models.OrderRascunho {
		return nil, errNotDraft()
	}
	return order, nil
}

func (s *OrderService) insertItem(tx *gorm.DB, order *models.Order, in OrderItemInput) error {
	if in.Quantidade < 1 {
		return newValidationError("INVALID_QUANTITY", "Quantity must be at least 1", map[string]string{"quantidade": "min"})
	}

	var product models.Product
	if err := tx.Where("id = ? AND factory_id = ?", in.ProductID, order.FactoryID).First(&product).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return newValidationError("PRODUCT_NOT_AVAILABLE", "Product does not belong to this factory", map[string]string{"product_id": "not_found"})
		}
		return err
	}
	if !product.Ativo {
		return newValidationError("PRODUCT_NOT_AVAILABLE", "Product is not active", map[string]string{"product_id": "inactive"})
	}

	item := models.OrderItem{
		OrderID:       order.ID,
		ProductID:     product.ID,
		Quantidade:    in.Quantidade,
		PrecoUnitario: product.Preco,
		Observacoes:   in.Observacoes,
	}
	item.ComputeSubtotal()
	return tx.Omit("Product").Create(&item).Error
}

// refreshDraftTotal recomputes valor_total, failing if the order already left rascunho
func refreshDraftTotal(tx *gorm.DB, orderID uint) error {
	total, err := sumItems(tx, orderID)
	if err != nil {
		return err
	}
	result := tx.Model(&models.Order{}).
		Where("id = ? AND status = ?", orderID, models.OrderRascunho).
		Update("valor_total", total)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errNotDraft()
	}
	return nil
}

func sumItems(tx *gorm.DB, orderID uint) (float64, error) {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return 0, err
	}
	return (&models.Order{Items: items}).ItemsTotal(), nil
}

// scope restricts a query to the orders visible to actor
func (s *OrderService) scope(ctx context.Context, actor Actor) (*gorm.DB, error) {
	query := s.db.WithContext(ctx)
	switch {
	case actor.IsSpecifier():
		return query.Where("specifier_id = ?", actor.UserID), nil
	case actor.IsFactory():
		return query.Where("factory_id = ? AND status <> ?", actor.UserID, models.OrderRascunho), nil
	default:
		return nil, newForbiddenError("Unknown role")
	}
}

func canSeeOrder(actor Actor, order *models.Order) bool {
	if actor.IsSpecifier() {
		return order.SpecifierID == actor.UserID
	}
	if actor.IsFactory() {
		return order.FactoryID == actor.UserID && order.Status != models.OrderRascunho
	}
	return false
}

func containsStatus(list []string, status string) bool {
	for _, s := range list {
		if s == status {
			return true
		}
	}
	return false
}

func errOrderNotFound() error {
	return newNotFoundError("ORDER_NOT_FOUND", "Order not found")
}

func errNotDraft() error {
	return newPreconditionError("ORDER_NOT_DRAFT", "Only draft orders can be changed")
}

func errTransitionLost() error {
	return newPreconditionError("ORDER_STATUS_CHANGED", "Order status changed concurrently")
}
