package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fabricaconecta/parceria-api/models"
)

// OrderMessageService stores the conversation attached to an order
type OrderMessageService struct {
	db     *gorm.DB
	logger *zap.Logger
	orders *OrderService
}

// NewOrderMessageService creates the service
func NewOrderMessageService(db *gorm.DB, logger *zap.Logger, orders *OrderService) *OrderMessageService {
	return &OrderMessageService{db: db, logger: logger, orders: orders}
}

// Post adds a message from actor to an order they can see
func (s *OrderMessageService) Post(ctx context.Context, actor Actor, orderID uint, content string) (*models.OrderMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, newValidationError("VALIDATION_ERROR", "Message content is required", map[string]string{"content": "required"})
	}
	if _, err := s.orders.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}

	message := models.OrderMessage{
		Content:  content,
		OrderID:  orderID,
		SenderID: actor.UserID,
	}
	if err := s.db.WithContext(ctx).Omit("Sender").Create(&message).Error; err != nil {
		return nil, err
	}
	if err := s.db.WithContext(ctx).Preload("Sender").First(&message, message.ID).Error; err != nil {
		return nil, err
	}

	s.logger.Debug("order message posted", zap.Uint("order_id", orderID), zap.Uint("sender_id", actor.UserID))
	return &message, nil
}

// List returns an order's messages in chronological order
func (s *OrderMessageService) List(ctx context.Context, actor Actor, orderID uint) ([]models.OrderMessage, error) {
	if _, err := s.orders.Get(ctx, actor, orderID); err != nil {
		return nil, err
	}

	var messages []models.OrderMessage
	if err := s.db.WithContext(ctx).
		Preload("Sender").
		Where("order_id = ?", orderID).
		Order("created_at ASC").Order("id ASC").
		Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}
