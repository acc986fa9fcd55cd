package services

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fabricaconecta/parceria-api/models"
)

// ProductInput is the data a factory provides for a catalog entry
type ProductInput struct {
	Nome     string  `json:"nome" binding:"required"`
	SKU      string  `json:"sku"`
	Preco    float64 `json:"preco" binding:"gte=0"`
	Restrito bool    `json:"restrito"`
}

// CatalogService exposes factory catalogs with connection-scoped visibility
type CatalogService struct {
	db     *gorm.DB
	logger *zap.Logger
}

// NewCatalogService creates the service
func NewCatalogService(db *gorm.DB, logger *zap.Logger) *CatalogService {
	return &CatalogService{db: db, logger: logger}
}

// CreateProduct adds an active product to the acting factory's catalog
func (s *CatalogService) CreateProduct(ctx context.Context, actor Actor, input ProductInput) (*models.Product, error) {
	if err := requireFactory(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Nome) == "" {
		return nil, newValidationError("VALIDATION_ERROR", "Product name is required", map[string]string{"nome": "required"})
	}
	if input.Preco < 0 {
		return nil, newValidationError("VALIDATION_ERROR", "Price cannot be negative", map[string]string{"preco": "gte"})
	}

	product := models.Product{
		FactoryID: actor.UserID,
		Nome:      strings.TrimSpace(input.Nome),
		SKU:       strings.TrimSpace(input.SKU),
		Preco:     input.Preco,
		Restrito:  input.Restrito,
		Ativo:     true,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}

	s.logger.Info("product created", zap.Uint("product_id", product.ID), zap.Uint("factory_id", actor.UserID))
	return &product, nil
}

// VisibleProducts lists the factory's active products the actor may see.
// Restricted entries need an approved connection; the factory itself sees everything it owns.
func (s *CatalogService) VisibleProducts(ctx context.Context, actor Actor, factoryID uint) ([]models.Product, error) {
	query := s.db.WithContext(ctx).Where("factory_id = ?", factoryID)

	if actor.UserID != factoryID {
		query = query.Where("ativo = ?", true)
		approved, err := s.hasApprovedConnection(ctx, actor.UserID, factoryID)
		if err != nil {
			return nil, err
		}
		if !approved {
			query = query.Where("restrito = ?", false)
		}
	}

	var products []models.Product
	if err := query.Order("nome ASC").Order("id ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (s *CatalogService) hasApprovedConnection(ctx context.Context, specifierID, factoryID uint) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Connection{}).
		Where("specifier_id = ? AND factory_id = ? AND status = ?", specifierID, factoryID, models.ConnectionApproved).
		Count(&count).Error
	return count > 0, err
}
