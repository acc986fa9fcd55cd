package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/fabricaconecta/parceria-api/services"
)

// CreateProduct handles POST /api/v1/products (factories only)
func CreateProduct(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req services.ProductInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	product, err := catalogService().CreateProduct(c.Request.Context(), actor, req)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, product)
}

// ListFactoryProducts handles GET /api/v1/factories/:id/products
func ListFactoryProducts(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	factoryID, ok := idParam(c, "id")
	if !ok {
		return
	}

	products, err := catalogService().VisibleProducts(c.Request.Context(), actor, factoryID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, products)
}
