package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/fabricaconecta/parceria-api/models"
)

// SubmitConnectionRequest represents the body of an application to a factory
type SubmitConnectionRequest struct {
	FactoryID       uint                   `json:"factory_id" binding:"required"`
	ApplicationData models.ApplicationData `json:"application_data"`
}

// RespondConnectionRequest carries the factory decision on an application
type RespondConnectionRequest struct {
	Decision          string   `json:"decision" binding:"required,oneof=approve reject"`
	AuthorizedRegions []string `json:"authorized_regions"`
}

// UpdateRegionsRequest replaces the authorized states of a connection
type UpdateRegionsRequest struct {
	AuthorizedRegions []string `json:"authorized_regions" binding:"required"`
}

// UpdateCitiesRequest replaces the per-state city map of a connection
type UpdateCitiesRequest struct {
	AuthorizedCities models.AuthorizedCities `json:"authorized_cities" binding:"required"`
}

// SetStateModeRequest toggles between all cities and a selected list for one state
type SetStateModeRequest struct {
	All *bool `json:"all" binding:"required"`
}

// CoverageQuery is the query string of GET /connections/:id/coverage
type CoverageQuery struct {
	State string `form:"state" binding:"required,uf"`
	City  string `form:"city" binding:"required"`
}

// SubmitConnection handles POST /api/v1/connections - a specifier applies to a factory
func SubmitConnection(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	var req SubmitConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conn, err := connectionService().SubmitApplication(c.Request.Context(), actor, req.FactoryID, req.ApplicationData)
	if err != nil {
		respondError(c, err)
		return
	}
	respondCreated(c, conn)
}

// ListConnections handles GET /api/v1/connections?status=
func ListConnections(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}

	conns, err := connectionService().List(c.Request.Context(), actor, c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, conns)
}

// GetConnection handles GET /api/v1/connections/:id
func GetConnection(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	conn, err := connectionService().Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, conn)
}

// RespondConnection handles POST /api/v1/connections/:id/respond (factories only)
func RespondConnection(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req RespondConnectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conn, err := connectionService().Respond(c.Request.Context(), actor, id, req.Decision, req.AuthorizedRegions)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, conn)
}

// UpdateAuthorizedRegions handles PUT /api/v1/connections/:id/regions
func UpdateAuthorizedRegions(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateRegionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conn, err := connectionService().UpdateAuthorizedRegions(c.Request.Context(), actor, id, req.AuthorizedRegions)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, conn)
}

// UpdateAuthorizedCities handles PUT /api/v1/connections/:id/cities
func UpdateAuthorizedCities(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req UpdateCitiesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conn, err := connectionService().UpdateAuthorizedCities(c.Request.Context(), actor, id, req.AuthorizedCities)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, conn)
}

// SetStateMode handles PUT /api/v1/connections/:id/cities/:state
func SetStateMode(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var req SetStateModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	conn, err := connectionService().SetStateMode(c.Request.Context(), actor, id, c.Param("state"), *req.All)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, conn)
}

// CheckCoverage handles GET /api/v1/connections/:id/coverage?state=&city=
func CheckCoverage(c *gin.Context) {
	actor, ok := currentActor(c)
	if !ok {
		return
	}
	id, ok := idParam(c, "id")
	if !ok {
		return
	}

	var query CoverageQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondBindError(c, err)
		return
	}
	state, city := query.State, query.City
	allowed, err := connectionService().CheckCity(c.Request.Context(), actor, id, state, city)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{
		"state":      state,
		"city":       city,
		"authorized": allowed,
	})
}
