package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fabricaconecta/parceria-api/services"
)

// LookupAddress handles GET /api/v1/addresses/:cep - resolves a postal code for form pre-fill
func LookupAddress(c *gin.Context) {
	lookup := services.GetAddressService()
	if lookup == nil {
		respondErrorCode(c, http.StatusServiceUnavailable, "ADDRESS_LOOKUP_UNAVAILABLE", "Address lookup is not configured", nil)
		return
	}

	info, err := lookup.Lookup(c.Request.Context(), c.Param("cep"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, info)
}
