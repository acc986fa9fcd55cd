package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabricaconecta/parceria-api/config"
	"github.com/fabricaconecta/parceria-api/middleware"
	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/services"
	"github.com/fabricaconecta/parceria-api/utils"
)

// errorStatus maps workflow error kinds to HTTP status codes
var errorStatus = map[services.ErrorKind]int{
	services.KindValidation:      http.StatusBadRequest,
	services.KindInvalidDocument: http.StatusUnprocessableEntity,
	services.KindProofRequired:   http.StatusUnprocessableEntity,
	services.KindConflict:        http.StatusConflict,
	services.KindPrecondition:    http.StatusPreconditionFailed,
	services.KindNotFound:        http.StatusNotFound,
	services.KindForbidden:       http.StatusForbidden,
}

func respondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondCreated(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func respondErrorCode(c *gin.Context, status int, code, message string, details interface{}) {
	body := gin.H{
		"code":    code,
		"message": message,
	}
	if details != nil {
		body["details"] = details
	}
	c.JSON(status, gin.H{
		"success": false,
		"error":   body,
	})
}

// respondError writes the envelope for an error returned by a service
func respondError(c *gin.Context, err error) {
	var wfErr *services.WorkflowError
	if errors.As(err, &wfErr) {
		status, ok := errorStatus[wfErr.Kind]
		if !ok {
			status = http.StatusBadRequest
		}
		var details interface{}
		if len(wfErr.Details) > 0 {
			details = wfErr.Details
		}
		respondErrorCode(c, status, wfErr.Code, wfErr.Message, details)
		return
	}
	if errors.Is(err, services.ErrAddressNotFound) {
		respondErrorCode(c, http.StatusNotFound, "ADDRESS_NOT_FOUND", "No address found for this CEP", nil)
		return
	}

	_ = c.Error(err)
	config.GetLogger().Error("request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	respondErrorCode(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}

// respondBindError reports a request body that failed to bind
func respondBindError(c *gin.Context, err error) {
	var details interface{} = err.Error()
	if fields := utils.FieldErrors(err); fields != nil {
		details = fields
	}
	respondErrorCode(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request data", details)
}

// currentUser loads the local profile of the authenticated caller.
// It writes the error response itself and returns false when there is none.
func currentUser(c *gin.Context) (*models.User, bool) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user information", nil)
		return nil, false
	}

	var user models.User
	if err := config.GetDB().WithContext(c.Request.Context()).Where("auth0_id = ?", auth0ID).First(&user).Error; err != nil {
		respondErrorCode(c, http.StatusNotFound, "USER_NOT_FOUND", "User profile not found. Please create a profile first.", nil)
		return nil, false
	}
	return &user, true
}

// currentActor is currentUser reduced to what the services need
func currentActor(c *gin.Context) (services.Actor, bool) {
	user, ok := currentUser(c)
	if !ok {
		return services.Actor{}, false
	}
	return services.ActorFromUser(user), true
}

// idParam parses a positive numeric path parameter
func idParam(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "Invalid "+name, nil)
		return 0, false
	}
	return uint(id), true
}
