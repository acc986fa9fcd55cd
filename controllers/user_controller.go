package controllers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fabricaconecta/parceria-api/config"
	"github.com/fabricaconecta/parceria-api/middleware"
	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/services"
)

// UpdateUserRequest represents the request body for updating a user profile
type UpdateUserRequest struct {
	Name  string `json:"name" binding:"omitempty"`
	Email string `json:"email" binding:"omitempty,email"`
}

// CreateUser handles POST /api/v1/users - creates a new user from Auth0 userinfo
// The role comes from the token's role claim and defaults to specifier.
func CreateUser(c *gin.Context) {
	auth0ID, err := middleware.GetUserID(c)
	if err != nil {
		respondErrorCode(c, http.StatusUnauthorized, "UNAUTHORIZED", "Could not extract user ID from token", nil)
		return
	}

	accessToken, err := middleware.GetAccessToken(c)
	if err != nil {
		respondErrorCode(c, http.StatusUnauthorized, "MISSING_TOKEN", "Access token not found", nil)
		return
	}

	role := middleware.GetRoleClaim(c)
	if role == "" {
		role = models.RoleSpecifier
	}
	if !models.IsValidRole(role) {
		respondErrorCode(c, http.StatusBadRequest, "INVALID_ROLE", "Role must be specifier or factory", nil)
		return
	}

	auth0Service := services.NewAuth0Service(config.GetConfig())
	userInfo, err := auth0Service.FetchProfile(c.Request.Context(), accessToken, auth0ID)
	if errors.Is(err, services.ErrAuth0SubjectMismatch) {
		respondErrorCode(c, http.StatusUnauthorized, "TOKEN_SUBJECT_MISMATCH", "Token does not belong to this Auth0 user", nil)
		return
	}
	if err != nil {
		config.GetLogger().Warn("auth0 userinfo failed", zap.String("auth0_id", auth0ID), zap.Error(err))
		respondErrorCode(c, http.StatusInternalServerError, "AUTH0_ERROR", "Failed to fetch user information from Auth0", nil)
		return
	}

	if userInfo.Email == "" {
		respondErrorCode(c, http.StatusBadRequest, "MISSING_EMAIL", "Email not provided by Auth0", nil)
		return
	}
	if userInfo.Name == "" {
		respondErrorCode(c, http.StatusBadRequest, "MISSING_NAME", "Name not provided by Auth0", nil)
		return
	}

	user := models.User{
		Auth0ID: auth0ID,
		Name:    userInfo.Name,
		Email:   userInfo.Email,
		Role:    role,
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			respondErrorCode(c, http.StatusConflict, "USER_EXISTS", "A user with this Auth0 ID or email already exists", nil)
			return
		}
		respondErrorCode(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create user", nil)
		return
	}

	config.GetLogger().Info("user created", zap.Uint("user_id", user.ID), zap.String("role", user.Role))
	respondCreated(c, user)
}

// GetMyProfile handles GET /api/v1/users/me - gets current user's profile
func GetMyProfile(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	respondOK(c, user)
}

// UpdateMyProfile handles PUT /api/v1/users/me - updates current user's profile
func UpdateMyProfile(c *gin.Context) {
	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	user, ok := currentUser(c)
	if !ok {
		return
	}

	updates := make(map[string]interface{})
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Email != "" {
		updates["email"] = req.Email
	}
	if len(updates) == 0 {
		respondOK(c, user)
		return
	}

	db := config.GetDB().WithContext(c.Request.Context())
	if err := db.Model(user).Updates(updates).Error; err != nil {
		if isDuplicate(err) {
			respondErrorCode(c, http.StatusConflict, "EMAIL_EXISTS", "A user with this email already exists", nil)
			return
		}
		respondErrorCode(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update user profile", nil)
		return
	}

	if err := db.First(user, user.ID).Error; err != nil {
		respondErrorCode(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to fetch updated profile", nil)
		return
	}
	respondOK(c, user)
}

// isDuplicate checks for duplicate keys (works with both PostgreSQL and SQLite)
func isDuplicate(err error) bool {
	errMsg := strings.ToLower(err.Error())
	return strings.Contains(errMsg, "duplicate") || strings.Contains(errMsg, "unique")
}
