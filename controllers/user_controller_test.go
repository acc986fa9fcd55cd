package controllers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabricaconecta/parceria-api/config"
	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/services"
)

// useMockAuth0 points the Auth0 service at a mock userinfo server for the test
func useMockAuth0(t *testing.T, userInfoMap map[string]*services.Auth0UserInfo) {
	mockServer := setupMockAuth0Server(userInfoMap)
	t.Cleanup(mockServer.Close)

	originalConfig := config.GetConfig()
	t.Cleanup(func() { config.SetConfig(originalConfig) })
	config.SetConfig(&config.Config{Auth0Domain: mockServer.URL})
}

func TestCreateUser(t *testing.T) {
	db := setupTestDB(t)

	tests := []struct {
		name           string
		auth0ID        string
		email          string
		userName       string
		role           string
		expectedStatus int
		expectedCode   string
		expectedRole   string
	}{
		{
			name:           "Create specifier user successfully",
			auth0ID:        "auth0|arquiteta",
			email:          "arquiteta@example.com",
			userName:       "Ana Arquiteta",
			role:           models.RoleSpecifier,
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleSpecifier,
		},
		{
			name:           "Create factory user successfully",
			auth0ID:        "auth0|fabrica",
			email:          "fabrica@example.com",
			userName:       "Móveis Fábrica",
			role:           models.RoleFactory,
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleFactory,
		},
		{
			name:           "Default role when the claim is empty",
			auth0ID:        "auth0|norole",
			email:          "norole@example.com",
			userName:       "No Role User",
			role:           "",
			expectedStatus: http.StatusCreated,
			expectedRole:   models.RoleSpecifier,
		},
		{
			name:           "Fail with unknown role",
			auth0ID:        "auth0|admin",
			email:          "admin@example.com",
			userName:       "Admin",
			role:           "admin",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "INVALID_ROLE",
		},
		{
			name:           "Fail with missing email",
			auth0ID:        "auth0|noemail",
			userName:       "No Email User",
			role:           models.RoleSpecifier,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_EMAIL",
		},
		{
			name:           "Fail with missing name",
			auth0ID:        "auth0|noname",
			email:          "noname@example.com",
			role:           models.RoleSpecifier,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "MISSING_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db.Exec("DELETE FROM users")

			accessToken := "token-" + tt.auth0ID
			useMockAuth0(t, map[string]*services.Auth0UserInfo{
				accessToken: {Sub: tt.auth0ID, Email: tt.email, Name: tt.userName},
			})

			router := setupTestRouter()
			router.POST("/users", mockAuthMiddleware(tt.auth0ID, tt.role, accessToken), CreateUser)

			w := performRequest(router, http.MethodPost, "/users", nil)
			assert.Equal(t, tt.expectedStatus, w.Code, "Response body: %s", w.Body.String())

			if tt.expectedStatus == http.StatusCreated {
				data := responseData(t, w)
				assert.Equal(t, tt.email, data["email"])
				assert.Equal(t, tt.userName, data["name"])
				assert.Equal(t, tt.auth0ID, data["auth0_id"])
				assert.Equal(t, tt.expectedRole, data["role"])
			} else {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
			}
		})
	}
}

func TestCreateUser_Auth0Unavailable(t *testing.T) {
	setupTestDB(t)
	useMockAuth0(t, map[string]*services.Auth0UserInfo{})

	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|x", models.RoleSpecifier, "unknown-token"), CreateUser)

	w := performRequest(router, http.MethodPost, "/users", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "AUTH0_ERROR", errorCode(t, w))
}

func TestCreateUser_SubjectMismatch(t *testing.T) {
	db := setupTestDB(t)
	useMockAuth0(t, map[string]*services.Auth0UserInfo{
		"token-other": {Sub: "auth0|someone-else", Email: "x@example.com", Name: "X"},
	})

	router := setupTestRouter()
	router.POST("/users", mockAuthMiddleware("auth0|me", models.RoleSpecifier, "token-other"), CreateUser)

	w := performRequest(router, http.MethodPost, "/users", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "TOKEN_SUBJECT_MISMATCH", errorCode(t, w))

	var count int64
	db.Model(&models.User{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateUser_Duplicates(t *testing.T) {
	tests := []struct {
		name    string
		auth0ID string
		email   string
	}{
		{"duplicate auth0 id", "auth0|existing", "other@example.com"},
		{"duplicate email", "auth0|newcomer", "existing@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDB(t)
			createTestUser(t, db, models.RoleSpecifier, "existing")

			useMockAuth0(t, map[string]*services.Auth0UserInfo{
				"token-dup": {Sub: tt.auth0ID, Email: tt.email, Name: "Second User"},
			})

			router := setupTestRouter()
			router.POST("/users", mockAuthMiddleware(tt.auth0ID, models.RoleSpecifier, "token-dup"), CreateUser)

			w := performRequest(router, http.MethodPost, "/users", nil)
			assert.Equal(t, http.StatusConflict, w.Code)
			assert.Equal(t, "USER_EXISTS", errorCode(t, w))
		})
	}
}

func TestGetMyProfile(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, models.RoleFactory, "fabrica")

	router := routerAs(user)
	router.GET("/users/me", GetMyProfile)
	w := performRequest(router, http.MethodGet, "/users/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	data := responseData(t, w)
	assert.Equal(t, user.Email, data["email"])
	assert.Equal(t, models.RoleFactory, data["role"])

	stranger := setupTestRouter()
	stranger.GET("/users/me", mockAuthMiddleware("auth0|nobody", "", ""), GetMyProfile)
	w = performRequest(stranger, http.MethodGet, "/users/me", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "USER_NOT_FOUND", errorCode(t, w))
}

func TestUpdateMyProfile(t *testing.T) {
	db := setupTestDB(t)
	user := createTestUser(t, db, models.RoleSpecifier, "arquiteta")
	createTestUser(t, db, models.RoleSpecifier, "colega")

	router := routerAs(user)
	router.PUT("/users/me", UpdateMyProfile)

	tests := []struct {
		name           string
		body           map[string]interface{}
		expectedStatus int
		expectedCode   string
		expectedName   string
		expectedEmail  string
	}{
		{
			name:           "partial update keeps email",
			body:           map[string]interface{}{"name": "Ana Souza"},
			expectedStatus: http.StatusOK,
			expectedName:   "Ana Souza",
			expectedEmail:  "arquiteta@example.com",
		},
		{
			name:           "full update",
			body:           map[string]interface{}{"name": "Ana S.", "email": "ana@example.com"},
			expectedStatus: http.StatusOK,
			expectedName:   "Ana S.",
			expectedEmail:  "ana@example.com",
		},
		{
			name:           "empty update returns current profile",
			body:           map[string]interface{}{},
			expectedStatus: http.StatusOK,
			expectedName:   "Ana S.",
			expectedEmail:  "ana@example.com",
		},
		{
			name:           "invalid email",
			body:           map[string]interface{}{"email": "not-an-email"},
			expectedStatus: http.StatusBadRequest,
			expectedCode:   "VALIDATION_ERROR",
		},
		{
			name:           "email taken by another user",
			body:           map[string]interface{}{"email": "colega@example.com"},
			expectedStatus: http.StatusConflict,
			expectedCode:   "EMAIL_EXISTS",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(router, http.MethodPut, "/users/me", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code, "Response body: %s", w.Body.String())
			if tt.expectedStatus == http.StatusOK {
				data := responseData(t, w)
				assert.Equal(t, tt.expectedName, data["name"])
				assert.Equal(t, tt.expectedEmail, data["email"])
			} else {
				assert.Equal(t, tt.expectedCode, errorCode(t, w))
			}
		})
	}
}
