package controllers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fabricaconecta/parceria-api/config"
	"github.com/fabricaconecta/parceria-api/middleware"
	"github.com/fabricaconecta/parceria-api/models"
	"github.com/fabricaconecta/parceria-api/services"
	"github.com/fabricaconecta/parceria-api/utils"
)

// setupTestDB opens a migrated in-memory database and installs it as the global DB
func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	// one connection, or every new one sees an empty in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	if err := models.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	config.SetDB(db)
	return db
}

func setupTestRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	_ = utils.RegisterBindingValidators()
	router := gin.New()
	return router
}

// setupMockAuth0Server creates a mock HTTP server that simulates Auth0's /userinfo endpoint
func setupMockAuth0Server(userInfoMap map[string]*services.Auth0UserInfo) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/userinfo" {
			w.WriteHeader(http.StatusNotFound)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if len(authHeader) < 7 {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		userInfo, exists := userInfoMap[authHeader[7:]]
		if !exists {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(userInfo)
	}))
}

// mockAuthMiddleware sets up the context exactly as EnsureValidToken does
func mockAuthMiddleware(auth0ID, role, accessToken string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set("user_id", auth0ID)
		c.Set("access_token", accessToken)
		c.Set("validated_claims", &validator.ValidatedClaims{
			RegisteredClaims: validator.RegisteredClaims{Subject: auth0ID},
			CustomClaims:     &middleware.CustomClaims{Role: role},
		})
		c.Next()
	}
}

// routerAs returns a router whose requests are authenticated as user
func routerAs(user models.User) *gin.Engine {
	router := setupTestRouter()
	router.Use(mockAuthMiddleware(user.Auth0ID, user.Role, "token-"+user.Auth0ID))
	return router
}

func createTestUser(t *testing.T, db *gorm.DB, role, name string) models.User {
	user := models.User{
		Auth0ID: "auth0|" + name,
		Name:    name,
		Email:   fmt.Sprintf("%s@example.com", name),
		Role:    role,
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func validApplicationBody() map[string]interface{} {
	return map[string]interface{}{
		"tipo_pessoa":     models.PessoaJuridica,
		"documento":       "11.222.333/0001-81",
		"razao_social":    "Projetos Silva LTDA",
		"modos_logistica": []string{"correios"},
		"estados_atuacao": []string{"SP", "RJ"},
		"redes_sociais":   map[string]string{"instagram": "@projetossilva"},
		"endereco": map[string]string{
			"cep":        "01310-100",
			"logradouro": "Avenida Paulista",
			"numero":     "1000",
			"bairro":     "Bela Vista",
			"cidade":     "São Paulo",
			"estado":     "SP",
		},
	}
}

// performRequest sends body as JSON (nil for none) and returns the recorder
func performRequest(router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeResponse(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return response
}

func responseData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	response := decodeResponse(t, w)
	require.True(t, response["success"].(bool), "body: %s", w.Body.String())
	return response["data"].(map[string]interface{})
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	response := decodeResponse(t, w)
	require.False(t, response["success"].(bool), "body: %s", w.Body.String())
	return response["error"].(map[string]interface{})["code"].(string)
}
