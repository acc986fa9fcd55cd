package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/auth0/go-jwt-middleware/v2/validator"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/fabricaconecta/parceria-api/config"
	"github.com/fabricaconecta/parceria-api/middleware"
	"github.com/fabricaconecta/parceria-api/models"
)

const testUserHeader = "X-Test-User"

// headerAuth stands in for the JWT middleware: the caller's Auth0 id comes from a header
func headerAuth(c *gin.Context) {
	auth0ID := c.GetHeader(testUserHeader)
	if auth0ID == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"success": false,
			"error":   gin.H{"code": "INVALID_TOKEN", "message": "Failed to validate JWT."},
		})
		return
	}
	c.Set("user_id", auth0ID)
	c.Set("access_token", "mock-token")
	c.Set("validated_claims", &validator.ValidatedClaims{
		RegisteredClaims: validator.RegisteredClaims{Subject: auth0ID},
		CustomClaims:     &middleware.CustomClaims{},
	})
	c.Next()
}

func testConfig() *config.Config {
	return &config.Config{
		GoEnv:              "test",
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	}
}

// setupTestServer installs a migrated in-memory database and returns the full router
func setupTestServer(t *testing.T) (*gin.Engine, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, models.Migrate(db))

	original := config.GetDB()
	config.SetDB(db)
	t.Cleanup(func() { config.SetDB(original) })

	return setupRouter(testConfig(), headerAuth), db
}

type apiClient struct {
	t      *testing.T
	router *gin.Engine
	user   string
}

func (a apiClient) do(method, path string, body interface{}) (int, map[string]interface{}) {
	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if a.user != "" {
		req.Header.Set(testUserHeader, a.user)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var response map[string]interface{}
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &response), "body: %s", w.Body.String())
	return w.Code, response
}

func dataOf(response map[string]interface{}) map[string]interface{} {
	return response["data"].(map[string]interface{})
}

// TestHealthEndpointIntegration tests the /api/v1/health endpoint with full routing
func TestHealthEndpointIntegration(t *testing.T) {
	router, _ := setupTestServer(t)

	status, response := apiClient{t: t, router: router}.do(http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, response["success"])
	assert.Equal(t, "Parceria API is running", response["message"])
}

// TestHealthEndpointMethod tests that only GET is routed
func TestHealthEndpointMethod(t *testing.T) {
	router, _ := setupTestServer(t)

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		req := httptest.NewRequest(method, "/api/v1/health", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusNotFound, w.Code, "%s should not be allowed", method)
	}
}

func TestDatabaseStatusIntegration(t *testing.T) {
	router, _ := setupTestServer(t)

	status, response := apiClient{t: t, router: router}.do(http.MethodGet, "/api/v1/database/status", nil)
	require.Equal(t, http.StatusOK, status)
	tables := response["tables"].([]interface{})
	assert.Contains(t, tables, "orders")
	assert.Contains(t, tables, "connections")
	assert.Contains(t, tables, "commission_agreements")
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	router, _ := setupTestServer(t)
	anonymous := apiClient{t: t, router: router}

	status, _ := anonymous.do(http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = anonymous.do(http.MethodGet, "/api/v1/payment-methods", nil)
	assert.Equal(t, http.StatusOK, status, "the payment catalog is public")

	noProfile := apiClient{t: t, router: router, user: "auth0|ghost"}
	status, response := noProfile.do(http.MethodGet, "/api/v1/orders", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "USER_NOT_FOUND", response["error"].(map[string]interface{})["code"])
}

func TestCORSPreflight(t *testing.T) {
	router, _ := setupTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/orders", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
}

// TestPartnershipWorkflowIntegration walks a specifier and a factory from application to delivery
func TestPartnershipWorkflowIntegration(t *testing.T) {
	router, db := setupTestServer(t)

	specifier := models.User{Auth0ID: "auth0|arquiteta", Name: "Ana", Email: "ana@example.com", Role: models.RoleSpecifier}
	factory := models.User{Auth0ID: "auth0|fabrica", Name: "Fábrica", Email: "fabrica@example.com", Role: models.RoleFactory}
	require.NoError(t, db.Create(&specifier).Error)
	require.NoError(t, db.Create(&factory).Error)
	spec := apiClient{t: t, router: router, user: specifier.Auth0ID}
	fact := apiClient{t: t, router: router, user: factory.Auth0ID}

	status, response := spec.do(http.MethodPost, "/api/v1/connections", map[string]interface{}{
		"factory_id": factory.ID,
		"application_data": map[string]interface{}{
			"tipo_pessoa":     models.PessoaFisica,
			"documento":       "529.982.247-25",
			"modos_logistica": []string{"retirada"},
			"estados_atuacao": []string{"MG"},
			"endereco": map[string]string{
				"cep": "30130-000", "logradouro": "Avenida Afonso Pena", "numero": "10",
				"bairro": "Centro", "cidade": "Belo Horizonte", "estado": "MG",
			},
		},
	})
	require.Equal(t, http.StatusCreated, status, response)
	connPath := fmt.Sprintf("/api/v1/connections/%d", uint(dataOf(response)["id"].(float64)))

	status, response = fact.do(http.MethodPost, connPath+"/respond", map[string]interface{}{
		"decision": "approve", "authorized_regions": []string{"MG", "ES"},
	})
	require.Equal(t, http.StatusOK, status, response)
	connID := uint(dataOf(response)["id"].(float64))

	status, response = spec.do(http.MethodPost, connPath+"/commissions", map[string]interface{}{"percentual": 5})
	require.Equal(t, http.StatusCreated, status, response)
	agreementID := uint(dataOf(response)["id"].(float64))
	status, response = fact.do(http.MethodPost, fmt.Sprintf("/api/v1/commissions/%d/respond", agreementID),
		map[string]interface{}{"decision": "approve", "percentual_aprovado": 5})
	require.Equal(t, http.StatusOK, status, response)

	status, response = fact.do(http.MethodPost, "/api/v1/products", map[string]interface{}{"nome": "Sofá", "preco": 2000})
	require.Equal(t, http.StatusCreated, status, response)
	productID := dataOf(response)["id"]

	status, response = spec.do(http.MethodPost, "/api/v1/orders", map[string]interface{}{
		"connection_id":  connID,
		"cliente_nome":   "Carlos",
		"entrega_cidade": "Vitória",
		"entrega_estado": "ES",
		"items":          []map[string]interface{}{{"product_id": productID, "quantidade": 1}},
	})
	require.Equal(t, http.StatusCreated, status, response)
	orderPath := fmt.Sprintf("/api/v1/orders/%d", uint(dataOf(response)["id"].(float64)))

	status, response = spec.do(http.MethodPut, orderPath+"/payment", map[string]interface{}{"tipo_pagamento": models.PaymentFaturado})
	require.Equal(t, http.StatusOK, status, response)
	status, response = spec.do(http.MethodPost, orderPath+"/submit", nil)
	require.Equal(t, http.StatusOK, status, response)
	assert.Equal(t, 100.0, dataOf(response)["valor_comissao"])

	for _, step := range []string{"approve", "payment/confirm", "ship", "deliver"} {
		status, response = fact.do(http.MethodPost, orderPath+"/"+step, nil)
		require.Equal(t, http.StatusOK, status, "%s: %v", step, response)
	}
	assert.Equal(t, models.OrderEntregue, dataOf(response)["status"])

	status, response = fact.do(http.MethodGet, "/api/v1/orders/summary", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2000.0, dataOf(response)["realized_revenue"])
}
