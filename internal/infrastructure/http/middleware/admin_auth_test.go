package middleware

import (
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jcanyelles/mosaic/internal/infrastructure/jwt"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupTestKeys(t *testing.T) *rsa.PrivateKey {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	return privateKey
}

func createTestJWTService(privateKey *rsa.PrivateKey) *jwt.Service {
	return jwt.NewServiceWithKeys(privateKey, &privateKey.PublicKey, "mosaic", 5*time.Minute)
}

func setupAuthRouter(jwtService *jwt.Service) *gin.Engine {
	router := gin.New()
	auth := NewAdminAuth(jwtService)
	router.GET("/internal/registry/services", auth.Authenticate(), func(c *gin.Context) {
		subject, _ := c.Get(ContextKeyAdminSubject)
		c.JSON(http.StatusOK, gin.H{"subject": subject})
	})
	return router
}

func TestAdminAuth_ValidToken(t *testing.T) {
	privateKey := setupTestKeys(t)
	jwtService := createTestJWTService(privateKey)
	router := setupAuthRouter(jwtService)

	token, err := jwtService.GenerateAdminToken("ops-cli")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/internal/registry/services", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ops-cli")
}

func TestAdminAuth_MissingHeader(t *testing.T) {
	privateKey := setupTestKeys(t)
	router := setupAuthRouter(createTestJWTService(privateKey))

	req := httptest.NewRequest(http.MethodGet, "/internal/registry/services", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_token")
}

func TestAdminAuth_MalformedHeader(t *testing.T) {
	privateKey := setupTestKeys(t)
	jwtService := createTestJWTService(privateKey)
	router := setupAuthRouter(jwtService)

	token, err := jwtService.GenerateAdminToken("ops-cli")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/internal/registry/services", nil)
	req.Header.Set("Authorization", token) // no Bearer prefix
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuth_TokenSignedByOtherKey(t *testing.T) {
	privateKey := setupTestKeys(t)
	otherKey := setupTestKeys(t)
	router := setupAuthRouter(createTestJWTService(privateKey))

	token, err := createTestJWTService(otherKey).GenerateAdminToken("ops-cli")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/internal/registry/services", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
