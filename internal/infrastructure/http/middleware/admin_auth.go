package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jcanyelles/mosaic/internal/infrastructure/jwt"
)

const ContextKeyAdminSubject = "admin_subject"

// AdminAuth guards the registry admin surface (allow-list edits, reload
// triggers) behind an RS256 bearer token.
type AdminAuth struct {
	jwtService *jwt.Service
}

func NewAdminAuth(jwtService *jwt.Service) *AdminAuth {
	return &AdminAuth{jwtService: jwtService}
}

func (m *AdminAuth) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid_token",
			})
			return
		}

		subject, err := m.jwtService.ValidateAdminToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "invalid_token",
			})
			return
		}

		c.Set(ContextKeyAdminSubject, subject)
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
