package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jcanyelles/mosaic/internal/application"
)

// AdminHandler exposes the registry's operational surface: introspection,
// allow-list replacement and the reload trigger.
type AdminHandler struct {
	registry   *application.Registry
	controller *application.ReloadController
	providers  map[string]application.Provider
}

func NewAdminHandler(registry *application.Registry, providers map[string]application.Provider) *AdminHandler {
	return &AdminHandler{
		registry:   registry,
		controller: application.NewReloadController(registry),
		providers:  providers,
	}
}

func (h *AdminHandler) ListServices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"services": h.registry.Services(),
	})
}

type accessRequest struct {
	Services []string `json:"services"`
}

// SetAccess replaces the allow-list for a gateway key.
func (h *AdminHandler) SetAccess(c *gin.Context) {
	key := c.Param("key")

	var req accessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "invalid_request",
			"message": err.Error(),
		})
		return
	}

	h.registry.SetAccess(key, req.Services...)
	c.JSON(http.StatusOK, gin.H{
		"key":      key,
		"services": h.registry.Access(key),
	})
}

// Reload runs the dispose/accept cycle for one service. Dispose always
// runs; accept only when a provider for the name is wired into the binary.
func (h *AdminHandler) Reload(c *gin.Context) {
	name := c.Param("name")
	ctx := c.Request.Context()

	if err := h.controller.Dispose(ctx, name); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "reload_failed",
			"message": err.Error(),
		})
		return
	}

	provider, ok := h.providers[name]
	if !ok {
		c.JSON(http.StatusOK, gin.H{
			"service":  name,
			"disposed": true,
			"accepted": false,
		})
		return
	}

	if _, err := h.controller.Accept(ctx, provider()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "reload_failed",
			"message": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"service":  name,
		"disposed": true,
		"accepted": true,
	})
}
