package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jcanyelles/mosaic/internal/application"
	"github.com/jcanyelles/mosaic/internal/domain"
	"github.com/jcanyelles/mosaic/internal/infrastructure/observability"
)

// GatewayHandler adapts the gin transport to a Gateway: it lifts the HTTP
// request into the transport-agnostic request shape, dispatches, and maps
// the routing error taxonomy back onto status codes.
type GatewayHandler struct {
	gateway *application.Gateway
	metrics observability.Recorder
}

func NewGatewayHandler(gateway *application.Gateway, metrics observability.Recorder) *GatewayHandler {
	if metrics == nil {
		metrics = observability.Noop{}
	}
	return &GatewayHandler{gateway: gateway, metrics: metrics}
}

func (h *GatewayHandler) Handle(c *gin.Context) {
	service := c.Param("service")
	c.Set("service_name", service)

	req := &domain.Request{
		Method:       c.Request.Method,
		Path:         c.Request.URL.Path,
		OriginalPath: c.Request.URL.Path,
		Params: map[string]string{
			"service": service,
			"rest":    c.Param("rest"),
		},
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header,
		Body:   c.Request.Body,
	}

	resp, err := h.gateway.Dispatch(c.Request.Context(), req)
	if err != nil {
		h.writeError(c, service, err)
		return
	}

	h.metrics.Incr("gateway.dispatch", map[string]string{"service": service, "outcome": "ok"})
	writeResponse(c, resp)
}

func (h *GatewayHandler) writeError(c *gin.Context, service string, err error) {
	var (
		notFound    *domain.RouteNotFoundError
		forbidden   *domain.ForbiddenError
		unavailable *domain.ServiceUnavailableError
		notAllowed  *domain.MethodNotAllowedError
	)

	switch {
	case errors.As(err, &notFound):
		h.metrics.Incr("gateway.dispatch", map[string]string{"service": service, "outcome": "not_found"})
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "route_not_found",
			"message": notFound.Error(),
		})
	case errors.As(err, &forbidden):
		h.metrics.Incr("gateway.dispatch", map[string]string{"service": service, "outcome": "forbidden"})
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "forbidden",
			"service": forbidden.Service,
		})
	case errors.As(err, &unavailable):
		h.metrics.Incr("gateway.dispatch", map[string]string{"service": service, "outcome": "unavailable"})
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "service_unavailable",
			"service": service,
		})
	case errors.As(err, &notAllowed):
		h.metrics.Incr("gateway.dispatch", map[string]string{"service": service, "outcome": "method_not_allowed"})
		c.JSON(http.StatusMethodNotAllowed, gin.H{
			"error":   "method_not_allowed",
			"message": notAllowed.Error(),
		})
	default:
		// an unrecognized handler error: log it, expose nothing
		h.metrics.Incr("gateway.dispatch", map[string]string{"service": service, "outcome": "error"})
		requestID, _ := c.Get("request_id")
		slog.Error("handler error",
			"service", service,
			"path", c.Request.URL.Path,
			"request_id", requestID,
			"error", err,
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "internal_error",
		})
	}
}

func writeResponse(c *gin.Context, resp *domain.Response) {
	status := resp.StatusCode
	if status == 0 {
		status = http.StatusOK
	}
	for key, values := range resp.Header {
		for _, v := range values {
			c.Writer.Header().Add(key, v)
		}
	}
	c.Data(status, c.Writer.Header().Get("Content-Type"), resp.Body)
}
