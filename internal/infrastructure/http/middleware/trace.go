package middleware

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jcanyelles/mosaic/internal/infrastructure/tracing"
)

type TraceContext struct {
	TraceID  string
	SpanID   string
	ParentID string
	Flags    string
	State    string
}

// TraceProvider extracts and injects trace context at the HTTP boundary.
type TraceProvider interface {
	Extract(c *gin.Context) *TraceContext
	Inject(c *gin.Context, tc *TraceContext)
}

func Trace(provider TraceProvider, exporter tracing.SpanExporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		tc := provider.Extract(c)
		if tc.TraceID == "" {
			tc.TraceID = randomHex(16)
		}
		tc.ParentID = tc.SpanID
		tc.SpanID = randomHex(8)
		if tc.Flags == "" {
			tc.Flags = "01"
		}

		c.Set("trace_id", tc.TraceID)
		c.Set("span_id", tc.SpanID)
		provider.Inject(c, tc)

		c.Next()

		attrs := map[string]string{
			"http.method":      c.Request.Method,
			"http.url":         c.Request.URL.String(),
			"http.status_code": fmt.Sprintf("%d", c.Writer.Status()),
			"http.route":       c.FullPath(),
			"net.peer.ip":      c.ClientIP(),
		}
		if service, exists := c.Get("service_name"); exists {
			attrs["mosaic.service"] = fmt.Sprintf("%v", service)
		}

		exporter.Export(context.Background(), tracing.SpanData{
			TraceID:      tc.TraceID,
			SpanID:       tc.SpanID,
			ParentSpanID: tc.ParentID,
			Name:         fmt.Sprintf("%s %s", c.Request.Method, c.FullPath()),
			Kind:         tracing.SpanKindServer,
			StartTime:    start,
			EndTime:      time.Now(),
			StatusCode:   c.Writer.Status(),
			Attributes:   attrs,
		})
	}
}

func randomHex(n int) string {
	b := make([]byte, n)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
