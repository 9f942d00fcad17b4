package middleware

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	HeaderTraceparent = "Traceparent"
	HeaderTracestate  = "Tracestate"
)

var traceparentRegex = regexp.MustCompile(`^00-([0-9a-f]{32})-([0-9a-f]{16})-([0-9a-f]{2})$`)

var (
	zeroTraceID = strings.Repeat("0", 32)
	zeroSpanID  = strings.Repeat("0", 16)
)

// W3CTraceProvider speaks the W3C trace-context header pair.
type W3CTraceProvider struct{}

func NewW3CTraceProvider() *W3CTraceProvider {
	return &W3CTraceProvider{}
}

func (w *W3CTraceProvider) Extract(c *gin.Context) *TraceContext {
	tc := &TraceContext{}

	if traceparent := c.GetHeader(HeaderTraceparent); traceparent != "" {
		matches := traceparentRegex.FindStringSubmatch(traceparent)
		if len(matches) == 4 && matches[1] != zeroTraceID && matches[2] != zeroSpanID {
			tc.TraceID = matches[1]
			tc.SpanID = matches[2]
			tc.Flags = matches[3]
		}
	}

	if tracestate := c.GetHeader(HeaderTracestate); tracestate != "" {
		tc.State = tracestate
	}

	return tc
}

func (w *W3CTraceProvider) Inject(c *gin.Context, tc *TraceContext) {
	c.Header(HeaderTraceparent, fmt.Sprintf("00-%s-%s-%s", tc.TraceID, tc.SpanID, tc.Flags))
	if tc.State != "" {
		c.Header(HeaderTracestate, tc.State)
	}
}
