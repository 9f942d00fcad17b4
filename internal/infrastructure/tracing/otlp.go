package tracing

import (
	"bytes"
	"context"
	"encoding/hex"
	"log/slog"
	"net/http"
	"sync"
	"time"

	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"
	"google.golang.org/protobuf/proto"
)

const (
	spanBufferSize = 1024
	spanBatchSize  = 64
	flushInterval  = 5 * time.Second
)

// OTLPExporter ships spans to an OTLP/HTTP collector in batches, on a
// background goroutine so request handling never blocks on the collector.
type OTLPExporter struct {
	endpoint    string
	serviceName string
	client      *http.Client
	spans       chan SpanData
	done        chan struct{}
	wg          sync.WaitGroup
}

func NewOTLPExporter(endpoint, serviceName string) *OTLPExporter {
	e := &OTLPExporter{
		endpoint:    endpoint,
		serviceName: serviceName,
		client:      &http.Client{Timeout: 10 * time.Second},
		spans:       make(chan SpanData, spanBufferSize),
		done:        make(chan struct{}),
	}
	e.wg.Add(1)
	go e.run()
	return e
}

// Export enqueues a span. Spans are dropped, not blocked on, when the
// buffer is full.
func (e *OTLPExporter) Export(_ context.Context, span SpanData) {
	select {
	case e.spans <- span:
	default:
		slog.Warn("otlp exporter: span dropped, buffer full")
	}
}

func (e *OTLPExporter) Shutdown(ctx context.Context) error {
	close(e.done)

	finished := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *OTLPExporter) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]SpanData, 0, spanBatchSize)
	flush := func() {
		if len(batch) > 0 {
			e.send(batch)
			batch = batch[:0]
		}
	}

	for {
		select {
		case span := <-e.spans:
			batch = append(batch, span)
			if len(batch) >= spanBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-e.done:
			for {
				select {
				case span := <-e.spans:
					batch = append(batch, span)
					if len(batch) >= spanBatchSize {
						flush()
					}
				default:
					flush()
					return
				}
			}
		}
	}
}

func (e *OTLPExporter) send(batch []SpanData) {
	body, err := proto.Marshal(e.tracesData(batch))
	if err != nil {
		slog.Error("otlp exporter: marshal failed", slog.String("error", err.Error()))
		return
	}

	req, err := http.NewRequest(http.MethodPost, e.endpoint+"/v1/traces", bytes.NewReader(body))
	if err != nil {
		slog.Error("otlp exporter: request build failed", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/x-protobuf")

	resp, err := e.client.Do(req)
	if err != nil {
		slog.Error("otlp exporter: send failed",
			slog.String("error", err.Error()),
			slog.Int("count", len(batch)),
		)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		slog.Warn("otlp exporter: unexpected status",
			slog.Int("status", resp.StatusCode),
			slog.Int("count", len(batch)),
		)
	}
}

func (e *OTLPExporter) tracesData(batch []SpanData) *tracepb.TracesData {
	spans := make([]*tracepb.Span, 0, len(batch))
	for _, s := range batch {
		spans = append(spans, toProtoSpan(s))
	}

	return &tracepb.TracesData{
		ResourceSpans: []*tracepb.ResourceSpans{{
			Resource: &resourcepb.Resource{
				Attributes: []*commonpb.KeyValue{stringAttr("service.name", e.serviceName)},
			},
			ScopeSpans: []*tracepb.ScopeSpans{{
				Scope: &commonpb.InstrumentationScope{Name: "mosaic"},
				Spans: spans,
			}},
		}},
	}
}

func toProtoSpan(s SpanData) *tracepb.Span {
	traceID, _ := hex.DecodeString(s.TraceID)
	spanID, _ := hex.DecodeString(s.SpanID)

	span := &tracepb.Span{
		TraceId:           traceID,
		SpanId:            spanID,
		Name:              s.Name,
		Kind:              toProtoKind(s.Kind),
		StartTimeUnixNano: uint64(s.StartTime.UnixNano()),
		EndTimeUnixNano:   uint64(s.EndTime.UnixNano()),
		Status:            toProtoStatus(s.StatusCode),
	}

	if s.ParentSpanID != "" {
		parentID, _ := hex.DecodeString(s.ParentSpanID)
		span.ParentSpanId = parentID
	}
	for k, v := range s.Attributes {
		span.Attributes = append(span.Attributes, stringAttr(k, v))
	}
	return span
}

func stringAttr(key, value string) *commonpb.KeyValue {
	return &commonpb.KeyValue{
		Key:   key,
		Value: &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: value}},
	}
}

func toProtoKind(k SpanKind) tracepb.Span_SpanKind {
	switch k {
	case SpanKindServer:
		return tracepb.Span_SPAN_KIND_SERVER
	case SpanKindClient:
		return tracepb.Span_SPAN_KIND_CLIENT
	case SpanKindInternal:
		return tracepb.Span_SPAN_KIND_INTERNAL
	default:
		return tracepb.Span_SPAN_KIND_UNSPECIFIED
	}
}

func toProtoStatus(httpStatus int) *tracepb.Status {
	if httpStatus >= 500 {
		return &tracepb.Status{Code: tracepb.Status_STATUS_CODE_ERROR}
	}
	return &tracepb.Status{Code: tracepb.Status_STATUS_CODE_OK}
}
