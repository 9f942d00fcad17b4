// Package respond builds responses for route handlers: the thin
// action-result formatting layer between handler return values and the
// transport adapter.
package respond

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"

	"github.com/jcanyelles/mosaic/internal/domain"
)

// JSON marshals v into an application/json response.
func JSON(status int, v any) (*domain.Response, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode response: %w", err)
	}
	resp := &domain.Response{StatusCode: status, Body: body}
	resp.SetHeader("Content-Type", "application/json; charset=utf-8")
	return resp, nil
}

// Text builds a plain-text response.
func Text(status int, text string) *domain.Response {
	resp := &domain.Response{StatusCode: status, Body: []byte(text)}
	resp.SetHeader("Content-Type", "text/plain; charset=utf-8")
	return resp
}

// File builds a download response; the content type is derived from the
// file name's extension.
func File(name string, data []byte) *domain.Response {
	contentType := mime.TypeByExtension(filepath.Ext(name))
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	resp := &domain.Response{StatusCode: http.StatusOK, Body: data}
	resp.SetHeader("Content-Type", contentType)
	resp.SetHeader("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	return resp
}

// Status builds an empty response carrying only a status code.
func Status(status int) *domain.Response {
	return &domain.Response{StatusCode: status}
}
