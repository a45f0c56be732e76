package dispatch

import (
	"context"
	"net/http"
	"net/http/httptest"
)

// Handler dispatches in-process to an http.Handler, without a network hop.
type Handler struct {
	h http.Handler
}

func NewHandler(h http.Handler) *Handler { return &Handler{h: h} }

func (d *Handler) Dispatch(ctx context.Context, verb, path string, data, headers map[string]any) (*Response, error) {
	req, err := NewRequest(ctx, verb, path, data, headers)
	if err != nil {
		return nil, &TransportError{Verb: verb, URL: path, Err: err}
	}
	rec := httptest.NewRecorder()
	d.h.ServeHTTP(rec, req)
	return &Response{Status: rec.Code, Body: rec.Body.String(), Header: rec.Header()}, nil
}
