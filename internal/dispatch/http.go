package dispatch

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds one request when the HTTP dispatcher has no timeout set.
const DefaultTimeout = 10 * time.Second

// HTTP dispatches to a live server rooted at BaseURL.
type HTTP struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
}

func NewHTTP(baseURL string) *HTTP {
	tr := &http.Transport{
		MaxIdleConns:        128,
		MaxIdleConnsPerHost: 64,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}
	return &HTTP{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Transport: tr},
		timeout:    DefaultTimeout,
	}
}

func (h *HTTP) WithClient(c *http.Client) *HTTP { h.httpClient = c; return h }

func (h *HTTP) WithTimeout(d time.Duration) *HTTP {
	if d <= 0 {
		d = DefaultTimeout
	}
	h.timeout = d
	return h
}

func (h *HTTP) Dispatch(ctx context.Context, verb, path string, data, headers map[string]any) (*Response, error) {
	cctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	url := h.baseURL + path
	req, err := NewRequest(cctx, verb, url, data, headers)
	if err != nil {
		return nil, &TransportError{Verb: verb, URL: url, Err: err}
	}

	resp, err := h.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Verb: verb, URL: req.URL.String(), Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Verb: verb, URL: req.URL.String(), Err: err}
	}
	return &Response{Status: resp.StatusCode, Body: string(b), Header: resp.Header}, nil
}
