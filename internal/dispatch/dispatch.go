// Package dispatch sends a checked request to the API under test.
package dispatch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"mini-apivore/internal/pathexpand"
)

// ErrTransport is matched by every *TransportError.
var ErrTransport = errors.New("transport failure")

// TransportError wraps a failure to obtain a response at all.
type TransportError struct {
	Verb string
	URL  string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", strings.ToUpper(e.Verb), e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func (e *TransportError) Is(target error) bool { return target == ErrTransport }

// Response is what the checker inspects after dispatch.
type Response struct {
	Status int
	Body   string
	Header http.Header
}

// Dispatcher executes verb against path with the given payload and headers.
type Dispatcher interface {
	Dispatch(ctx context.Context, verb, path string, data, headers map[string]any) (*Response, error)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, verb, path string, data, headers map[string]any) (*Response, error)

func (f DispatcherFunc) Dispatch(ctx context.Context, verb, path string, data, headers map[string]any) (*Response, error) {
	return f(ctx, verb, path, data, headers)
}

// queryVerbs carry their data in the query string rather than a body.
var queryVerbs = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

// NewRequest builds the outgoing request for target (an absolute URL or a path).
func NewRequest(ctx context.Context, verb, target string, data, headers map[string]any) (*http.Request, error) {
	method := strings.ToUpper(verb)

	var body io.Reader
	if len(data) > 0 {
		if queryVerbs[method] {
			sep := "?"
			if strings.Contains(target, "?") {
				sep = "&"
			}
			target += sep + pathexpand.RenderQuery(data)
		} else {
			buf, err := json.Marshal(data)
			if err != nil {
				return nil, fmt.Errorf("json marshal body: %w", err)
			}
			body = bytes.NewReader(buf)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range headers {
		req.Header.Set(k, fmt.Sprint(v))
	}
	return req, nil
}
