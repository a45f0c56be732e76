package checker_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mini-apivore/internal/checker"
	"mini-apivore/internal/contract"
	"mini-apivore/internal/dispatch"
	"mini-apivore/internal/params"
	"mini-apivore/internal/pathexpand"
	"mini-apivore/internal/status"
)

// fakeStore documents a fixed set of triples; schemas exist where noted.
type fakeStore struct {
	base     string
	triples  map[[3]string]bool // path, verb, status
	schemas  map[[3]string]bool
	marked   [][3]string
	location string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		base:     "/api/v1",
		location: "fake.yaml",
		triples: map[[3]string]bool{
			{"/users/{id}", "get", "200"}:     true,
			{"/users/{id}", "get", "404"}:     true,
			{"/users/{id}", "get", "default"}: true,
			{"/users", "post", "201"}:         true,
			{"/status", "get", "200"}:         true,
		},
		schemas: map[[3]string]bool{
			{"/users/{id}", "get", "200"}:     true,
			{"/users/{id}", "get", "404"}:     true,
			{"/users/{id}", "get", "default"}: true,
		},
	}
}

func (s *fakeStore) Location() string { return s.location }
func (s *fakeStore) BasePath() string { return s.base }

func (s *fakeStore) HasPath(path string) bool {
	for k := range s.triples {
		if k[0] == path {
			return true
		}
	}
	return false
}

func (s *fakeStore) HasMethod(path, verb string) bool {
	for k := range s.triples {
		if k[0] == path && k[1] == verb {
			return true
		}
	}
	return false
}

func (s *fakeStore) key(path, verb string, st status.Expected) [3]string {
	return [3]string{path, verb, strings.ToLower(st.Key())}
}

func (s *fakeStore) HasStatus(path, verb string, st status.Expected) bool {
	return s.triples[s.key(path, verb, st)]
}

func (s *fakeStore) StatusCodes(path, verb string) []string {
	if path == "/users/{id}" && verb == "get" {
		return []string{"200", "404", "default"}
	}
	return nil
}

func (s *fakeStore) Schema(path, verb string, st status.Expected) *contract.Fragment {
	k := s.key(path, verb, st)
	if !s.schemas[k] {
		return nil
	}
	return &contract.Fragment{Path: path, Method: verb, Status: k[2], Pointer: "#/fake"}
}

func (s *fakeStore) MarkExercised(path, verb string, st status.Expected) {
	s.marked = append(s.marked, s.key(path, verb, st))
}

type fakeValidator struct {
	violations []string
	gotValue   any
	calls      int
}

func (v *fakeValidator) Validate(value any, frag *contract.Fragment) []string {
	v.calls++
	v.gotValue = value
	if frag == nil {
		return nil
	}
	return v.violations
}

type fakeDispatcher struct {
	resp  *dispatch.Response
	err   error
	calls []string
	data  map[string]any
	hdrs  map[string]any
}

func (d *fakeDispatcher) Dispatch(_ context.Context, verb, path string, data, headers map[string]any) (*dispatch.Response, error) {
	d.calls = append(d.calls, verb+" "+path)
	d.data, d.hdrs = data, headers
	return d.resp, d.err
}

func TestCheck_Passes(t *testing.T) {
	store := newFakeStore()
	v := &fakeValidator{}
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 200, Body: `{"id":42}`}}
	c := checker.New(store, v, d)

	res, err := c.Check(context.Background(), "GET", "/users/{id}", 200, params.New(map[string]any{
		"id":       42,
		"_data":    map[string]any{"expand": "posts"},
		"_headers": map[string]any{"Authorization": "Bearer t"},
	}))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Passed {
		t.Fatalf("expected pass, got %q", res.FailureMessage())
	}
	if diff := cmp.Diff([]string{"get /api/v1/users/42"}, d.calls); diff != "" {
		t.Fatalf("dispatch (-want +got):\n%s", diff)
	}
	if d.data["expand"] != "posts" || d.hdrs["Authorization"] != "Bearer t" {
		t.Fatalf("payload not forwarded: data=%v headers=%v", d.data, d.hdrs)
	}
	if res.Path != "/api/v1/users/42" || !res.Dispatched {
		t.Fatalf("result = %+v", res)
	}
	if diff := cmp.Diff(map[string]any{"id": float64(42)}, v.gotValue); diff != "" {
		t.Fatalf("validated value (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([][3]string{{"/users/{id}", "get", "200"}}, store.marked); diff != "" {
		t.Fatalf("coverage (-want +got):\n%s", diff)
	}
}

func TestCheck_PreflightFailures(t *testing.T) {
	tests := []struct {
		name     string
		verb     string
		path     string
		expected any
		want     string
	}{
		{"unknown path", "get", "/nope", 200,
			"Swagger doc: fake.yaml does not have a documented @path for /nope"},
		{"unknown method", "delete", "/users/{id}", 200,
			"Swagger doc: fake.yaml does not have a documented @path for delete /users/{id}"},
		{"unknown status", "get", "/users/{id}", "500",
			"Swagger doc: fake.yaml does not have a documented response code of 500 at @path get /users/{id}. " +
				"\n             Available response codes: [\"200\", \"404\", \"default\"]"},
		{"get without schema", "get", "/status", 200,
			"Swagger doc: fake.yaml missing response model for get request with /status for code 200"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newFakeStore()
			d := &fakeDispatcher{resp: &dispatch.Response{Status: 200}}
			c := checker.New(store, &fakeValidator{}, d)

			ok, err := c.CheckRoute(context.Background(), tt.verb, tt.path, tt.expected, nil)
			if err != nil {
				t.Fatalf("CheckRoute: %v", err)
			}
			if ok {
				t.Fatal("expected failure")
			}
			if diff := cmp.Diff(tt.want, c.FailureMessage()); diff != "" {
				t.Fatalf("message (-want +got):\n%s", diff)
			}
			if len(d.calls) != 0 {
				t.Fatalf("dispatch must not happen, got %v", d.calls)
			}
			if len(store.marked) != 0 {
				t.Fatalf("coverage must not be marked, got %v", store.marked)
			}
		})
	}
}

func TestCheck_NonGetWithoutSchemaPasses(t *testing.T) {
	store := newFakeStore()
	v := &fakeValidator{violations: []string{"never reported"}}
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 201, Body: `{"id":1}`}}

	res, err := checker.New(store, v, d).Check(context.Background(), "post", "/users", 201, nil)
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if !res.Passed {
		t.Fatalf("expected pass, got %q", res.FailureMessage())
	}
}

func TestCheck_StatusMismatchSkipsSchema(t *testing.T) {
	store := newFakeStore()
	v := &fakeValidator{violations: []string{"x"}}
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 500, Body: `{"error":"boom"}`}}

	res, err := checker.New(store, v, d).Check(context.Background(), "get", "/users/{id}", "200",
		params.New(map[string]any{"id": 1}))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := []string{
		"Path /users/{id} did not respond with expected status code. Expected 200 got 500",
		"\nResponse body:\n {\n  \"error\": \"boom\"\n}",
	}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}
	if v.calls != 0 {
		t.Fatalf("schema validation should be skipped, got %d calls", v.calls)
	}
	if len(store.marked) != 1 {
		t.Fatalf("coverage should be marked after dispatch, got %v", store.marked)
	}
}

func TestCheck_DefaultSentinel(t *testing.T) {
	for _, resp := range []struct {
		status int
		pass   bool
	}{{200, true}, {404, false}} {
		store := newFakeStore()
		d := &fakeDispatcher{resp: &dispatch.Response{Status: resp.status}}
		res, err := checker.New(store, &fakeValidator{}, d).Check(context.Background(), "get", "/users/{id}", "Default",
			params.New(map[string]any{"id": 1}))
		if err != nil {
			t.Fatalf("Check: %v", err)
		}
		if res.Passed != resp.pass {
			t.Fatalf("status %d: passed=%v, want %v (%s)", resp.status, res.Passed, resp.pass, res.FailureMessage())
		}
		if !resp.pass && !strings.Contains(res.FailureMessage(), "Expected Default got 404") {
			t.Fatalf("message = %q", res.FailureMessage())
		}
	}
}

func TestCheck_SchemaViolationsAreRewritten(t *testing.T) {
	store := newFakeStore()
	v := &fakeValidator{violations: []string{
		"The property '#/name' of type integer did not match the following type: string in schema #/fake",
		"The property '#/' did not contain a required property of 'email' in schema #/fake",
	}}
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 200, Body: `{"name":1}`}}

	res, err := checker.New(store, v, d).Check(context.Background(), "get", "/users/{id}", 200,
		params.New(map[string]any{"id": 9, "_query_string": "v=2"}))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := []string{
		"'/api/v1/users/9?v=2#/name' of type integer did not match the following type: string",
		"'/api/v1/users/9?v=2#/' did not contain a required property of 'email'",
		"\nResponse body:\n {\n  \"name\": 1\n}",
	}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}
}

func TestCheck_EmptyBodyValidatesNil(t *testing.T) {
	v := &fakeValidator{violations: []string{"The property '#/' expected object in schema #/fake"}}
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 200}}

	res, err := checker.New(newFakeStore(), v, d).Check(context.Background(), "get", "/users/{id}", 200,
		params.New(map[string]any{"id": 1}))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if v.gotValue != nil {
		t.Fatalf("empty body should validate as nil, got %v", v.gotValue)
	}
	if len(res.Diagnostics) != 1 {
		t.Fatalf("no body dump expected for empty body, got %q", res.Diagnostics)
	}
}

func TestCheck_InvalidJSONBody(t *testing.T) {
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 200, Body: "<html>"}}
	res, err := checker.New(newFakeStore(), &fakeValidator{}, d).Check(context.Background(), "get", "/users/{id}", 200,
		params.New(map[string]any{"id": 1}))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if res.Passed || len(res.Diagnostics) != 2 || res.Diagnostics[1] != "\nResponse body:\n <html>" {
		t.Fatalf("diagnostics = %q", res.Diagnostics)
	}
}

func TestCheck_MissingSubstitutionIsFatal(t *testing.T) {
	store := newFakeStore()
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 200}}
	c := checker.New(store, &fakeValidator{}, d)

	ok, err := c.CheckRoute(context.Background(), "get", "/users/{id}", 200, params.New(nil))
	if !errors.Is(err, pathexpand.ErrMissingSubstitution) {
		t.Fatalf("want ErrMissingSubstitution, got %v", err)
	}
	if ok {
		t.Fatal("fatal error must not report success")
	}
	if len(d.calls) != 0 {
		t.Fatalf("dispatch must not observe an unexpanded path, got %v", d.calls)
	}
}

func TestCheck_TransportErrorPropagates(t *testing.T) {
	boom := &dispatch.TransportError{Verb: "get", URL: "/x", Err: errors.New("connection refused")}
	d := &fakeDispatcher{err: boom}

	_, err := checker.New(newFakeStore(), &fakeValidator{}, d).Check(context.Background(), "get", "/users/{id}", 200,
		params.New(map[string]any{"id": 1}))
	if !errors.Is(err, dispatch.ErrTransport) {
		t.Fatalf("want transport error, got %v", err)
	}
}

func TestCheck_NilResponseIsTransportError(t *testing.T) {
	d := dispatch.DispatcherFunc(func(ctx context.Context, verb, path string, data, headers map[string]any) (*dispatch.Response, error) {
		return nil, nil
	})
	_, err := checker.New(newFakeStore(), &fakeValidator{}, d).Check(context.Background(), "get", "/users/{id}", 200,
		params.New(map[string]any{"id": 1}))
	var te *dispatch.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("want *TransportError, got %v", err)
	}
	if te.URL != "/api/v1/users/1" {
		t.Fatalf("url = %q", te.URL)
	}
}

func TestCheck_BodyDumpTrimsTrailingNewline(t *testing.T) {
	v := &fakeValidator{violations: []string{"The property '#/name' expected string in schema #/fake"}}
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 200, Body: "{\"name\":5}\n"}}

	res, err := checker.New(newFakeStore(), v, d).Check(context.Background(), "get", "/users/{id}", 200,
		params.New(map[string]any{"id": 1}))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	want := []string{
		"'/api/v1/users/1#/name' expected string",
		"\nResponse body:\n {\n  \"name\": 5\n}",
	}
	if diff := cmp.Diff(want, res.Diagnostics); diff != "" {
		t.Fatalf("diagnostics (-want +got):\n%s", diff)
	}
	if strings.HasSuffix(res.FailureMessage(), "\n") {
		t.Fatalf("failure message ends in newline: %q", res.FailureMessage())
	}
}

func TestCheck_StateResetBetweenCalls(t *testing.T) {
	store := newFakeStore()
	d := &fakeDispatcher{resp: &dispatch.Response{Status: 200, Body: `{}`}}
	c := checker.New(store, &fakeValidator{}, d)

	if ok, _ := c.CheckRoute(context.Background(), "get", "/nope", 200, nil); ok {
		t.Fatal("first call should fail")
	}
	if c.FailureMessage() == "" {
		t.Fatal("failure message expected")
	}
	ok, err := c.CheckRoute(context.Background(), "get", "/users/{id}", 200, params.New(map[string]any{"id": 1}))
	if err != nil || !ok {
		t.Fatalf("second call should pass: ok=%v err=%v msg=%q", ok, err, c.FailureMessage())
	}
	if c.FailureMessage() != "" {
		t.Fatalf("diagnostics leaked across calls: %q", c.FailureMessage())
	}
}
