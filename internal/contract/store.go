package contract

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"

	"mini-apivore/internal/status"
)

// Store answers route, method, status and schema questions about one contract document.
type Store struct {
	doc      *openapi3.T
	basePath string
	location string
	version  string
}

// Fragment is the response schema declared for one (path, method, status) triple.
type Fragment struct {
	Path      string
	Method    string
	Status    string
	MediaType string
	// Pointer locates the schema inside the document, e.g.
	// #/paths/~1users~1{id}/get/responses/200/content/application~1json/schema
	Pointer string
	Schema  *openapi3.SchemaRef
}

type loadConfig struct {
	strict bool
}

// LoadOption tunes document loading.
type LoadOption func(*loadConfig)

// Strict rejects documents that kin-openapi's own validation refuses.
func Strict() LoadOption { return func(c *loadConfig) { c.strict = true } }

// Load reads an OpenAPI 3.x or Swagger 2.0 document (YAML or JSON) from path.
func Load(path string, opts ...LoadOption) (*Store, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	return LoadFromBytes(b, path, opts...)
}

// LoadFromBytes parses a document; location labels it in diagnostics.
func LoadFromBytes(b []byte, location string, opts ...LoadOption) (*Store, error) {
	cfg := loadConfig{}
	for _, o := range opts {
		o(&cfg)
	}

	var head struct {
		Swagger  string `yaml:"swagger"`
		OpenAPI  string `yaml:"openapi"`
		BasePath string `yaml:"basePath"`
	}
	if err := yaml.Unmarshal(b, &head); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}

	s := &Store{location: location}
	if head.Swagger != "" {
		doc, err := loadV2(b)
		if err != nil {
			return nil, err
		}
		s.doc = doc
		s.basePath = head.BasePath
		s.version = head.Swagger
	} else {
		loader := &openapi3.Loader{IsExternalRefsAllowed: true}
		doc, err := loader.LoadFromData(b)
		if err != nil {
			return nil, fmt.Errorf("load: %w", err)
		}
		s.doc = doc
		s.basePath = serverBasePath(doc)
		s.version = head.OpenAPI
	}
	s.basePath = strings.TrimRight(s.basePath, "/")

	if cfg.strict {
		if err := s.doc.Validate(context.Background()); err != nil {
			return nil, fmt.Errorf("validate document: %w", err)
		}
	}
	return s, nil
}

func loadV2(b []byte) (*openapi3.T, error) {
	var raw any
	if err := yaml.Unmarshal(b, &raw); err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	js, err := json.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("load: swagger 2.0 to json: %w", err)
	}
	var doc2 openapi2.T
	if err := json.Unmarshal(js, &doc2); err != nil {
		return nil, fmt.Errorf("load: swagger 2.0: %w", err)
	}
	doc3, err := openapi2conv.ToV3(&doc2)
	if err != nil {
		return nil, fmt.Errorf("convert swagger 2.0: %w", err)
	}
	if err := openapi3.NewLoader().ResolveRefsIn(doc3, nil); err != nil {
		return nil, fmt.Errorf("resolve refs: %w", err)
	}
	return doc3, nil
}

// serverBasePath is the path component of the first server URL, with
// server variables replaced by their defaults.
func serverBasePath(doc *openapi3.T) string {
	if len(doc.Servers) == 0 || doc.Servers[0] == nil {
		return ""
	}
	srv := doc.Servers[0]
	raw := srv.URL
	for name, v := range srv.Variables {
		if v != nil {
			raw = strings.ReplaceAll(raw, "{"+name+"}", v.Default)
		}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Path
}

// Doc exposes the parsed document.
func (s *Store) Doc() *openapi3.T { return s.doc }

// Location is the label used in diagnostics (usually the file path).
func (s *Store) Location() string { return s.location }

// Version is the declared "swagger" or "openapi" version string.
func (s *Store) Version() string { return s.version }

// BasePath is prefixed to every path template before expansion.
func (s *Store) BasePath() string { return s.basePath }

func (s *Store) HasPath(path string) bool { return s.pathItem(path) != nil }

func (s *Store) HasMethod(path, verb string) bool { return s.operation(path, verb) != nil }

func (s *Store) HasStatus(path, verb string, st status.Expected) bool {
	_, ok := s.responseKey(path, verb, st)
	return ok
}

// StatusCodes lists the documented status keys for path+verb, sorted.
func (s *Store) StatusCodes(path, verb string) []string {
	op := s.operation(path, verb)
	if op == nil || op.Responses == nil {
		return nil
	}
	out := make([]string, 0, op.Responses.Len())
	for code := range op.Responses.Map() {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Schema returns the response body schema for the triple, or nil when none is declared.
// application/json wins; otherwise the first media type (by name) carrying a schema.
func (s *Store) Schema(path, verb string, st status.Expected) *Fragment {
	key, ok := s.responseKey(path, verb, st)
	if !ok {
		return nil
	}
	ref := s.operation(path, verb).Responses.Value(key)
	if ref == nil || ref.Value == nil || len(ref.Value.Content) == 0 {
		return nil
	}
	content := ref.Value.Content

	mime := ""
	if mt := content.Get("application/json"); mt != nil && mt.Schema != nil {
		mime = "application/json"
	} else {
		names := make([]string, 0, len(content))
		for name := range content {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if mt := content[name]; mt != nil && mt.Schema != nil {
				mime = name
				break
			}
		}
	}
	if mime == "" {
		return nil
	}

	method := strings.ToLower(verb)
	return &Fragment{
		Path:      path,
		Method:    method,
		Status:    key,
		MediaType: mime,
		Pointer:   "#/" + strings.Join([]string{"paths", escapePointer(path), method, "responses", key, "content", escapePointer(mime), "schema"}, "/"),
		Schema:    content[mime].Schema,
	}
}

// MarkExercised is a no-op; wrap the store in a Coverage to track it.
func (s *Store) MarkExercised(path, verb string, st status.Expected) {}

// Triples enumerates every documented (path, method, status), sorted.
func (s *Store) Triples() []Triple {
	var out []Triple
	if s.doc == nil || s.doc.Paths == nil {
		return out
	}
	for p, pi := range s.doc.Paths.Map() {
		if pi == nil {
			continue
		}
		for m, op := range pi.Operations() {
			if op == nil || op.Responses == nil {
				continue
			}
			for code := range op.Responses.Map() {
				out = append(out, Triple{Path: p, Method: strings.ToLower(m), Status: code})
			}
		}
	}
	sortTriples(out)
	return out
}

func (s *Store) pathItem(path string) *openapi3.PathItem {
	if s.doc == nil || s.doc.Paths == nil {
		return nil
	}
	return s.doc.Paths.Value(path)
}

func (s *Store) operation(path, verb string) *openapi3.Operation {
	pi := s.pathItem(path)
	if pi == nil {
		return nil
	}
	return pi.GetOperation(strings.ToUpper(verb))
}

// responseKey finds the document's key for st. Numeric keys match exactly,
// others ignore case so "Default" finds "default".
func (s *Store) responseKey(path, verb string, st status.Expected) (string, bool) {
	op := s.operation(path, verb)
	if op == nil || op.Responses == nil {
		return "", false
	}
	key := st.Key()
	if op.Responses.Value(key) != nil {
		return key, true
	}
	if st.IsInt() {
		return "", false
	}
	for code := range op.Responses.Map() {
		if strings.EqualFold(code, key) {
			return code, true
		}
	}
	return "", false
}

func escapePointer(s string) string {
	s = strings.ReplaceAll(s, "~", "~0")
	return strings.ReplaceAll(s, "/", "~1")
}
