package contract_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"mini-apivore/internal/contract"
	"mini-apivore/internal/status"
)

const openapiYAML = `
openapi: 3.0.3
info: { title: Test API, version: "1.0.0" }
servers:
  - url: "https://{host}/api/{version}/"
    variables:
      host: { default: example.com }
      version: { default: v1 }
paths:
  /users/{id}:
    get:
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema: { $ref: "#/components/schemas/User" }
        "404": { description: missing }
        default:
          description: error
          content:
            application/problem+json:
              schema: { type: object }
    delete:
      responses:
        "204": { description: gone }
  /health:
    get:
      responses:
        "200": { description: ok }
components:
  schemas:
    User:
      type: object
      properties:
        id: { type: integer }
        name: { type: string }
      required: [id, name]
`

const swaggerYAML = `
swagger: "2.0"
info: { title: Legacy, version: "1" }
basePath: /legacy/
produces: [application/json]
paths:
  /pets:
    get:
      responses:
        "200":
          description: ok
          schema:
            type: array
            items: { $ref: "#/definitions/Pet" }
definitions:
  Pet:
    type: object
    properties:
      name: { type: string }
`

func mustLoad(t *testing.T, doc string) *contract.Store {
	t.Helper()
	s, err := contract.LoadFromBytes([]byte(doc), "test.yaml")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestStore_Lookups(t *testing.T) {
	s := mustLoad(t, openapiYAML)

	if got := s.BasePath(); got != "/api/v1" {
		t.Fatalf("BasePath = %q, want /api/v1", got)
	}
	if !s.HasPath("/users/{id}") || s.HasPath("/users/42") {
		t.Fatal("HasPath should match templates only")
	}
	if !s.HasMethod("/users/{id}", "get") || s.HasMethod("/users/{id}", "post") {
		t.Fatal("HasMethod mismatch")
	}
	if !s.HasStatus("/users/{id}", "get", status.Parse(200)) {
		t.Fatal("200 should be documented")
	}
	if s.HasStatus("/users/{id}", "get", status.Parse(500)) {
		t.Fatal("500 is not documented")
	}
	if !s.HasStatus("/users/{id}", "get", status.Parse("Default")) {
		t.Fatal("non-numeric keys match case-insensitively")
	}
	if diff := cmp.Diff([]string{"200", "404", "default"}, s.StatusCodes("/users/{id}", "GET")); diff != "" {
		t.Fatalf("StatusCodes (-want +got):\n%s", diff)
	}
	if s.Location() != "test.yaml" {
		t.Fatalf("Location = %q", s.Location())
	}
}

func TestStore_Schema(t *testing.T) {
	s := mustLoad(t, openapiYAML)

	f := s.Schema("/users/{id}", "get", status.Parse("200"))
	if f == nil {
		t.Fatal("expected schema fragment")
	}
	want := "#/paths/~1users~1{id}/get/responses/200/content/application~1json/schema"
	if f.Pointer != want {
		t.Fatalf("Pointer = %q, want %q", f.Pointer, want)
	}
	if f.Schema == nil || f.Schema.Value == nil || f.Schema.Value.Properties["name"] == nil {
		t.Fatalf("schema not resolved: %+v", f.Schema)
	}

	if f := s.Schema("/users/{id}", "get", status.Parse("default")); f == nil || f.MediaType != "application/problem+json" {
		t.Fatalf("default fragment = %+v", f)
	}
	if s.Schema("/users/{id}", "get", status.Parse(404)) != nil {
		t.Fatal("404 declares no body")
	}
	if s.Schema("/users/{id}", "delete", status.Parse(204)) != nil {
		t.Fatal("204 declares no body")
	}
	if s.Schema("/nope", "get", status.Parse(200)) != nil {
		t.Fatal("unknown path has no schema")
	}
}

func TestStore_Swagger2(t *testing.T) {
	s := mustLoad(t, swaggerYAML)

	if s.BasePath() != "/legacy" {
		t.Fatalf("BasePath = %q", s.BasePath())
	}
	if s.Version() != "2.0" {
		t.Fatalf("Version = %q", s.Version())
	}
	f := s.Schema("/pets", "get", status.Parse(200))
	if f == nil || f.Schema == nil || f.Schema.Value == nil {
		t.Fatalf("expected converted schema, got %+v", f)
	}
	if f.Schema.Value.Items == nil || f.Schema.Value.Items.Value == nil {
		t.Fatal("array items should be resolved")
	}
}

func TestStore_Triples(t *testing.T) {
	s := mustLoad(t, openapiYAML)
	want := []contract.Triple{
		{Path: "/health", Method: "get", Status: "200"},
		{Path: "/users/{id}", Method: "delete", Status: "204"},
		{Path: "/users/{id}", Method: "get", Status: "200"},
		{Path: "/users/{id}", Method: "get", Status: "404"},
		{Path: "/users/{id}", Method: "get", Status: "default"},
	}
	if diff := cmp.Diff(want, s.Triples()); diff != "" {
		t.Fatalf("Triples (-want +got):\n%s", diff)
	}
}

func TestLoad_FromFile(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "api.yaml")
	if err := os.WriteFile(fp, []byte(openapiYAML), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s, err := contract.Load(fp)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if s.Location() != fp {
		t.Fatalf("Location = %q, want %q", s.Location(), fp)
	}
	if _, err := contract.Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoad_StrictRejectsInvalid(t *testing.T) {
	bad := `
openapi: 3.0.3
info: { title: Bad }
paths: {}
`
	if _, err := contract.LoadFromBytes([]byte(bad), "bad.yaml"); err != nil {
		t.Fatalf("lenient load should accept: %v", err)
	}
	if _, err := contract.LoadFromBytes([]byte(bad), "bad.yaml", contract.Strict()); err == nil {
		t.Fatal("strict load should reject a document without info.version")
	}
}
