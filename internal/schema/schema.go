// Package schema validates decoded JSON response bodies against contract schema fragments.
//
// Violations read "The property '#<instance pointer>' <reason> in schema <fragment pointer>".
package schema

import (
	"fmt"
	"strings"

	"mini-apivore/internal/contract"
)

// Engine names accepted by New.
const (
	EngineJSONSchema = "jsonschema"
	EngineOpenAPI    = "openapi"
)

// Validator returns zero or more violation descriptions; none means valid.
type Validator interface {
	Validate(value any, frag *contract.Fragment) []string
}

// New builds the named engine for documents held by store.
func New(engine string, store *contract.Store) (Validator, error) {
	switch strings.ToLower(engine) {
	case "", EngineJSONSchema:
		return NewJSONSchema(store.Doc()), nil
	case EngineOpenAPI:
		return OpenAPI{}, nil
	default:
		return nil, fmt.Errorf("unknown schema engine %q (want %s or %s)", engine, EngineJSONSchema, EngineOpenAPI)
	}
}

func violation(instance, reason, pointer string) string {
	return fmt.Sprintf("The property '#%s' %s in schema %s", instance, reason, pointer)
}
