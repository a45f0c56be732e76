package schema

import (
	"errors"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"mini-apivore/internal/contract"
)

// OpenAPI validates with kin-openapi's own schema visitor, which understands
// OpenAPI-only keywords such as nullable.
type OpenAPI struct{}

func (OpenAPI) Validate(value any, frag *contract.Fragment) []string {
	if frag == nil || frag.Schema == nil {
		return nil
	}
	if frag.Schema.Value == nil {
		return []string{"The schema at " + frag.Pointer + " is unresolved (" + frag.Schema.Ref + ")"}
	}
	err := frag.Schema.Value.VisitJSON(value, openapi3.MultiErrors())
	if err == nil {
		return nil
	}
	var out []string
	for _, e := range flatten(err) {
		var se *openapi3.SchemaError
		if errors.As(e, &se) {
			ptr := strings.Join(se.JSONPointer(), "/")
			if ptr != "" {
				ptr = "/" + ptr
			}
			out = append(out, violation(ptr, se.Reason, frag.Pointer))
			continue
		}
		out = append(out, violation("", e.Error(), frag.Pointer))
	}
	return out
}

func flatten(err error) []error {
	var me openapi3.MultiError
	if errors.As(err, &me) {
		var out []error
		for _, e := range me {
			out = append(out, flatten(e)...)
		}
		return out
	}
	return []error{err}
}
