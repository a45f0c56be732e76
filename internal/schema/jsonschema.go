package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"mini-apivore/internal/contract"
)

const resourceURL = "contract.json"

// JSONSchema validates with santhosh-tekuri/jsonschema (draft 4). Each fragment
// is compiled next to the document's components so local $refs resolve, and
// compiled schemas are cached by pointer.
type JSONSchema struct {
	components    json.RawMessage
	componentsErr error

	mu    sync.Mutex
	cache map[string]*jsonschema.Schema
}

func NewJSONSchema(doc *openapi3.T) *JSONSchema {
	v := &JSONSchema{cache: map[string]*jsonschema.Schema{}}
	v.components = json.RawMessage("null")
	if doc != nil {
		b, err := json.Marshal(doc.Components)
		if err == nil {
			b, err = draft4(b)
		}
		if err != nil {
			v.componentsErr = err
		} else {
			v.components = b
		}
	}
	return v
}

func (v *JSONSchema) Validate(value any, frag *contract.Fragment) []string {
	if frag == nil || frag.Schema == nil {
		return nil
	}
	sch, err := v.compile(frag)
	if err != nil {
		return []string{fmt.Sprintf("The schema at %s could not be compiled: %v", frag.Pointer, err)}
	}
	err = sch.Validate(value)
	if err == nil {
		return nil
	}
	verr, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []string{violation("", err.Error(), frag.Pointer)}
	}
	var out []string
	for _, leaf := range leaves(verr) {
		out = append(out, violation(leaf.InstanceLocation, leaf.Message, frag.Pointer))
	}
	return out
}

func (v *JSONSchema) compile(frag *contract.Fragment) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if s, ok := v.cache[frag.Pointer]; ok {
		return s, nil
	}
	if v.componentsErr != nil {
		return nil, fmt.Errorf("marshal components: %w", v.componentsErr)
	}

	body, err := json.Marshal(frag.Schema)
	if err == nil {
		body, err = draft4(body)
	}
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	res, err := json.Marshal(map[string]json.RawMessage{
		"components": v.components,
		"fragment":   body,
	})
	if err != nil {
		return nil, err
	}

	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft4
	if err := c.AddResource(resourceURL, bytes.NewReader(res)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := c.Compile(resourceURL + "#/fragment")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.cache[frag.Pointer] = s
	return s, nil
}

// draft4 rewrites OpenAPI 3.0 "nullable: true" into a type list that also
// admits null, the only OpenAPI-only keyword that changes what validates.
func draft4(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return json.Marshal(nullable(v))
}

func nullable(v any) any {
	switch x := v.(type) {
	case map[string]any:
		for k, e := range x {
			x[k] = nullable(e)
		}
		if x["nullable"] != true {
			return x
		}
		delete(x, "nullable")
		if t, ok := x["type"].(string); ok {
			x["type"] = []any{t, "null"}
		}
		if enum, ok := x["enum"].([]any); ok {
			x["enum"] = append(enum, nil)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = nullable(e)
		}
		return x
	default:
		return v
	}
}

// leaves flattens the cause tree down to the errors that carry the detail.
func leaves(e *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(e.Causes) == 0 {
		return []*jsonschema.ValidationError{e}
	}
	var out []*jsonschema.ValidationError
	for _, c := range e.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
