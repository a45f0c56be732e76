package ir

import (
	"fmt"
	"strings"
)

// TestSuite is a list of route checks against one contract document.
type TestSuite struct {
	Name         string  `json:"name" yaml:"name"`
	OpenAPI      string  `json:"openapi,omitempty" yaml:"openapi,omitempty"`
	BaseURL      string  `json:"base_url,omitempty" yaml:"base_url,omitempty"`
	SchemaEngine string  `json:"schema_engine,omitempty" yaml:"schema_engine,omitempty"`
	TimeoutMs    int     `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	Setup        []Hook  `json:"setup,omitempty" yaml:"setup,omitempty"`
	Checks       []Check `json:"checks" yaml:"checks"`
}

// Check is one check_route call: verb, path template, expected status and params.
type Check struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Verb string `json:"verb" yaml:"verb"`
	Path string `json:"path" yaml:"path"`
	// Status is an integer, a digit string, or "default".
	Status any `json:"status" yaml:"status"`
	// Params holds path placeholders plus the reserved _data, _headers and _query_string keys.
	Params map[string]any `json:"params,omitempty" yaml:"params,omitempty"`
	Tags   []string       `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Hook is a process run before the checks; its JSON output contributes variables.
type Hook struct {
	Type      string            `json:"type" yaml:"type"` // "process"
	Cmd       string            `json:"cmd" yaml:"cmd"`
	Args      []string          `json:"args,omitempty" yaml:"args,omitempty"`
	TimeoutMs int               `json:"timeoutMs,omitempty" yaml:"timeoutMs,omitempty"`
	Env       map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// Title is Name, or "VERB path status" when the check is unnamed.
func (c Check) Title() string {
	if c.Name != "" {
		return c.Name
	}
	return fmt.Sprintf("%s %s %v", strings.ToUpper(c.Verb), c.Path, c.Status)
}
