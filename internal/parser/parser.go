package parser

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"mini-apivore/internal/ir"
)

var ErrValidation = errors.New("validation error")

var verbs = map[string]bool{
	"get": true, "post": true, "put": true, "patch": true,
	"delete": true, "head": true, "options": true, "trace": true,
}

type Parser struct{}

func New() *Parser { return &Parser{} }

// ParseBytes parses YAML (or JSON) into IR and validates it.
func (p *Parser) ParseBytes(b []byte) (*ir.TestSuite, error) {
	var suite ir.TestSuite

	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true) // fail on unknown fields

	if err := dec.Decode(&suite); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	// Verbs are lowercase everywhere downstream
	for i := range suite.Checks {
		suite.Checks[i].Verb = strings.ToLower(strings.TrimSpace(suite.Checks[i].Verb))
	}
	if err := validateSuite(&suite); err != nil {
		return nil, err
	}
	return &suite, nil
}

// --- validation helpers ---

func validateSuite(s *ir.TestSuite) error {
	if s.Name == "" {
		return wrapValidation("suite.name must not be empty")
	}
	if len(s.Checks) == 0 {
		return wrapValidation("suite.checks must not be empty")
	}
	for i, h := range s.Setup {
		if h.Type != "process" {
			return wrapValidation(fmt.Sprintf("setup[%d].type must be \"process\", got %q", i, h.Type))
		}
		if h.Cmd == "" {
			return wrapValidation(fmt.Sprintf("setup[%d].cmd must not be empty", i))
		}
	}
	for i := range s.Checks {
		if err := validateCheck(&s.Checks[i], i); err != nil {
			return err
		}
	}
	return nil
}

func validateCheck(c *ir.Check, i int) error {
	if c.Verb == "" {
		return wrapValidation(fmt.Sprintf("checks[%d].verb must not be empty", i))
	}
	if !verbs[c.Verb] {
		return wrapValidation(fmt.Sprintf("checks[%d].verb %q is not an HTTP method", i, c.Verb))
	}
	if !strings.HasPrefix(c.Path, "/") {
		return wrapValidation(fmt.Sprintf("checks[%d].path must start with /", i))
	}
	if c.Status == nil {
		return wrapValidation(fmt.Sprintf("checks[%d].status must be set", i))
	}
	return nil
}

func wrapValidation(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
