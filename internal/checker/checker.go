// Package checker verifies that a live API honours its own contract document
// for one (verb, path template, expected status) at a time.
//
// A check runs pre-flight contract lookups, dispatches the request, then
// compares the status code and validates the body against the documented
// schema. Contract mismatches come back as diagnostics on the Result; a
// missing path substitution or a transport failure comes back as an error.
package checker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"sync"

	"mini-apivore/internal/contract"
	"mini-apivore/internal/dispatch"
	"mini-apivore/internal/params"
	"mini-apivore/internal/pathexpand"
	"mini-apivore/internal/status"
)

// ContractStore is the read side of a contract document plus coverage notification.
type ContractStore interface {
	Location() string
	HasPath(path string) bool
	HasMethod(path, verb string) bool
	HasStatus(path, verb string, st status.Expected) bool
	StatusCodes(path, verb string) []string
	BasePath() string
	Schema(path, verb string, st status.Expected) *contract.Fragment
	MarkExercised(path, verb string, st status.Expected)
}

// SchemaValidator reports violations of value against a schema fragment.
type SchemaValidator interface {
	Validate(value any, frag *contract.Fragment) []string
}

// Result is the outcome of a check that ran to completion.
type Result struct {
	Passed      bool
	Diagnostics []string
	// Dispatched is false when pre-flight checks stopped the run.
	Dispatched bool
	// Path is the expanded request path; empty if not dispatched.
	Path     string
	Response *dispatch.Response
}

// FailureMessage joins the diagnostics with single spaces.
func (r *Result) FailureMessage() string { return strings.Join(r.Diagnostics, " ") }

type Option func(*Checker)

func WithLogger(l *slog.Logger) Option {
	return func(c *Checker) {
		if l != nil {
			c.log = l
		}
	}
}

type Checker struct {
	store      ContractStore
	validator  SchemaValidator
	dispatcher dispatch.Dispatcher
	log        *slog.Logger

	mu   sync.Mutex
	last *Result
}

func New(store ContractStore, validator SchemaValidator, dispatcher dispatch.Dispatcher, opts ...Option) *Checker {
	c := &Checker{
		store:      store,
		validator:  validator,
		dispatcher: dispatcher,
		log:        slog.New(slog.DiscardHandler),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CheckRoute runs Check and remembers the outcome for FailureMessage.
func (c *Checker) CheckRoute(ctx context.Context, verb, path string, expected any, p *params.Bag) (bool, error) {
	res, err := c.Check(ctx, verb, path, expected, p)
	c.mu.Lock()
	c.last = res
	c.mu.Unlock()
	if err != nil {
		return false, err
	}
	return res.Passed, nil
}

// FailureMessage is the message of the last CheckRoute call, or "" if it passed.
func (c *Checker) FailureMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return ""
	}
	return c.last.FailureMessage()
}

// Check validates one route. A nil error means the run completed and Result
// holds the verdict; errors are fatal (missing path substitution, transport).
func (c *Checker) Check(ctx context.Context, verb, path string, expected any, p *params.Bag) (*Result, error) {
	if p == nil {
		p = params.New(nil)
	}
	run := &run{
		verb:     strings.ToLower(verb),
		path:     path,
		params:   p,
		expected: status.Parse(expected),
	}
	log := c.log.With("verb", run.verb, "path", run.path, "expected", run.expected.String())

	c.precheck(run)
	if run.failed() {
		log.Debug("pre-flight failed", "diagnostics", run.diags)
		return run.result(), nil
	}

	full, err := pathexpand.Expand(c.store.BasePath()+run.path, run.params)
	if err != nil {
		return nil, err
	}
	run.full = full

	log.Debug("dispatching", "url", full)
	resp, err := c.dispatcher.Dispatch(ctx, run.verb, full, run.params.Data(), run.params.Headers())
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, &dispatch.TransportError{Verb: run.verb, URL: full, Err: errNoResponse}
	}
	run.resp = resp

	c.checkStatus(run)
	if !run.failed() {
		c.checkBody(run)
	}
	if run.failed() && len(resp.Body) > 0 {
		run.add("\nResponse body:\n " + prettyBody(resp.Body))
	}

	c.store.MarkExercised(run.path, run.verb, run.expected)

	res := run.result()
	log.Debug("checked", "status", resp.Status, "passed", res.Passed)
	return res, nil
}

type run struct {
	verb     string
	path     string
	params   *params.Bag
	expected status.Expected

	full  string
	resp  *dispatch.Response
	diags []string
}

func (r *run) add(msg string) { r.diags = append(r.diags, msg) }
func (r *run) failed() bool   { return len(r.diags) > 0 }

func (r *run) result() *Result {
	return &Result{
		Passed:      len(r.diags) == 0,
		Diagnostics: r.diags,
		Dispatched:  r.resp != nil,
		Path:        r.full,
		Response:    r.resp,
	}
}

func (c *Checker) precheck(r *run) {
	doc := c.store.Location()
	switch {
	case !c.store.HasPath(r.path):
		r.add(fmt.Sprintf("Swagger doc: %s does not have a documented @path for %s", doc, r.path))
	case !c.store.HasMethod(r.path, r.verb):
		r.add(fmt.Sprintf("Swagger doc: %s does not have a documented @path for %s %s", doc, r.verb, r.path))
	case !c.store.HasStatus(r.path, r.verb, r.expected):
		r.add(fmt.Sprintf("Swagger doc: %s does not have a documented response code of %s at @path %s %s. "+
			"\n             Available response codes: %s",
			doc, r.expected, r.verb, r.path, listing(c.store.StatusCodes(r.path, r.verb))))
	case r.verb == "get" && c.store.Schema(r.path, r.verb, r.expected) == nil:
		// Only GET must document a body; other verbs without one validate trivially.
		r.add(fmt.Sprintf("Swagger doc: %s missing response model for get request with %s for code %s",
			doc, r.path, r.expected))
	}
}

func (c *Checker) checkStatus(r *run) {
	if !r.expected.Matches(r.resp.Status) {
		r.add(fmt.Sprintf("Path %s did not respond with expected status code. Expected %s got %d",
			r.path, r.expected, r.resp.Status))
	}
}

var errNoResponse = errors.New("dispatcher returned no response")

var boilerplate = regexp.MustCompile(`(?m)^The property|in schema.*$`)

func (c *Checker) checkBody(r *run) {
	var body any
	if len(r.resp.Body) > 0 {
		if err := json.Unmarshal([]byte(r.resp.Body), &body); err != nil {
			r.add(fmt.Sprintf("Path %s responded with a body that is not valid JSON: %v", r.path, err))
			return
		}
	}
	frag := c.store.Schema(r.path, r.verb, r.expected)
	for _, v := range c.validator.Validate(body, frag) {
		v = strings.Replace(v, "'#", "'"+r.full+"#", 1)
		r.add(strings.TrimSpace(boilerplate.ReplaceAllString(v, "")))
	}
}

// listing renders codes as ["200", "404"].
func listing(codes []string) string {
	quoted := make([]string, len(codes))
	for i, c := range codes {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func prettyBody(body string) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, bytes.TrimSpace([]byte(body)), "", "  "); err != nil {
		return strings.TrimSpace(body)
	}
	return buf.String()
}
