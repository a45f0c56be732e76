package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"mini-apivore/internal/checker"
	"mini-apivore/internal/dispatch"
	"mini-apivore/internal/hooks"
	"mini-apivore/internal/ir"
	"mini-apivore/internal/params"
	"mini-apivore/internal/pathexpand"
	"mini-apivore/internal/vars"
)

// ---- Results model ----

type SuiteResult struct {
	Name       string
	Passed     bool
	Checks     []CheckResult
	DurationMs float64
}

// Counts returns (passed, failed, fatal).
func (r *SuiteResult) Counts() (passed, failed, fatal int) {
	for _, c := range r.Checks {
		switch {
		case c.Passed:
			passed++
		case c.Fatal:
			fatal++
		default:
			failed++
		}
	}
	return passed, failed, fatal
}

type CheckResult struct {
	Name        string
	Verb        string
	Path        string
	Status      string
	Passed      bool
	Diagnostics []string
	// Fatal marks a run that ended without a verdict (missing path
	// substitution, transport failure, unresolved variables).
	Fatal      bool
	FatalKind  string `json:",omitempty"`
	DurationMs float64

	URL        string
	RespStatus int
	RespBody   string
}

// Fatal kinds.
const (
	FatalSubstitution = "substitution"
	FatalTransport    = "transport"
	FatalVariables    = "variables"
	FatalOther        = "error"
)

// ---- Runner ----

type Runner struct {
	checker  *checker.Checker
	baseVars map[string]string
	log      *slog.Logger

	parallel int
	failFast bool
}

func New(c *checker.Checker) *Runner {
	return &Runner{checker: c, log: slog.New(slog.DiscardHandler)}
}

func (r *Runner) WithVars(m map[string]string) *Runner { r.baseVars = clone(m); return r }
func (r *Runner) WithParallel(n int) *Runner {
	if n < 1 {
		n = 1
	}
	r.parallel = n
	return r
}
func (r *Runner) WithFailFast(b bool) *Runner { r.failFast = b; return r }
func (r *Runner) WithLogger(l *slog.Logger) *Runner {
	if l != nil {
		r.log = l
	}
	return r
}

// ---- Suite execution ----

func clone(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (r *Runner) RunSuite(ctx context.Context, suite *ir.TestSuite) (*SuiteResult, error) {
	if suite == nil {
		return nil, errors.New("nil suite")
	}

	startSuite := time.Now()
	vs, err := r.suiteVars(ctx, suite)
	if err != nil {
		return nil, err
	}

	res := &SuiteResult{Name: suite.Name, Passed: true, Checks: make([]CheckResult, len(suite.Checks))}

	parallel := r.parallel
	if r.failFast {
		parallel = 1
	}
	if parallel < 1 {
		parallel = 1
	}

	if parallel == 1 {
		for i, c := range suite.Checks {
			cr := r.runCheck(ctx, c, vs)
			if !cr.Passed {
				res.Passed = false
			}
			res.Checks[i] = cr
			if r.failFast && !cr.Passed {
				res.Checks = res.Checks[:i+1]
				break
			}
		}
		res.DurationMs = float64(time.Since(startSuite).Milliseconds())
		return res, nil
	}

	type job struct {
		idx int
		c   ir.Check
	}
	type result struct {
		idx int
		cr  CheckResult
	}

	jobs := make(chan job)
	results := make(chan result)

	for w := 0; w < parallel; w++ {
		go func() {
			for j := range jobs {
				results <- result{idx: j.idx, cr: r.runCheck(ctx, j.c, vs)}
			}
		}()
	}
	go func() {
		for i, c := range suite.Checks {
			jobs <- job{idx: i, c: c}
		}
		close(jobs)
	}()

	for collected := 0; collected < len(suite.Checks); collected++ {
		rx := <-results
		if !rx.cr.Passed {
			res.Passed = false
		}
		res.Checks[rx.idx] = rx.cr
	}

	res.DurationMs = float64(time.Since(startSuite).Milliseconds())
	return res, nil
}

// suiteVars merges base vars, built-ins and setup hook output.
func (r *Runner) suiteVars(ctx context.Context, suite *ir.TestSuite) (map[string]string, error) {
	vs := clone(r.baseVars)
	if vs == nil {
		vs = map[string]string{}
	}
	vs["uuid"] = newUUID()
	vs["now"] = time.Now().UTC().Format(time.RFC3339)

	for i, h := range suite.Setup {
		out, err := hooks.RunProcessHook(ctx, h, hooks.Input{Suite: suite.Name, Vars: clone(vs)})
		if err != nil {
			return nil, fmt.Errorf("setup[%d]: %w", i, err)
		}
		if len(out.Errors) > 0 {
			return nil, fmt.Errorf("setup[%d]: %s", i, strings.Join(out.Errors, "; "))
		}
		for k, v := range out.Vars {
			if v != "" {
				vs[k] = v
			}
		}
		r.log.Debug("setup hook ran", "index", i, "cmd", h.Cmd, "vars", len(out.Vars))
	}
	return vs, nil
}

func (r *Runner) runCheck(ctx context.Context, c ir.Check, vs map[string]string) CheckResult {
	cr := CheckResult{
		Name:   c.Title(),
		Verb:   strings.ToLower(c.Verb),
		Path:   c.Path,
		Status: fmt.Sprint(c.Status),
	}

	p, _ := vars.Walk(c.Params, vs).(map[string]any)
	if unresolved := vars.Unresolved(p); len(unresolved) > 0 {
		cr.Fatal, cr.FatalKind = true, FatalVariables
		cr.Diagnostics = []string{fmt.Sprintf("unresolved variables in params: %s (define via --env or use ${VAR|default})",
			strings.Join(unresolved, ", "))}
		return cr
	}

	start := time.Now()
	res, err := r.checker.Check(ctx, c.Verb, c.Path, c.Status, params.New(p))
	cr.DurationMs = float64(time.Since(start).Milliseconds())

	if err != nil {
		cr.Fatal, cr.FatalKind = true, fatalKind(err)
		cr.Diagnostics = []string{err.Error()}
		r.log.Warn("check aborted", "check", cr.Name, "kind", cr.FatalKind, "err", err)
		return cr
	}

	cr.Passed = res.Passed
	cr.Diagnostics = res.Diagnostics
	cr.URL = res.Path
	if res.Response != nil {
		cr.RespStatus = res.Response.Status
		cr.RespBody = limitBody(res.Response.Body, 64<<10) // 64KB cap in report
	}
	r.log.Debug("check finished", "check", cr.Name, "passed", cr.Passed)
	return cr
}

func fatalKind(err error) string {
	switch {
	case errors.Is(err, pathexpand.ErrMissingSubstitution):
		return FatalSubstitution
	case errors.Is(err, dispatch.ErrTransport):
		return FatalTransport
	default:
		return FatalOther
	}
}

// ---- small helpers ----

func newUUID() string {
	now := time.Now().UnixNano()
	return fmt.Sprintf("%x", now)
}

func limitBody(b string, max int) string {
	if len(b) <= max {
		return b
	}
	return b[:max] + "\n...[truncated]..."
}
