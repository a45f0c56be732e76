package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"mini-apivore/internal/checker"
	"mini-apivore/internal/contract"
	"mini-apivore/internal/dispatch"
	"mini-apivore/internal/executor"
	"mini-apivore/internal/ir"
	"mini-apivore/internal/parser"
	"mini-apivore/internal/reporter"
	"mini-apivore/internal/schema"
	"mini-apivore/internal/vars"
)

func main() {
	var (
		// run mode
		suitePath   = flag.String("suite", "", "Path to YAML/JSON check suite")
		outDir      = flag.String("out", "reports", "Output directory for artifacts")
		name        = flag.String("name", "", "Optional suite name override")
		envPaths    = flag.String("env", "", "Comma-separated JSON env files (e.g., env/dev.json,env/ci.json)")
		openapiPath = flag.String("openapi", "", "Path to the contract document (OpenAPI 3 or Swagger 2, YAML/JSON)")
		baseURL     = flag.String("base-url", "", "Base URL of the API under test (overrides suite base_url)")
		engine      = flag.String("schema-engine", "", "Body validator: jsonschema (default) or openapi")
		strict      = flag.Bool("strict", false, "Validate the contract document itself before checking")
		timeout     = flag.Duration("timeout", 0, "Per-request timeout (default 10s or suite timeout_ms)")
		jsonOut     = flag.Bool("json", true, "Write JSON results")
		junitOut    = flag.Bool("junit", true, "Write JUnit XML results")
		htmlOut     = flag.Bool("html", true, "Write HTML report")
		verbose     = flag.Bool("v", false, "Verbose: debug logging and failure details")
		covMin      = flag.Float64("coverage-min", -1, "Fail if documented response coverage percent < this threshold")
		requireAll  = flag.Bool("require-all-tested", false, "Fail unless every documented (path, method, status) was exercised")
		parallel    = flag.Int("parallel", 1, "Number of checks to execute in parallel")
		failFast    = flag.Bool("fail-fast", false, "Stop after first failing check (forces --parallel=1)")
		includeTags = flag.String("include-tags", "", "Comma-separated tags to include (OR semantics)")
		excludeTags = flag.String("exclude-tags", "", "Comma-separated tags to exclude (OR semantics)")

		// diff mode
		diffA = flag.String("diff-a", "", "Contract diff: path to document A (enables diff mode)")
		diffB = flag.String("diff-b", "", "Contract diff: path to document B (enables diff mode)")
	)
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	// ---- Contract diff mode (no --suite required) ----
	if *diffA != "" || *diffB != "" {
		if *diffA == "" || *diffB == "" {
			fail("both --diff-a and --diff-b are required for contract diff mode")
		}
		runContractDiff(*diffA, *diffB, *outDir)
		return
	}

	// ---- Regular check execution ----
	if *suitePath == "" {
		fail("missing --suite")
	}

	data, err := os.ReadFile(*suitePath)
	if err != nil {
		fail("read suite: %v", err)
	}

	suite, err := parser.New().ParseBytes(data)
	if err != nil {
		fail("parse: %v", err)
	}
	if *name != "" {
		suite.Name = *name
	}

	// tag filtering (optional)
	if *includeTags != "" || *excludeTags != "" {
		suite.Checks = filterByTags(suite.Checks, splitCSV(*includeTags), splitCSV(*excludeTags))
		if len(suite.Checks) == 0 {
			fail("no checks left after tag filtering")
		}
	}

	// env vars (optional)
	var baseVars map[string]string
	if *envPaths != "" {
		baseVars, err = vars.LoadJSONFiles(strings.Split(*envPaths, ","))
		if err != nil {
			fail("load env: %v", err)
		}
	}

	// Resolve contract file: flag wins; else suite.openapi (relative to the suite)
	openapiFile := *openapiPath
	if openapiFile == "" && suite.OpenAPI != "" {
		openapiFile = suite.OpenAPI
		if !filepath.IsAbs(openapiFile) {
			openapiFile = filepath.Join(filepath.Dir(*suitePath), openapiFile)
		}
	}
	if openapiFile == "" {
		fail("missing contract document: pass --openapi or set openapi in the suite")
	}

	target := firstNonEmpty(*baseURL, suite.BaseURL)
	if target == "" {
		fail("missing base URL: pass --base-url or set base_url in the suite")
	}

	var loadOpts []contract.LoadOption
	if *strict {
		loadOpts = append(loadOpts, contract.Strict())
	}
	store, err := contract.Load(openapiFile, loadOpts...)
	if err != nil {
		fail("openapi load: %v", err)
	}
	cov := contract.NewCoverage(store)

	validator, err := schema.New(firstNonEmpty(*engine, suite.SchemaEngine), store)
	if err != nil {
		fail("schema engine: %v", err)
	}

	d := dispatch.NewHTTP(target)
	switch {
	case *timeout > 0:
		d = d.WithTimeout(*timeout)
	case suite.TimeoutMs > 0:
		d = d.WithTimeout(time.Duration(suite.TimeoutMs) * time.Millisecond)
	}

	c := checker.New(cov, validator, d, checker.WithLogger(logger))

	// Fail-fast enforces sequential execution
	if *failFast && *parallel != 1 {
		*parallel = 1
	}
	r := executor.New(c).
		WithVars(baseVars).
		WithParallel(*parallel).
		WithFailFast(*failFast).
		WithLogger(logger)

	logger.Debug("running suite", "suite", suite.Name, "checks", len(suite.Checks),
		"contract", store.Location(), "version", store.Version(), "base_path", store.BasePath(), "target", target)

	// Execute
	res, err := r.RunSuite(context.Background(), suite)
	if err != nil {
		fail("execute: %v", err)
	}

	// Artifacts
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		fail("mkdir out: %v", err)
	}

	outSuiteName := suite.Name
	if outSuiteName == "" {
		outSuiteName = "mini-apivore"
	}

	// JSON (and remember the path for HTML parity)
	var jsonPath string
	if *jsonOut {
		jsonPath = filepath.Join(*outDir, "results.json")
		writeOrDie(jsonPath, func(f *os.File) error {
			return reporter.WriteJSON(f, res)
		})
	}

	if *junitOut {
		writeOrDie(filepath.Join(*outDir, "junit.xml"), func(f *os.File) error {
			return reporter.WriteJUnit(f, outSuiteName, res)
		})
	}

	// HTML: if JSON is enabled, render from results.json to guarantee parity
	if *htmlOut {
		htmlPath := filepath.Join(*outDir, "report.html")
		if jsonPath != "" {
			writeOrDie(htmlPath, func(f *os.File) error {
				return reporter.WriteHTMLFromJSONPath(f, outSuiteName, jsonPath)
			})
		} else {
			writeOrDie(htmlPath, func(f *os.File) error {
				return reporter.WriteHTML(f, outSuiteName, res)
			})
		}
	}

	// Coverage report + optional gates
	writeOrDie(filepath.Join(*outDir, "coverage.json"), func(f *os.File) error {
		return reporter.WriteCoverage(f, cov)
	})
	gateFailed := false
	if *covMin >= 0 {
		rep := reporter.ComputeCoverage(cov)
		if rep.Percent+1e-9 < *covMin {
			fmt.Fprintf(os.Stderr, "coverage gate failed: got %.2f%%, need >= %.2f%%\n", rep.Percent, *covMin)
			gateFailed = true
		}
	}
	if *requireAll && !cov.AllTested() {
		fmt.Fprintln(os.Stderr, "untested documented responses:")
		for _, t := range cov.Untested() {
			fmt.Fprintf(os.Stderr, "  - %s\n", t)
		}
		gateFailed = true
	}

	// Failure summary (or verbose print)
	if !res.Passed || *verbose {
		for _, ch := range res.Checks {
			if ch.Passed {
				continue
			}
			kind := "FAILED"
			if ch.Fatal {
				kind = "ABORTED (" + ch.FatalKind + ")"
			}
			fmt.Fprintf(os.Stderr, "\nCheck %s: %s\n", kind, ch.Name)
			for _, msg := range ch.Diagnostics {
				fmt.Fprintf(os.Stderr, "    - %s\n", msg)
			}
		}
	}

	passed, failed, fatal := res.Counts()
	fmt.Printf("%d passed, %d failed, %d aborted\n", passed, failed, fatal)
	if res.Passed && !gateFailed {
		fmt.Println("PASS")
		os.Exit(0)
	}
	fmt.Println("FAIL")
	os.Exit(1)
}

// ---- Contract diff mode ----

func runContractDiff(aPath, bPath, outDir string) {
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		fail("mkdir out: %v", err)
	}
	a, err := contract.Load(aPath)
	if err != nil {
		fail("openapi A load: %v", err)
	}
	b, err := contract.Load(bPath)
	if err != nil {
		fail("openapi B load: %v", err)
	}

	rep := contract.Diff(a, b)

	out := filepath.Join(outDir, "contract-diff.json")
	writeOrDie(out, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(rep)
	})

	fmt.Printf("Contract diff (%s -> %s)\n", aPath, bPath)
	if rep.Empty() {
		fmt.Println("  No changes.")
	} else {
		if rep.BasePathA != rep.BasePathB {
			fmt.Printf("  Base path: %q -> %q\n", rep.BasePathA, rep.BasePathB)
		}
		if len(rep.Added) > 0 {
			fmt.Println("  Added:")
			for _, op := range rep.Added {
				fmt.Printf("    + %s %s\n", op.Method, op.Path)
			}
		}
		if len(rep.Removed) > 0 {
			fmt.Println("  Removed:")
			for _, op := range rep.Removed {
				fmt.Printf("    - %s %s\n", op.Method, op.Path)
			}
		}
		if len(rep.ChangedStatus) > 0 {
			fmt.Println("  Status changes:")
			for _, ch := range rep.ChangedStatus {
				fmt.Printf("    * %s %s: %v -> %v\n", ch.Method, ch.Path, ch.A, ch.B)
			}
		}
	}
	fmt.Printf("wrote %s\n", out)
}

// ---- helpers ----

func fail(format string, a ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", a...)
	os.Exit(2)
}

func writeOrDie(path string, fn func(*os.File) error) {
	f, err := os.Create(path)
	if err != nil {
		fail("create %s: %v", path, err)
	}
	defer f.Close()
	if err := fn(f); err != nil {
		fail("write %s: %v", path, err)
	}
}

func firstNonEmpty(ss ...string) string {
	for _, s := range ss {
		if s != "" {
			return s
		}
	}
	return ""
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func filterByTags(in []ir.Check, include, exclude []string) []ir.Check {
	if len(include) == 0 && len(exclude) == 0 {
		return in
	}
	toSet := func(ss []string) map[string]bool {
		m := map[string]bool{}
		for _, s := range ss {
			m[strings.ToLower(s)] = true
		}
		return m
	}
	inc, exc := toSet(include), toSet(exclude)
	hasAny := func(tags []string, m map[string]bool) bool {
		for _, t := range tags {
			if m[strings.ToLower(t)] {
				return true
			}
		}
		return false
	}
	out := make([]ir.Check, 0, len(in))
	for _, c := range in {
		if len(inc) > 0 && !hasAny(c.Tags, inc) {
			continue
		}
		if len(exc) > 0 && hasAny(c.Tags, exc) {
			continue
		}
		out = append(out, c)
	}
	return out
}
