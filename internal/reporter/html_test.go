package reporter_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"mini-apivore/internal/executor"
	"mini-apivore/internal/reporter"
)

func sampleResult() *executor.SuiteResult {
	return &executor.SuiteResult{
		Name:   "Users <API>",
		Passed: false,
		Checks: []executor.CheckResult{
			{Name: "ok", Verb: "get", Path: "/users/{id}", Status: "200", Passed: true,
				URL: "/api/users/1", RespStatus: 200, RespBody: `{"id":1}`},
			{Name: "bad", Verb: "get", Path: "/users/{id}", Status: "200",
				Diagnostics: []string{"'/api/users/2#/name' expected string"}, URL: "/api/users/2", RespStatus: 200},
		},
	}
}

func TestWriteHTML(t *testing.T) {
	var buf bytes.Buffer
	if err := reporter.WriteHTML(&buf, "Users <API>", sampleResult()); err != nil {
		t.Fatalf("WriteHTML: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Users &lt;API&gt;", "FAIL", "passed 1 / failed 1 / fatal 0", "&#39;/api/users/2#/name&#39;"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in output", want)
		}
	}
}

func TestWriteHTMLFromJSONPath(t *testing.T) {
	fp := filepath.Join(t.TempDir(), "results.json")
	f, err := os.Create(fp)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := reporter.WriteJSON(f, sampleResult()); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	_ = f.Close()

	var buf bytes.Buffer
	if err := reporter.WriteHTMLFromJSONPath(&buf, "suite", fp); err != nil {
		t.Fatalf("WriteHTMLFromJSONPath: %v", err)
	}
	if !strings.Contains(buf.String(), "GET /api/users/1") {
		t.Fatalf("response line missing: %s", buf.String())
	}
}
