package reporter_test

import (
	"bytes"
	"encoding/json"
	"testing"

	"mini-apivore/internal/executor"
	"mini-apivore/internal/reporter"
)

func TestWriteJSON_Basic(t *testing.T) {
	res := &executor.SuiteResult{
		Name:   "S1",
		Passed: true,
		Checks: []executor.CheckResult{{Name: "GET /health 200", Passed: true}},
	}

	var buf bytes.Buffer
	if err := reporter.WriteJSON(&buf, res); err != nil {
		t.Fatalf("WriteJSON error: %v", err)
	}

	var roundtrip executor.SuiteResult
	if err := json.Unmarshal(buf.Bytes(), &roundtrip); err != nil {
		t.Fatalf("json unmarshal: %v", err)
	}
	if !roundtrip.Passed {
		t.Fatalf("roundtrip.Passed = false, want true")
	}
	if len(roundtrip.Checks) != 1 {
		t.Fatalf("roundtrip checks len = %d, want 1", len(roundtrip.Checks))
	}
}
