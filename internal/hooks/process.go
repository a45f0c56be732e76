// Package hooks runs suite setup processes. A hook receives Input as JSON on
// stdin and answers with Output as JSON on stdout.
package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"mini-apivore/internal/ir"
)

// EnvSuite names the environment variable carrying the suite name.
const EnvSuite = "APIVORE_SUITE"

const (
	defaultTimeout = 10 * time.Second
	// waitDelay bounds how long a killed hook's children may hold its pipes.
	waitDelay = 500 * time.Millisecond
)

// Input is written to the hook's stdin as JSON.
type Input struct {
	Suite string            `json:"suite"`
	Vars  map[string]string `json:"vars,omitempty"`
}

// Output is read from the hook's stdout as JSON.
type Output struct {
	Vars   map[string]string `json:"vars,omitempty"`   // merged into suite vars
	Errors []string          `json:"errors,omitempty"` // abort the suite
}

// RunProcessHook runs h once. A non-zero exit, a timeout or unparsable output
// is an error that quotes the hook's stderr.
func RunProcessHook(ctx context.Context, h ir.Hook, in Input) (*Output, error) {
	if h.Type != "process" {
		return nil, fmt.Errorf("unsupported hook type %q", h.Type)
	}
	tmo := time.Duration(h.TimeoutMs) * time.Millisecond
	if tmo <= 0 {
		tmo = defaultTimeout
	}
	cctx, cancel := context.WithTimeout(ctx, tmo)
	defer cancel()

	payload, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("encode input: %w", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(cctx, h.Cmd, h.Args...)
	cmd.Env = hookEnv(h, in)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = waitDelay

	if err := cmd.Run(); err != nil {
		if errors.Is(cctx.Err(), context.DeadlineExceeded) {
			err = fmt.Errorf("timed out after %s", tmo)
		}
		return nil, fmt.Errorf("hook %s: %w%s", h.Cmd, err, stderrSuffix(&stderr))
	}

	var out Output
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &out); err != nil {
		return nil, fmt.Errorf("hook %s: decode stdout: %w%s", h.Cmd, err, stderrSuffix(&stderr))
	}
	return &out, nil
}

// hookEnv is the parent environment plus the suite name and h.Env.
func hookEnv(h ir.Hook, in Input) []string {
	env := append(os.Environ(), EnvSuite+"="+in.Suite)
	for k, v := range h.Env {
		env = append(env, k+"="+v)
	}
	return env
}

func stderrSuffix(b *bytes.Buffer) string {
	msg := strings.TrimSpace(b.String())
	if msg == "" {
		return ""
	}
	return ": " + msg
}
