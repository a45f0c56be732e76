package reporter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"os"
	"strconv"
	"strings"

	"mini-apivore/internal/executor"
)

func WriteHTML(w io.Writer, suiteName string, res *executor.SuiteResult) error {
	var sb strings.Builder

	sb.WriteString(`<!doctype html><html lang="en"><head><meta charset="utf-8">`)
	sb.WriteString(`<meta name="viewport" content="width=device-width,initial-scale=1">`)
	sb.WriteString(`<title>mini-apivore Report - ` + html.EscapeString(suiteName) + `</title>`)
	sb.WriteString(`<style>
:root { --ok:#0a0; --bad:#b00; --muted:#666; --chip:#eee; --line:#e5e5e5; }
body{font-family:system-ui,Segoe UI,Roboto,Arial,sans-serif;margin:24px;line-height:1.45}
h1{margin:0 0 12px}
h2{margin:0 0 8px;font-size:1.05rem}
.summary{display:flex;gap:12px;align-items:center;margin:12px 0 18px}
.pass{color:var(--ok)} .fail{color:var(--bad)}
.badge{display:inline-block;padding:2px 8px;border-radius:999px;background:var(--chip);font-size:.85rem}
.card{border:1px solid var(--line);border-radius:12px;padding:16px;margin:12px 0}
details>summary{cursor:pointer;list-style:none}
details>summary::-webkit-details-marker{display:none}
summary {padding:6px 0}
pre{background:#f8f8f8;padding:12px;border-radius:8px;overflow:auto;max-height:320px;margin:8px 0 0;white-space:pre-wrap}
.muted{color:var(--muted)}
hr{border:0;border-top:1px solid var(--line);margin:20px 0}
.small{font-size:.85rem}
</style></head><body>`)

	// Header
	passed, failed, fatal := res.Counts()
	sb.WriteString(`<h1>` + html.EscapeString(suiteName) + `</h1>`)
	sb.WriteString(`<div class="summary">`)
	sb.WriteString(`<div>Status: <strong class="` + statusClass(res.Passed) + `">` + tern(res.Passed, "PASS", "FAIL") + `</strong></div>`)
	sb.WriteString(chip("Duration: " + ms(res.DurationMs)))
	sb.WriteString(chip("Checks: " + strconv.Itoa(len(res.Checks))))
	sb.WriteString(chip(fmt.Sprintf("passed %d / failed %d / fatal %d", passed, failed, fatal)))
	sb.WriteString(`</div><hr>`)

	// Checks
	for i, c := range res.Checks {
		sb.WriteString(`<div class="card">`)
		sb.WriteString(`<details ` + tern(!c.Passed, "open", "") + `>`)
		sb.WriteString(`<summary>` + strconv.Itoa(i+1) + `. ` + html.EscapeString(c.Name) + ` • ` +
			html.EscapeString(strings.ToUpper(c.Verb)+" "+c.Path) + ` • expect ` + html.EscapeString(c.Status) + ` ` +
			badge(c) + ` ` + chip(ms(c.DurationMs)) + `</summary>`)

		// Diagnostics
		if len(c.Diagnostics) > 0 {
			sb.WriteString(`<pre>`)
			for _, d := range c.Diagnostics {
				sb.WriteString(html.EscapeString(d) + "\n")
			}
			sb.WriteString(`</pre>`)
		} else {
			sb.WriteString(`<div class="small muted">No diagnostics.</div>`)
		}

		// Response
		if c.URL != "" {
			sb.WriteString(`<div class="small muted" style="margin-top:10px;">Response</div>`)
			sb.WriteString(`<pre>` + html.EscapeString(strings.ToUpper(c.Verb)+" "+c.URL+" → "+strconv.Itoa(c.RespStatus)) + `</pre>`)
			if c.RespBody != "" {
				sb.WriteString(`<pre>` + html.EscapeString(prettyJSON(c.RespBody)) + `</pre>`)
			}
		}

		sb.WriteString(`</details>`)
		sb.WriteString(`</div>`)
	}

	sb.WriteString(`</body></html>`)
	_, err := io.WriteString(w, sb.String())
	return err
}

// --- Helper that guarantees HTML matches the on-disk results.json ---

func WriteHTMLFromJSONPath(w io.Writer, suiteName, resultsJSONPath string) error {
	data, err := os.ReadFile(resultsJSONPath)
	if err != nil {
		return fmt.Errorf("read results.json: %w", err)
	}
	var res executor.SuiteResult
	if err := json.Unmarshal(data, &res); err != nil {
		return fmt.Errorf("decode results.json: %w", err)
	}
	return WriteHTML(w, suiteName, &res)
}

func statusClass(ok bool) string {
	if ok {
		return "pass"
	}
	return "fail"
}

func badge(c executor.CheckResult) string {
	switch {
	case c.Passed:
		return `<span class="badge pass">PASS</span>`
	case c.Fatal:
		return `<span class="badge fail">FATAL ` + html.EscapeString(c.FatalKind) + `</span>`
	default:
		return `<span class="badge fail">FAIL</span>`
	}
}

func chip(text string) string {
	return `<span class="badge">` + html.EscapeString(text) + `</span>`
}

func ms(v float64) string { return fmt.Sprintf("%.0f ms", v) }

func tern[T ~string](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

func prettyJSON(s string) string {
	var buf bytes.Buffer
	var raw any
	if json.Unmarshal([]byte(s), &raw) == nil {
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "  ")
		_ = enc.Encode(raw)
		return strings.TrimRight(buf.String(), "\n")
	}
	return s
}
