package vars

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
)

func LoadJSONFiles(paths []string) (map[string]string, error) {
	out := map[string]string{}
	for _, p := range paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		b, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}

		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			return nil, fmt.Errorf("parse %s: %w", p, err)
		}
		for k, v := range m {
			switch x := v.(type) {
			case string:
				out[k] = x
			default:
				out[k] = fmt.Sprint(x) // coerce numbers/bools to string
			}
		}
	}
	return out, nil
}

var varPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// Interpolate replaces ${KEY} and ${KEY|default}. A missing key without a
// default is left intact so Unresolved can report it.
func Interpolate(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(m string) string {
		inner := m[2 : len(m)-1]
		key, def := inner, ""
		if i := strings.Index(inner, "|"); i >= 0 {
			key, def = inner[:i], inner[i+1:]
		}
		if v, ok := vars[key]; ok && v != "" {
			return v
		}
		if def != "" {
			return def
		}
		return m
	})
}

// Walk interpolates every string inside v (maps and slices included).
// Map keys are left alone.
func Walk(v any, vars map[string]string) any {
	switch x := v.(type) {
	case nil:
		return nil
	case string:
		return Interpolate(x, vars)
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = Walk(vv, vars)
		}
		return out
	case []any:
		out := make([]any, len(x))
		for i := range x {
			out[i] = Walk(x[i], vars)
		}
		return out
	default:
		return v
	}
}

// Unresolved lists ${KEY} references (without defaults) still present anywhere in v, sorted.
func Unresolved(v any) []string {
	seen := map[string]bool{}
	collect(v, seen)
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func collect(v any, seen map[string]bool) {
	switch x := v.(type) {
	case string:
		for _, m := range varPattern.FindAllStringSubmatch(x, -1) {
			if strings.Contains(m[1], "|") {
				continue // had default
			}
			seen["${"+m[1]+"}"] = true
		}
	case map[string]any:
		for _, vv := range x {
			collect(vv, seen)
		}
	case []any:
		for _, vv := range x {
			collect(vv, seen)
		}
	}
}
