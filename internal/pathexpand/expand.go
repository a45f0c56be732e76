// Package pathexpand turns a contract path template into a concrete request path.
package pathexpand

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strings"

	"mini-apivore/internal/params"
)

// ErrMissingSubstitution is matched by every *SubstitutionError.
var ErrMissingSubstitution = errors.New("missing path substitution")

// SubstitutionError names the placeholder that had no value and the path being built.
type SubstitutionError struct {
	Placeholder string
	Path        string
}

func (e *SubstitutionError) Error() string {
	return fmt.Sprintf("No substitution data found for {%s} to test the path %s.", e.Placeholder, e.Path)
}

func (e *SubstitutionError) Is(target error) bool { return target == ErrMissingSubstitution }

var placeholder = regexp.MustCompile(`\{([^}]*)\}`)

// Placeholders lists placeholder names in order of appearance, duplicates included.
func Placeholders(template string) []string {
	var out []string
	for _, m := range placeholder.FindAllStringSubmatch(template, -1) {
		out = append(out, m[1])
	}
	return out
}

// Expand substitutes every {name} in template with the matching bag value and
// appends "?"+query when the bag carries a "_query_string" entry.
// Values are inserted verbatim; no URL escaping is applied.
func Expand(template string, bag *params.Bag) (string, error) {
	path := template
	for _, name := range Placeholders(template) {
		v, ok := bag.Get(name)
		if !ok || !params.Truthy(v) {
			return "", &SubstitutionError{Placeholder: name, Path: path}
		}
		path = strings.ReplaceAll(path, "{"+name+"}", fmt.Sprint(v))
	}
	if q, ok := bag.QueryString(); ok {
		path += "?" + RenderQuery(q)
	}
	return path, nil
}

// RenderQuery renders v as a URL parameter string. Strings pass through
// untouched; maps are form-encoded with keys sorted.
func RenderQuery(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case url.Values:
		return x.Encode()
	case map[string]string:
		vals := url.Values{}
		for k, vv := range x {
			vals.Set(k, vv)
		}
		return vals.Encode()
	case map[string]any:
		return encodeAny(x)
	case *params.Bag:
		return encodeAny(x.Map())
	default:
		return fmt.Sprint(x)
	}
}

func encodeAny(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := url.Values{}
	for _, k := range keys {
		switch vv := m[k].(type) {
		case []any:
			for _, item := range vv {
				vals.Add(k+"[]", fmt.Sprint(item))
			}
		case []string:
			for _, item := range vv {
				vals.Add(k+"[]", item)
			}
		case nil:
			vals.Add(k, "")
		default:
			vals.Add(k, fmt.Sprint(vv))
		}
	}
	return vals.Encode()
}
