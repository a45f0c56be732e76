// Package status normalizes the expected response status of a route check.
package status

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// DefaultCode is what a "default" expectation is compared against.
const DefaultCode = 200

// Expected is either an integer status or an opaque string such as "default".
type Expected struct {
	code  int
	raw   string
	isInt bool
}

// Parse normalizes v once. Integers and canonical digit strings ("200", "-1")
// become integers; everything else keeps its string form.
func Parse(v any) Expected {
	switch x := v.(type) {
	case int:
		return Code(x)
	case int32:
		return Code(int(x))
	case int64:
		return Code(int(x))
	case uint:
		return Code(int(x))
	case float64:
		if x == math.Trunc(x) && !math.IsInf(x, 0) {
			return Code(int(x))
		}
		return Expected{raw: strconv.FormatFloat(x, 'f', -1, 64)}
	case Expected:
		return x
	}
	s := fmt.Sprint(v)
	if n, err := strconv.Atoi(s); err == nil && strconv.Itoa(n) == s {
		return Code(n)
	}
	return Expected{raw: s}
}

// Code builds an integer expectation.
func Code(n int) Expected { return Expected{code: n, raw: strconv.Itoa(n), isInt: true} }

// IsInt reports whether the expectation is numeric.
func (e Expected) IsInt() bool { return e.isInt }

// Int returns the numeric value; zero for string expectations.
func (e Expected) Int() int { return e.code }

// IsDefault matches "default" anywhere in the string form, ignoring case.
func (e Expected) IsDefault() bool {
	return !e.isInt && strings.Contains(strings.ToLower(e.raw), "default")
}

// Effective is the status code a response is compared against.
// ok is false for string expectations other than the default sentinel.
func (e Expected) Effective() (code int, ok bool) {
	switch {
	case e.isInt:
		return e.code, true
	case e.IsDefault():
		return DefaultCode, true
	default:
		return 0, false
	}
}

// Matches reports whether actual satisfies the expectation.
func (e Expected) Matches(actual int) bool {
	want, ok := e.Effective()
	return ok && want == actual
}

// Key is the form used to look the status up in a contract document.
func (e Expected) Key() string { return e.raw }

func (e Expected) String() string { return e.raw }
