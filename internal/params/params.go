// Package params holds the parameter bag handed to a route check.
//
// Keys are folded to a canonical form on both insert and lookup, so "ID",
// "id" and Symbol("id") all address the same entry. Insertion order is kept
// for callers that want to iterate deterministically.
package params

import (
	"fmt"
	"sort"

	"golang.org/x/text/cases"
)

// Reserved keys with special meaning to the checker.
const (
	KeyData        = "_data"
	KeyHeaders     = "_headers"
	KeyQueryString = "_query_string"
)

// Symbol is a symbol-style key. It is interchangeable with the equivalent string.
type Symbol string

func (s Symbol) String() string { return string(s) }

type entry struct {
	key   string // key as first supplied
	value any
}

// Bag is an ordered, case-insensitive mapping. The zero value is not usable; use New.
type Bag struct {
	order   []string
	entries map[string]entry
}

// New builds a Bag from m. Keys are inserted in sorted order since Go maps carry none.
func New(m map[string]any) *Bag {
	b := &Bag{entries: map[string]entry{}}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.Set(k, m[k])
	}
	return b
}

// FromPairs builds a Bag from alternating key/value arguments, keeping their order.
// Keys may be strings, Symbols or anything implementing fmt.Stringer.
func FromPairs(kv ...any) (*Bag, error) {
	if len(kv)%2 != 0 {
		return nil, fmt.Errorf("params: odd number of key/value arguments (%d)", len(kv))
	}
	b := &Bag{entries: map[string]entry{}}
	for i := 0; i < len(kv); i += 2 {
		b.Set(kv[i], kv[i+1])
	}
	return b, nil
}

// Canonical returns the folded form used for storage and lookup.
func Canonical(key any) string {
	var s string
	switch k := key.(type) {
	case string:
		s = k
	case Symbol:
		s = string(k)
	case fmt.Stringer:
		s = k.String()
	default:
		s = fmt.Sprint(k)
	}
	return cases.Fold().String(s)
}

// Set stores value under key, replacing any entry whose key folds the same way.
func (b *Bag) Set(key, value any) {
	c := Canonical(key)
	if e, ok := b.entries[c]; ok {
		e.value = value
		b.entries[c] = e
		return
	}
	b.order = append(b.order, c)
	b.entries[c] = entry{key: fmt.Sprint(key), value: value}
}

// Get returns the value stored under key.
func (b *Bag) Get(key any) (any, bool) {
	if b == nil {
		return nil, false
	}
	e, ok := b.entries[Canonical(key)]
	return e.value, ok
}

// Has reports whether key is present, regardless of its value.
func (b *Bag) Has(key any) bool {
	_, ok := b.Get(key)
	return ok
}

// Len is the number of entries.
func (b *Bag) Len() int {
	if b == nil {
		return 0
	}
	return len(b.order)
}

// Keys returns the keys as first supplied, in insertion order.
func (b *Bag) Keys() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.order))
	for _, c := range b.order {
		out = append(out, b.entries[c].key)
	}
	return out
}

// Map returns a plain copy keyed by the originally supplied keys.
func (b *Bag) Map() map[string]any {
	out := map[string]any{}
	if b == nil {
		return out
	}
	for _, c := range b.order {
		e := b.entries[c]
		out[e.key] = e.value
	}
	return out
}

// Data is the request payload under "_data", or an empty map.
func (b *Bag) Data() map[string]any { return b.subMap(KeyData) }

// Headers is the header mapping under "_headers", or an empty map.
func (b *Bag) Headers() map[string]any { return b.subMap(KeyHeaders) }

// QueryString returns the "_query_string" entry when it is present and truthy.
func (b *Bag) QueryString() (any, bool) {
	v, ok := b.Get(KeyQueryString)
	if !ok || !Truthy(v) {
		return nil, false
	}
	return v, true
}

func (b *Bag) subMap(key string) map[string]any {
	v, ok := b.Get(key)
	if !ok {
		return map[string]any{}
	}
	switch x := v.(type) {
	case map[string]any:
		return x
	case map[Symbol]any:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[string(k)] = vv
		}
		return out
	case map[string]string:
		out := make(map[string]any, len(x))
		for k, vv := range x {
			out[k] = vv
		}
		return out
	case *Bag:
		return x.Map()
	default:
		return map[string]any{}
	}
}

// Truthy reports whether v counts as a supplied value: nil and false do not.
func Truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	default:
		return true
	}
}
