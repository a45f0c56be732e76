package contract

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"mini-apivore/internal/status"
)

// Triple identifies one documented response.
type Triple struct {
	Path   string `json:"path"`
	Method string `json:"method"`
	Status string `json:"status"`
}

func (t Triple) String() string {
	return fmt.Sprintf("%s %s %s", strings.ToUpper(t.Method), t.Path, t.Status)
}

// Coverage decorates a Store with bookkeeping of exercised responses.
// It is safe for concurrent use.
type Coverage struct {
	*Store

	mu        sync.Mutex
	all       []Triple
	exercised map[Triple]bool
}

// NewCoverage seeds every documented triple as untested.
func NewCoverage(s *Store) *Coverage {
	return &Coverage{Store: s, all: s.Triples(), exercised: map[Triple]bool{}}
}

// MarkExercised records the triple if the document declares it.
func (c *Coverage) MarkExercised(path, verb string, st status.Expected) {
	key, ok := c.responseKey(path, verb, st)
	if !ok {
		return
	}
	t := Triple{Path: path, Method: strings.ToLower(verb), Status: key}
	c.mu.Lock()
	c.exercised[t] = true
	c.mu.Unlock()
}

// All lists every documented triple.
func (c *Coverage) All() []Triple {
	return append([]Triple(nil), c.all...)
}

// Exercised lists the triples marked so far, sorted.
func (c *Coverage) Exercised() []Triple {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Triple, 0, len(c.exercised))
	for t := range c.exercised {
		out = append(out, t)
	}
	sortTriples(out)
	return out
}

// Untested lists documented triples not yet exercised, sorted.
func (c *Coverage) Untested() []Triple {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Triple
	for _, t := range c.all {
		if !c.exercised[t] {
			out = append(out, t)
		}
	}
	return out
}

// AllTested reports whether every documented response was exercised.
func (c *Coverage) AllTested() bool { return len(c.Untested()) == 0 }

func sortTriples(ts []Triple) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Path != ts[j].Path {
			return ts[i].Path < ts[j].Path
		}
		if ts[i].Method != ts[j].Method {
			return ts[i].Method < ts[j].Method
		}
		return ts[i].Status < ts[j].Status
	})
}
