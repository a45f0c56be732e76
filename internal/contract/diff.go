package contract

import (
	"sort"
	"strings"
)

type OpSig struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

// JSON-friendly representation of a status change for a single op
type StatusChange struct {
	Method string   `json:"method"`
	Path   string   `json:"path"`
	A      []string `json:"a"`
	B      []string `json:"b"`
}

type DiffReport struct {
	Added         []OpSig        `json:"added"`          // present in B, not in A
	Removed       []OpSig        `json:"removed"`        // present in A, not in B
	ChangedStatus []StatusChange `json:"changed_status"` // same op, different status sets
	BasePathA     string         `json:"base_path_a,omitempty"`
	BasePathB     string         `json:"base_path_b,omitempty"`
}

// Empty reports whether the two documents declare the same operations and statuses.
func (r DiffReport) Empty() bool {
	return len(r.Added) == 0 && len(r.Removed) == 0 && len(r.ChangedStatus) == 0 && r.BasePathA == r.BasePathB
}

func Diff(a, b *Store) DiffReport {
	opsA := statusSets(a)
	opsB := statusSets(b)

	var added, removed []OpSig
	var changed []StatusChange
	for op := range opsB {
		if _, ok := opsA[op]; !ok {
			added = append(added, op)
		}
	}
	for op, as := range opsA {
		bs, ok := opsB[op]
		if !ok {
			removed = append(removed, op)
			continue
		}
		if !equalStrSet(as, bs) {
			changed = append(changed, StatusChange{
				Method: op.Method,
				Path:   op.Path,
				A:      toSortedSlice(as),
				B:      toSortedSlice(bs),
			})
		}
	}

	sortOps(added)
	sortOps(removed)
	sort.Slice(changed, func(i, j int) bool {
		if changed[i].Path == changed[j].Path {
			return changed[i].Method < changed[j].Method
		}
		return changed[i].Path < changed[j].Path
	})

	rep := DiffReport{Added: added, Removed: removed, ChangedStatus: changed}
	if a.BasePath() != b.BasePath() {
		rep.BasePathA, rep.BasePathB = a.BasePath(), b.BasePath()
	}
	return rep
}

// statusSets groups the store's triples by operation. Operations without
// responses still appear, with an empty set.
func statusSets(s *Store) map[OpSig]map[string]bool {
	out := map[OpSig]map[string]bool{}
	if s.doc == nil || s.doc.Paths == nil {
		return out
	}
	for p, pi := range s.doc.Paths.Map() {
		if pi == nil {
			continue
		}
		for m := range pi.Operations() {
			out[OpSig{Method: strings.ToUpper(m), Path: p}] = map[string]bool{}
		}
	}
	for _, t := range s.Triples() {
		out[OpSig{Method: strings.ToUpper(t.Method), Path: t.Path}][t.Status] = true
	}
	return out
}

func equalStrSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

func toSortedSlice(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func sortOps(ops []OpSig) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].Path == ops[j].Path {
			return ops[i].Method < ops[j].Method
		}
		return ops[i].Path < ops[j].Path
	})
}
