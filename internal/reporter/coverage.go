package reporter

import (
	"encoding/json"
	"io"

	"mini-apivore/internal/contract"
)

type CoverageReport struct {
	Total        int      `json:"total"`
	Covered      int      `json:"covered"`
	Percent      float64  `json:"percent"`
	CoveredSet   []string `json:"covered_set"`
	UncoveredSet []string `json:"uncovered_set"`
}

// ComputeCoverage counts exercised (method, path, status) responses.
func ComputeCoverage(cov *contract.Coverage) CoverageReport {
	all := cov.All()
	untested := cov.Untested()

	coveredList := []string{}
	uncoveredList := []string{}
	missing := map[contract.Triple]bool{}
	for _, t := range untested {
		missing[t] = true
		uncoveredList = append(uncoveredList, t.String())
	}
	for _, t := range all {
		if !missing[t] {
			coveredList = append(coveredList, t.String())
		}
	}

	return CoverageReport{
		Total:        len(all),
		Covered:      len(coveredList),
		Percent:      pct(len(coveredList), len(all)),
		CoveredSet:   coveredList,
		UncoveredSet: uncoveredList,
	}
}

func WriteCoverage(w io.Writer, cov *contract.Coverage) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ComputeCoverage(cov))
}

func pct(n, d int) float64 {
	if d == 0 {
		return 100.0
	}
	return float64(n) * 100.0 / float64(d)
}
