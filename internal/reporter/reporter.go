package reporter

import (
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"mini-apivore/internal/executor"
)

// -------- JSON --------

func WriteJSON(w io.Writer, res *executor.SuiteResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

// -------- JUnit XML --------

// Minimal JUnit schema: testsuite -> testcase (+failure | +error)
type junitTestsuite struct {
	XMLName  xml.Name        `xml:"testsuite"`
	Name     string          `xml:"name,attr"`
	Tests    int             `xml:"tests,attr"`
	Failures int             `xml:"failures,attr"`
	Errors   int             `xml:"errors,attr"`
	Time     string          `xml:"time,attr"`
	Testcase []junitTestcase `xml:"testcase"`
}

type junitTestcase struct {
	Classname string        `xml:"classname,attr"`
	Name      string        `xml:"name,attr"`
	Time      string        `xml:"time,attr"`
	Failure   *junitFailure `xml:"failure,omitempty"`
	Error     *junitFailure `xml:"error,omitempty"`
}

type junitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Text    string `xml:",chardata"`
}

// WriteJUnit reports contract mismatches as failures and aborted checks as errors.
func WriteJUnit(w io.Writer, suiteName string, res *executor.SuiteResult) error {
	_, failures, errs := res.Counts()
	cases := make([]junitTestcase, 0, len(res.Checks))

	for _, c := range res.Checks {
		tc := junitTestcase{
			Classname: suiteName,
			Name:      c.Name,
			Time:      fmt.Sprintf("%.3f", c.DurationMs/1000.0),
		}
		if !c.Passed {
			msg := "assertion failed"
			if len(c.Diagnostics) > 0 {
				msg = strings.TrimSpace(c.Diagnostics[0])
			}
			f := &junitFailure{Message: msg, Type: "ContractMismatch", Text: strings.Join(c.Diagnostics, "\n")}
			if c.Fatal {
				f.Type = "Fatal:" + c.FatalKind
				tc.Error = f
			} else {
				tc.Failure = f
			}
		}
		cases = append(cases, tc)
	}

	ts := junitTestsuite{
		Name:     suiteName,
		Tests:    len(res.Checks),
		Failures: failures,
		Errors:   errs,
		Time:     fmt.Sprintf("%.3f", res.DurationMs/1000.0),
		Testcase: cases,
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	return enc.Encode(ts)
}
