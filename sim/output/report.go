package output

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/resbridge/resbridge/sim"
)

// failureMarkers are report lines that mean the run did not reach the end
// of its schedule. The first match becomes the convergence failure reason.
var failureMarkers = []string{
	"CONVERGENCE FAILURE",
	"TOO SMALL TIME STEP",
	"SIMULATION ABORTED",
	"SOLVER DIVERGED",
}

// cutMarkers are report lines that indicate a time-step reduction.
var cutMarkers = []string{
	"TIME STEP CHOP",
	"CHOPPING TIME STEP",
	"TIMESTEP CUT",
	"RETRY WITH REDUCED",
}

// maxReportWarnings bounds how many warning lines a convergence record
// collects from one report.
const maxReportWarnings = 50

// ScanReportFile scans the run report at path into res.Convergence.
func ScanReportFile(path string, res *sim.UnifiedResult) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening run report: %w", err)
	}
	defer f.Close()
	return ScanReport(path, f, res)
}

// ScanReport scans a human-readable run report for convergence-failure
// markers, time-step reductions and warnings, updating res.Convergence in
// place. Finding a failure marker does not raise: the time series already
// read stay on the result and the convergence record is simply marked
// incomplete, so callers keep partial results for diagnosis.
func ScanReport(src string, r io.Reader, res *sim.UnifiedResult) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	num := 0
	for sc.Scan() {
		num++
		line := strings.TrimSpace(sc.Text())
		upper := strings.ToUpper(line)

		if marker := firstMatch(upper, failureMarkers); marker != "" {
			if res.Convergence.Completed {
				res.Convergence.Completed = false
				res.Convergence.FailureReason = line
				logrus.Warnf("report %s:%d: %s", src, num, line)
			}
			continue
		}
		if firstMatch(upper, cutMarkers) != "" {
			res.Convergence.TimestepCuts++
			continue
		}
		if strings.Contains(upper, "WARNING") && len(res.Convergence.Warnings) < maxReportWarnings {
			res.Convergence.Warnings = append(res.Convergence.Warnings, line)
		}
	}
	if err := sc.Err(); err != nil {
		return &sim.ParseError{Source: src, Line: num, Msg: err.Error()}
	}
	return nil
}

func firstMatch(line string, markers []string) string {
	for _, m := range markers {
		if strings.Contains(line, m) {
			return m
		}
	}
	return ""
}
