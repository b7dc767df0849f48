// Package tap parses the TAP 13 subset emitted by common test producers:
// a plan line, numbered ok / not ok lines with SKIP and TODO directives,
// diagnostics and bail outs. Unrecognized lines are ignored because real
// producers interleave arbitrary noise with their protocol output.
package tap

import (
	"bufio"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/kyua-go/kyua/internal/errdefs"
)

var (
	planRE      = regexp.MustCompile(`^1\.\.(\d+)\s*(?:#\s*(.*))?$`)
	testRE      = regexp.MustCompile(`^(not )?ok\b\s*(\d+)?\s*(.*)$`)
	bailRE      = regexp.MustCompile(`^Bail out!\s*(.*)$`)
	directiveRE = regexp.MustCompile(`(?i)^\s*(skip|todo)\b\s*(.*)$`)
)

// Summary is the digested outcome of a TAP stream: the plan, the counters
// of distinct ok / not ok test numbers, and the first diagnostic that
// followed a failure.
type Summary struct {
	bailedOut  bool
	bailReason string

	allSkipped bool
	skipReason string

	planFirst int
	planLast  int

	okCount      int
	notOkCount   int
	firstFailure string
}

// BailedOut reports whether the producer aborted the run with "Bail out!".
func (s *Summary) BailedOut() bool {
	return s.bailedOut
}

// BailReason returns the text following "Bail out!", if any.
func (s *Summary) BailReason() string {
	return s.bailReason
}

// AllSkipped reports whether the plan was "1..0", with or without a
// "# SKIP ..." directive.
func (s *Summary) AllSkipped() bool {
	return s.allSkipped
}

// SkipReason returns the reason attached to an all-skipped plan.
func (s *Summary) SkipReason() string {
	return s.skipReason
}

// Plan returns the first and last test numbers of an explicit plan.
func (s *Summary) Plan() (first, last int) {
	return s.planFirst, s.planLast
}

// OkCount returns the number of distinct test numbers reported as ok,
// including those skipped via a SKIP directive.
func (s *Summary) OkCount() int {
	return s.okCount
}

// NotOkCount returns the number of distinct test numbers reported as not ok.
func (s *Summary) NotOkCount() int {
	return s.notOkCount
}

// TotalCount returns how many distinct test results the stream carried.
func (s *Summary) TotalCount() int {
	return s.okCount + s.notOkCount
}

// FirstFailure returns the first diagnostic line that immediately followed
// a not ok line, or the empty string.
func (s *Summary) FirstFailure() string {
	return s.firstFailure
}

// ParseFile parses the TAP output stored at path.
func ParseFile(path string) (*Summary, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse consumes a TAP stream line by line and produces its summary. Bad
// plans are reported as FormatError; everything the grammar does not know
// is skipped silently. Parsing stops at EOF or at a bail out.
func Parse(r io.Reader) (*Summary, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	summary := &Summary{}

	sawPlan := false
	sawTests := false
	maxSeen := 0
	seenOk := make(map[int]bool)
	seenNotOk := make(map[int]bool)
	lastWasNotOk := false

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")

		if m := bailRE.FindStringSubmatch(line); m != nil {
			summary.bailedOut = true
			summary.bailReason = strings.TrimSpace(m[1])
			break
		}

		if m := planRE.FindStringSubmatch(line); m != nil {
			if sawPlan || summary.allSkipped {
				return nil, errdefs.Format("Found two test plans in the TAP output")
			}
			count, err := strconv.Atoi(m[1])
			if err != nil {
				return nil, errdefs.Format("Invalid test plan '%s'", line)
			}

			if count == 0 {
				summary.allSkipped = true
				if dm := directiveRE.FindStringSubmatch(m[2]); dm != nil &&
					strings.EqualFold(dm[1], "skip") {
					summary.skipReason = strings.TrimSpace(dm[2])
				}
			} else {
				sawPlan = true
				summary.planFirst = 1
				summary.planLast = count
				if maxSeen > count {
					return nil, errdefs.Format(
						"Reported test number %d is out of the plan's range", maxSeen)
				}
			}
			lastWasNotOk = false
			continue
		}

		if m := testRE.FindStringSubmatch(line); m != nil {
			sawTests = true

			number := maxSeen + 1
			if m[2] != "" {
				parsed, err := strconv.Atoi(m[2])
				if err != nil {
					return nil, errdefs.Format("Invalid test number in '%s'", line)
				}
				number = parsed
			}
			if number < 1 || (sawPlan && number > summary.planLast) {
				return nil, errdefs.Format(
					"Reported test number %d is out of the plan's range", number)
			}
			if number > maxSeen {
				maxSeen = number
			}

			if seenOk[number] || seenNotOk[number] {
				// Duplicate report of the same test number; only distinct
				// numbers count.
				lastWasNotOk = false
				continue
			}

			notOk := m[1] != ""
			if dm := directiveRE.FindStringSubmatch(afterHash(m[3])); dm != nil {
				if strings.EqualFold(dm[1], "skip") {
					// A skipped test counts as ok even when reported not ok.
					notOk = false
				}
				// TODO leaves the ok / not ok classification untouched.
			}

			if notOk {
				seenNotOk[number] = true
				summary.notOkCount++
			} else {
				seenOk[number] = true
				summary.okCount++
			}
			lastWasNotOk = notOk
			continue
		}

		if strings.HasPrefix(line, "#") {
			if lastWasNotOk && summary.firstFailure == "" {
				summary.firstFailure = strings.TrimSpace(strings.TrimPrefix(line, "#"))
			}
			lastWasNotOk = false
			continue
		}

		// Arbitrary producer noise.
		lastWasNotOk = false
	}
	if err := scanner.Err(); err != nil {
		return nil, errdefs.System(err, "failed to read TAP output")
	}

	if summary.bailedOut || summary.allSkipped {
		return summary, nil
	}

	if !sawPlan {
		if !sawTests {
			return nil, errdefs.Format("TAP output does not contain a test plan")
		}
		// A missing plan is tolerated when at least one test line showed up:
		// assume the producer meant to run everything it reported.
		summary.planFirst = 1
		summary.planLast = maxSeen
	}

	return summary, nil
}

// afterHash returns the directive portion of a test line: everything past
// the first '#', or the empty string when the line has no directive.
func afterHash(rest string) string {
	_, directive, ok := strings.Cut(rest, "#")
	if !ok {
		return ""
	}
	return directive
}
