// Package atf implements the parsers for the ATF test framework's on-disk
// protocol: the test case list emitted by a test program's -l flag and the
// single-line result file written by an executed test case.
package atf

import (
	"bufio"
	"io"
	"strings"

	"github.com/kyua-go/kyua/internal/errdefs"
	"github.com/kyua-go/kyua/internal/model"
)

// listHeader is the first line of a test case list, including the only
// supported format version.
const listHeader = `Content-Type: application/X-atf-tp; version="1"`

// ParseTestCases consumes the output of a test program's list operation and
// returns its test cases in textual order. Any deviation from the format is
// reported as a FormatError; the function never panics on bad input.
func ParseTestCases(programPath string, r io.Reader) ([]model.TestCase, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	line, eof, err := nextLine(scanner)
	if err != nil {
		return nil, err
	}
	if eof || line != listHeader {
		return nil, errdefs.Format("Invalid header for test case list; "+
			"expecting Content-Type for application/X-atf-tp version 1, got '%s'",
			line)
	}

	line, eof, err = nextLine(scanner)
	if err != nil {
		return nil, err
	}
	if eof || line != "" {
		return nil, errdefs.Format("Invalid header for test case list; "+
			"expecting a blank line, got '%s'", line)
	}

	var cases []model.TestCase
	seen := make(map[string]bool)

	var name string
	var props model.Properties

	flush := func() error {
		if name == "" {
			return nil
		}
		tc, err := model.FromProperties(
			model.TestCaseID{Program: programPath, Name: name}, props)
		if err != nil {
			return err
		}
		cases = append(cases, tc)
		name = ""
		props = nil
		return nil
	}

	for {
		line, eof, err = nextLine(scanner)
		if err != nil {
			return nil, err
		}
		if eof {
			break
		}
		if line == "" {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}

		key, value, ok := strings.Cut(line, ": ")
		if !ok || key == "" {
			return nil, errdefs.Format("Invalid property line '%s' in test case list", line)
		}

		if key == "ident" {
			if err := flush(); err != nil {
				return nil, err
			}
			if seen[value] {
				return nil, errdefs.Format("Duplicate test case identifier '%s'", value)
			}
			seen[value] = true
			name = value
			props = make(model.Properties)
		} else {
			if name == "" {
				return nil, errdefs.Format(
					"Found property '%s' not preceeded by the test case identifier", key)
			}
			props[key] = value
		}
	}
	if err := flush(); err != nil {
		return nil, err
	}

	if len(cases) == 0 {
		return nil, errdefs.Format("No test cases")
	}
	return cases, nil
}

// nextLine returns the next input line with any trailing CR stripped, or
// eof=true once the stream is exhausted.
func nextLine(scanner *bufio.Scanner) (string, bool, error) {
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", false, errdefs.System(err, "failed to read test case list")
		}
		return "", true, nil
	}
	return strings.TrimSuffix(scanner.Text(), "\r"), false, nil
}
