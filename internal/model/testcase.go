package model

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/kyua-go/kyua/internal/errdefs"
)

// propertyKeyRE matches valid property names: lowercase dotted identifiers.
var propertyKeyRE = regexp.MustCompile(`^[a-z][a-z0-9.]*$`)

// Properties is the free-form metadata attached to a test case. Unknown
// keys are retained verbatim so that newer test programs keep working with
// older harnesses.
type Properties map[string]string

// TestCaseID identifies one test case within a test program.
type TestCaseID struct {
	Program string
	Name    string
}

func (id TestCaseID) String() string {
	return id.Program + ":" + id.Name
}

// TestCase is the unit of execution: an identifier plus its properties.
// Instances are built during the list phase and immutable afterwards.
type TestCase struct {
	ID         TestCaseID
	Properties Properties
}

// FromProperties validates the raw properties of a test case and builds the
// final value. Validation covers the property name syntax, values that must
// not embed raw newlines, numeric properties and required-program paths.
func FromProperties(id TestCaseID, props Properties) (TestCase, error) {
	if id.Name == "" {
		return TestCase{}, errdefs.Format("Empty test case name in %s", id.Program)
	}
	if strings.Contains(id.Name, "/") {
		return TestCase{}, errdefs.Format("Invalid test case name '%s'", id.Name)
	}

	clean := make(Properties, len(props))
	for key, value := range props {
		if !propertyKeyRE.MatchString(key) {
			return TestCase{}, errdefs.Format("Invalid property name '%s'", key)
		}
		if strings.ContainsAny(value, "\n\r") {
			return TestCase{}, errdefs.Format(
				"Invalid value for property '%s': contains a newline", key)
		}

		switch key {
		case "timeout":
			if _, err := parseNonNegativeInt(value); err != nil {
				return TestCase{}, errdefs.Format(
					"Invalid value '%s' for numeric property 'timeout'", value)
			}
		case "require.progs":
			for _, prog := range strings.Fields(value) {
				// A required program is either an absolute path or a plain
				// basename resolved through PATH; anything in between is a
				// mistake in the test program's metadata.
				if strings.Contains(prog, "/") && !filepath.IsAbs(prog) {
					return TestCase{}, errdefs.Format("Relative path '%s'", prog)
				}
			}
		}

		clean[key] = value
	}

	return TestCase{ID: id, Properties: clean}, nil
}

// TimeoutSeconds returns the test case's own timeout property, or ok=false
// when the property is absent. FromProperties has already validated the
// syntax so a malformed value cannot reach here.
func (tc TestCase) TimeoutSeconds() (int, bool) {
	raw, present := tc.Properties["timeout"]
	if !present {
		return 0, false
	}
	seconds, err := parseNonNegativeInt(raw)
	if err != nil {
		return 0, false
	}
	return seconds, true
}

func parseNonNegativeInt(raw string) (int, error) {
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, err
	}
	if value < 0 {
		return 0, strconv.ErrRange
	}
	return value, nil
}
