// Package engine implements the execution core of the harness: the closed
// set of test interfaces (atf, tap, plain) and the runner that drives one
// test case at a time through a controlled subprocess.
package engine

import (
	"fmt"
	"sort"
	"time"

	"github.com/kyua-go/kyua/internal/errdefs"
	"github.com/kyua-go/kyua/internal/execenv"
	"github.com/kyua-go/kyua/internal/model"
)

// DefaultTimeout is the per-case deadline applied when neither the test
// case nor its program carries one.
const DefaultTimeout = 300 * time.Second

// Interface is the contract every test framework family implements. The
// two *Command operations describe the child process to spawn (ListCommand
// returns nil when no subprocess is needed); the runner owns the spawning, output
// capture and reaping. ParseList and ComputeResult digest the captured
// artifacts afterwards.
type Interface interface {
	// Name returns the interface's identifier in the closed set.
	Name() string

	// ListCommand describes the child that enumerates the program's test
	// cases, or nil when the family has no native listing.
	ListCommand(tp *model.TestProgram) *execenv.Command

	// ParseList builds the test case list from the captured artifacts of
	// the list child. status is nil when the child timed out.
	ParseList(status *execenv.Status, stdoutPath, stderrPath string,
		tp *model.TestProgram) ([]model.TestCase, error)

	// TestCommand describes the child that executes one test case. The
	// interface may claim files inside controlDir for its own protocol.
	TestCommand(tp *model.TestProgram, caseName, controlDir string) *execenv.Command

	// ComputeResult classifies the outcome of an executed test case from
	// its termination status and the captured artifacts. status is nil
	// when the case timed out.
	ComputeResult(status *execenv.Status, controlDir, stdoutPath,
		stderrPath string) model.Result
}

// interfaces is the closed registry. Adding a test framework family means
// adding one implementation file and one entry here; the runner and the
// CLI stay untouched.
var interfaces = map[string]Interface{
	"atf":   &atfInterface{},
	"tap":   &tapInterface{},
	"plain": &plainInterface{},
}

// Lookup resolves a test interface by name.
func Lookup(name string) (Interface, error) {
	iface, ok := interfaces[name]
	if !ok {
		return nil, errdefs.Usage("Unknown test interface '%s'", name)
	}
	return iface, nil
}

// Names returns the known interface names in sorted order.
func Names() []string {
	names := make([]string, 0, len(interfaces))
	for name := range interfaces {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// preclassify handles the outcomes common to every interface: a timed out
// child and a signal-induced death. ok is false when the status needs
// interface-specific classification.
func preclassify(status *execenv.Status) (result model.Result, ok bool) {
	if status == nil {
		return model.Broken("Test case timed out"), true
	}
	if status.Signaled {
		return model.Broken(fmt.Sprintf("Received signal %d", int(status.Signal))), true
	}
	return model.Result{}, false
}

// singleCaseList fabricates the one-element case list used by interfaces
// without native listing.
func singleCaseList(tp *model.TestProgram) ([]model.TestCase, error) {
	tc, err := model.FromProperties(
		model.TestCaseID{Program: tp.Path, Name: "main"}, nil)
	if err != nil {
		return nil, err
	}
	return []model.TestCase{tc}, nil
}
