package engine

import (
	"fmt"
	"path/filepath"

	"github.com/kyua-go/kyua/internal/execenv"
	"github.com/kyua-go/kyua/internal/model"
	"github.com/kyua-go/kyua/internal/tap"
)

// tapOutputName is the re-captured stdout of a TAP test program.
const tapOutputName = "tap-output.txt"

// tapStderrWarning is appended to the stderr capture of every TAP test so
// that users know where the protocol output went.
const tapStderrWarning = "(Due to a known shortcoming in the TAP interface, " +
	"the stderr output of the TAP test program was merged into the stdout " +
	"output.)\n"

// tapInterface drives test programs that speak the Test Anything Protocol.
// TAP programs emit their protocol on stdout, which the user also wants to
// see, so the runner tees the stream into the control directory and the
// classification reads the copy.
type tapInterface struct{}

func (i *tapInterface) Name() string {
	return "tap"
}

// ListCommand returns nil: TAP has no native listing and the whole program
// runs as a single case named main.
func (i *tapInterface) ListCommand(*model.TestProgram) *execenv.Command {
	return nil
}

func (i *tapInterface) ParseList(_ *execenv.Status, _, _ string,
	tp *model.TestProgram) ([]model.TestCase, error) {
	return singleCaseList(tp)
}

func (i *tapInterface) TestCommand(tp *model.TestProgram, _,
	controlDir string) *execenv.Command {
	return &execenv.Command{
		Path:       tp.Path,
		TeeStdout:  filepath.Join(controlDir, tapOutputName),
		StderrNote: tapStderrWarning,
	}
}

func (i *tapInterface) ComputeResult(status *execenv.Status, controlDir,
	_, _ string) model.Result {
	if result, done := preclassify(status); done {
		return result
	}

	summary, err := tap.ParseFile(filepath.Join(controlDir, tapOutputName))
	if err != nil {
		return model.Broken(fmt.Sprintf(
			"TAP test program yielded invalid data: %s", err.Error()))
	}
	return tapToResult(summary, status)
}

// tapToResult maps a parsed TAP summary and the program's exit status to a
// test result. Timeouts and invalid TAP data are the caller's problem; by
// this point the summary is known good and the status is a normal exit.
func tapToResult(summary *tap.Summary, status *execenv.Status) model.Result {
	if summary.BailedOut() {
		return model.Failed("Bailed out")
	}

	if summary.AllSkipped() {
		reason := summary.SkipReason()
		if reason == "" {
			reason = "No reason specified"
		}
		return model.Skipped(reason)
	}

	if summary.NotOkCount() == 0 {
		if status.ExitCode == 0 {
			return model.Passed()
		}
		return model.Broken(fmt.Sprintf(
			"Dubious test program: reported all tests as passed "+
				"but returned exit code %d", status.ExitCode))
	}

	return model.Failed(fmt.Sprintf("%d of %d tests failed",
		summary.NotOkCount(), summary.TotalCount()))
}
