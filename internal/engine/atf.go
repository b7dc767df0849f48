package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/kyua-go/kyua/internal/atf"
	"github.com/kyua-go/kyua/internal/errdefs"
	"github.com/kyua-go/kyua/internal/execenv"
	"github.com/kyua-go/kyua/internal/model"
)

// atfRunMarker tells ATF test programs they are being driven by a runner
// rather than invoked by hand.
const atfRunMarker = "__RUNNING_INSIDE_ATF_RUN=internal-yes-value"

// atfResultName is the control file an ATF test case writes its outcome to.
const atfResultName = "result"

// atfInterface drives test programs built against the Automated Testing
// Framework: listing happens through -l and results come back through a
// single-line result file in the control directory.
type atfInterface struct{}

func (i *atfInterface) Name() string {
	return "atf"
}

func (i *atfInterface) ListCommand(tp *model.TestProgram) *execenv.Command {
	return &execenv.Command{
		Path:     tp.Path,
		Args:     []string{"-l"},
		ExtraEnv: []string{atfRunMarker},
	}
}

func (i *atfInterface) ParseList(status *execenv.Status, stdoutPath,
	_ string, tp *model.TestProgram) ([]model.TestCase, error) {
	if status == nil || !status.Exited || status.ExitCode != 0 {
		return nil, errdefs.Load(nil, "test program failed (%s)", status)
	}

	f, err := os.Open(stdoutPath)
	if err != nil {
		return nil, errdefs.System(err, "failed to open captured list output")
	}
	defer f.Close()
	return atf.ParseTestCases(tp.Path, f)
}

func (i *atfInterface) TestCommand(tp *model.TestProgram, caseName,
	controlDir string) *execenv.Command {
	return &execenv.Command{
		Path:     tp.Path,
		Args:     []string{"-r", filepath.Join(controlDir, atfResultName), caseName},
		ExtraEnv: []string{atfRunMarker},
	}
}

func (i *atfInterface) ComputeResult(status *execenv.Status, controlDir,
	_, _ string) model.Result {
	if result, done := preclassify(status); done {
		return result
	}

	result, err := atf.ParseResultFile(filepath.Join(controlDir, atfResultName))
	if err != nil {
		if os.IsNotExist(err) {
			return model.Broken(fmt.Sprintf(
				"Premature exit; test case exited with code %d", status.ExitCode))
		}
		return model.Broken(fmt.Sprintf(
			"Test case result file is invalid: %s", err.Error()))
	}
	return result
}
