package engine

import (
	"fmt"

	"github.com/kyua-go/kyua/internal/execenv"
	"github.com/kyua-go/kyua/internal/model"
)

// plainInterface drives test programs that follow no framework at all:
// one case named main whose outcome is the process exit status.
type plainInterface struct{}

func (i *plainInterface) Name() string {
	return "plain"
}

func (i *plainInterface) ListCommand(*model.TestProgram) *execenv.Command {
	return nil
}

func (i *plainInterface) ParseList(_ *execenv.Status, _, _ string,
	tp *model.TestProgram) ([]model.TestCase, error) {
	return singleCaseList(tp)
}

func (i *plainInterface) TestCommand(tp *model.TestProgram, _,
	_ string) *execenv.Command {
	return &execenv.Command{Path: tp.Path}
}

func (i *plainInterface) ComputeResult(status *execenv.Status, _, _,
	_ string) model.Result {
	if result, done := preclassify(status); done {
		return result
	}
	if status.ExitCode == 0 {
		return model.Passed()
	}
	return model.Failed(fmt.Sprintf("Received exit code %d", status.ExitCode))
}
