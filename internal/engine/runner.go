package engine

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/kyua-go/kyua/internal/errdefs"
	"github.com/kyua-go/kyua/internal/execenv"
	"github.com/kyua-go/kyua/internal/model"
)

// ErrInterrupted is returned by Run when the caller's context was canceled
// while a test case was in flight. The case itself is reported as broken;
// callers observing this error stop enqueueing further cases.
var ErrInterrupted = errors.New("interrupted")

// stdoutName and stderrName are the capture files inside each control
// directory.
const (
	stdoutName = "stdout"
	stderrName = "stderr"
)

// Runner executes test cases one at a time. Each invocation owns a fresh,
// unguessably named control directory under the runner's work area, so
// multiple runner instances never collide.
type Runner struct {
	workDir   string
	ownsWork  bool
	vars      map[string]string
	keep      bool
	killGrace time.Duration
}

// NewRunner creates a runner whose control directories live under workDir.
// An empty workDir allocates a private temporary area that Cleanup removes.
// vars are the user variables exported to every test as TEST_ENV_*;
// keepArtifacts retains the control directory of non-passing cases.
func NewRunner(workDir string, vars map[string]string, keepArtifacts bool) (*Runner, error) {
	ownsWork := false
	if workDir == "" {
		tmp, err := os.MkdirTemp("", "kyua.*")
		if err != nil {
			return nil, errdefs.System(err, "failed to create work directory")
		}
		workDir = tmp
		ownsWork = true
	}

	return &Runner{
		workDir:   workDir,
		ownsWork:  ownsWork,
		vars:      vars,
		keep:      keepArtifacts,
		killGrace: 5 * time.Second,
	}, nil
}

// Cleanup removes the runner's private work area, if it owns one. When
// artifact retention is on the area is left behind so that the control
// directories of non-passing cases stay inspectable.
func (r *Runner) Cleanup() {
	if r.ownsWork && !r.keep {
		os.RemoveAll(r.workDir)
	}
}

// WorkDir returns the directory under which control directories are made.
func (r *Runner) WorkDir() string {
	return r.workDir
}

// List enumerates the test cases of a test program, running its list
// operation in a subprocess when the interface has one. The returned order
// is the program's own.
func (r *Runner) List(ctx context.Context, tp *model.TestProgram) ([]model.TestCase, error) {
	iface, err := Lookup(tp.Interface)
	if err != nil {
		return nil, err
	}

	spec := iface.ListCommand(tp)
	if spec == nil {
		return iface.ParseList(execenv.StatusExited(0), "", "", tp)
	}

	inv, err := r.newInvocation()
	if err != nil {
		return nil, err
	}
	defer inv.discard()

	status, err := r.execute(ctx, spec, inv, timeoutFor(tp, model.TestCase{}))
	if err != nil {
		return nil, err
	}
	return iface.ParseList(status, inv.stdoutPath, inv.stderrPath, tp)
}

// Run executes one test case and classifies its outcome. Parse and load
// failures become broken results; only an unknown interface name and
// OS-level failures are returned as errors. On context cancellation the in-flight child is terminated, the
// result is broken("Interrupted") and the error is ErrInterrupted.
func (r *Runner) Run(ctx context.Context, tp *model.TestProgram, tc model.TestCase) (model.Result, error) {
	iface, err := Lookup(tp.Interface)
	if err != nil {
		return model.Result{}, err
	}

	inv, err := r.newInvocation()
	if err != nil {
		return model.Result{}, err
	}

	spec := iface.TestCommand(tp, tc.ID.Name, inv.controlDir)
	status, execErr := r.execute(ctx, spec, inv, timeoutFor(tp, tc))
	inv.close()

	var result model.Result
	switch {
	case execErr == nil:
		result = iface.ComputeResult(status, inv.controlDir, inv.stdoutPath, inv.stderrPath)
	case errors.Is(execErr, ErrInterrupted):
		result = model.Broken("Interrupted")
	case errdefs.IsLoad(execErr) || errdefs.IsFormat(execErr):
		// An ill-behaved test program must not abort the run.
		result = model.Broken(execErr.Error())
		execErr = nil
	default:
		inv.remove()
		return model.Result{}, execErr
	}

	if result.Kind == model.ResultPassed || !r.keep {
		inv.remove()
	}

	if errors.Is(execErr, ErrInterrupted) {
		return result, ErrInterrupted
	}
	return result, nil
}

// timeoutFor picks the deadline of one test case invocation: the case's
// own timeout property wins, then the program's default, then the global
// default.
func timeoutFor(tp *model.TestProgram, tc model.TestCase) time.Duration {
	if seconds, ok := tc.TimeoutSeconds(); ok && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if tp.DefaultTimeout > 0 {
		return tp.DefaultTimeout
	}
	return DefaultTimeout
}

// invocation is the on-disk state of one subprocess run: the control
// directory plus the stdout and stderr capture files inside it.
type invocation struct {
	controlDir string
	stdoutPath string
	stderrPath string
	stdout     *os.File
	stderr     *os.File
}

func (r *Runner) newInvocation() (*invocation, error) {
	controlDir := filepath.Join(r.workDir, uuid.NewString())
	if err := os.Mkdir(controlDir, 0700); err != nil {
		return nil, errdefs.System(err, "failed to create control directory")
	}

	inv := &invocation{
		controlDir: controlDir,
		stdoutPath: filepath.Join(controlDir, stdoutName),
		stderrPath: filepath.Join(controlDir, stderrName),
	}

	var err error
	if inv.stdout, err = os.Create(inv.stdoutPath); err != nil {
		inv.remove()
		return nil, errdefs.System(err, "failed to create stdout capture file")
	}
	if inv.stderr, err = os.Create(inv.stderrPath); err != nil {
		inv.close()
		inv.remove()
		return nil, errdefs.System(err, "failed to create stderr capture file")
	}
	return inv, nil
}

func (inv *invocation) close() {
	if inv.stdout != nil {
		inv.stdout.Close()
		inv.stdout = nil
	}
	if inv.stderr != nil {
		inv.stderr.Close()
		inv.stderr = nil
	}
}

func (inv *invocation) remove() {
	os.RemoveAll(inv.controlDir)
}

// discard closes and deletes the invocation unconditionally.
func (inv *invocation) discard() {
	inv.close()
	inv.remove()
}

// execute spawns the described child with its stdout and stderr redirected
// to the capture files, waits for it under the given deadline and returns
// its termination status. A nil status means the deadline fired and the
// child was killed.
func (r *Runner) execute(ctx context.Context, spec *execenv.Command,
	inv *invocation, timeout time.Duration) (*execenv.Status, error) {
	cmd := exec.Command(spec.Path, spec.Args...)
	cmd.Dir = inv.controlDir
	cmd.Env = execenv.ChildEnv(r.vars, inv.controlDir, spec.ExtraEnv)
	cmd.Stderr = inv.stderr

	var stdout io.Writer = inv.stdout
	if spec.TeeStdout != "" {
		tee, err := os.Create(spec.TeeStdout)
		if err != nil {
			return nil, errdefs.System(err, "failed to create tee file in control directory")
		}
		defer tee.Close()
		stdout = io.MultiWriter(inv.stdout, tee)
	}
	cmd.Stdout = stdout

	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return nil, errdefs.Load(err, "Failed to execute %s", spec.Path)
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var status *execenv.Status
	var runErr error
	select {
	case waitErr := <-done:
		status, runErr = statusFromWait(cmd, waitErr)
	case <-timer.C:
		r.reapAfterKill(cmd, done)
		status = nil
	case <-ctx.Done():
		r.reapAfterKill(cmd, done)
		runErr = ErrInterrupted
	}

	if spec.StderrNote != "" && runErr == nil {
		if _, err := inv.stderr.WriteString(spec.StderrNote); err != nil {
			return nil, errdefs.System(err, "failed to write to stderr capture file")
		}
	}
	return status, runErr
}

// reapAfterKill terminates the child's process group and waits for the
// wait goroutine to reap it: SIGTERM first, then SIGKILL once the grace
// period expires.
func (r *Runner) reapAfterKill(cmd *exec.Cmd, done <-chan error) {
	signalProcessGroup(cmd, false)
	select {
	case <-done:
	case <-time.After(r.killGrace):
		signalProcessGroup(cmd, true)
		<-done
	}
}

// statusFromWait decodes the result of Wait into a termination status.
func statusFromWait(cmd *exec.Cmd, waitErr error) (*execenv.Status, error) {
	if waitErr == nil {
		return execenv.StatusFromProcessState(cmd.ProcessState), nil
	}
	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		return execenv.StatusFromProcessState(exitErr.ProcessState), nil
	}
	return nil, errdefs.System(waitErr, "failed to wait for test subprocess")
}
