package engine

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kyua-go/kyua/internal/errdefs"
	"github.com/kyua-go/kyua/internal/model"
)

// writeScript drops an executable shell script into dir and returns its path.
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0755))
	return path
}

func newTestRunner(t *testing.T, vars map[string]string, keep bool) *Runner {
	t.Helper()
	runner, err := NewRunner(t.TempDir(), vars, keep)
	require.NoError(t, err)
	return runner
}

func plainProgram(path string) *model.TestProgram {
	return &model.TestProgram{Path: path, Root: filepath.Dir(path), Interface: "plain"}
}

func mainCase(t *testing.T, tp *model.TestProgram) model.TestCase {
	t.Helper()
	tc, err := model.FromProperties(
		model.TestCaseID{Program: tp.Path, Name: "main"}, nil)
	require.NoError(t, err)
	return tc
}

func controlDirs(t *testing.T, runner *Runner) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(runner.WorkDir())
	require.NoError(t, err)
	return entries
}

func TestRunner_PlainPass(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "exit 0"))
	runner := newTestRunner(t, nil, false)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.Passed(), result)

	// The control directory of a passing case must be gone.
	assert.Empty(t, controlDirs(t, runner))
}

func TestRunner_PlainFailure(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "exit 42"))
	runner := newTestRunner(t, nil, false)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.Failed("Received exit code 42"), result)

	// Without retention the control directory is removed on failure too.
	assert.Empty(t, controlDirs(t, runner))
}

func TestRunner_KeepArtifactsOnFailure(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "echo details; exit 1"))
	runner := newTestRunner(t, nil, true)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.ResultFailed, result.Kind)

	entries := controlDirs(t, runner)
	require.Len(t, entries, 1)

	stdout, err := os.ReadFile(filepath.Join(runner.WorkDir(), entries[0].Name(), "stdout"))
	require.NoError(t, err)
	assert.Equal(t, "details\n", string(stdout))
}

func TestRunner_KeepArtifactsDoesNotRetainPassing(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "exit 0"))
	runner := newTestRunner(t, nil, true)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.Passed(), result)
	assert.Empty(t, controlDirs(t, runner))
}

func TestRunner_Timeout(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "sleep 30"))
	runner := newTestRunner(t, nil, false)
	runner.killGrace = 100 * time.Millisecond

	tc, err := model.FromProperties(
		model.TestCaseID{Program: prog.Path, Name: "main"},
		model.Properties{"timeout": "1"})
	require.NoError(t, err)

	start := time.Now()
	result, err := runner.Run(context.Background(), prog, tc)
	require.NoError(t, err)

	assert.Equal(t, model.Broken("Test case timed out"), result)
	assert.Less(t, time.Since(start), 10*time.Second, "the child must be killed promptly")
}

func TestRunner_FastExitBeatsTimeout(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "exit 0"))
	prog.DefaultTimeout = time.Minute
	runner := newTestRunner(t, nil, false)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.Passed(), result)
}

func TestRunner_ExecFailureIsBroken(t *testing.T) {
	prog := plainProgram(filepath.Join(t.TempDir(), "does-not-exist"))
	runner := newTestRunner(t, nil, false)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.ResultBroken, result.Kind)
	assert.Contains(t, result.Reason, "Failed to execute")
}

func TestRunner_VariablesReachChild(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper",
		`test "$TEST_ENV_MYVAR" = myvalue || exit 1`))
	runner := newTestRunner(t, map[string]string{"MYVAR": "myvalue"}, false)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.Passed(), result)
}

func TestRunner_HomePointsAtControlDir(t *testing.T) {
	t.Setenv("TMPDIR", "")

	dir := t.TempDir()
	runner := newTestRunner(t, nil, false)
	// HOME and TMPDIR must both point inside the runner's work area, and
	// HOME must be writable.
	prog := plainProgram(writeScript(t, dir, "helper",
		`case "$HOME" in `+runner.WorkDir()+`/*) ;; *) exit 1;; esac
test "$TMPDIR" = "$HOME" || exit 1
touch "$HOME/scratch" || exit 1`))

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.Passed(), result)
}

func TestRunner_ParentEnvironmentUntouched(t *testing.T) {
	before := append([]string(nil), os.Environ()...)
	sort.Strings(before)

	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "exit 0"))
	runner := newTestRunner(t, map[string]string{"FOO": "bar"}, false)

	_, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)

	after := append([]string(nil), os.Environ()...)
	sort.Strings(after)
	assert.Equal(t, before, after)
}

func TestRunner_Interrupted(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "sleep 30"))
	runner := newTestRunner(t, nil, false)
	runner.killGrace = 100 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(200 * time.Millisecond)
		cancel()
	}()

	result, err := runner.Run(ctx, prog, mainCase(t, prog))
	assert.ErrorIs(t, err, ErrInterrupted)
	assert.Equal(t, model.Broken("Interrupted"), result)
}

func TestRunner_ListPlain(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper", "exit 0"))
	runner := newTestRunner(t, nil, false)

	cases, err := runner.List(context.Background(), prog)
	require.NoError(t, err)
	require.Len(t, cases, 1)
	assert.Equal(t, "main", cases[0].ID.Name)
}

func TestRunner_ListATF(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "helper",
		`printf 'Content-Type: application/X-atf-tp; version="1"\n\n'
printf 'ident: first\n'
printf 'descr: The first one\n'
printf '\n'
printf 'ident: second\n'`)
	prog := &model.TestProgram{Path: path, Root: dir, Interface: "atf"}
	runner := newTestRunner(t, nil, false)

	cases, err := runner.List(context.Background(), prog)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, "first", cases[0].ID.Name)
	assert.Equal(t, "The first one", cases[0].Properties["descr"])
	assert.Equal(t, "second", cases[1].ID.Name)
}

func TestRunner_ListATFBadExitIsLoadError(t *testing.T) {
	dir := t.TempDir()
	prog := &model.TestProgram{
		Path:      writeScript(t, dir, "helper", "exit 1"),
		Root:      dir,
		Interface: "atf",
	}
	runner := newTestRunner(t, nil, false)

	_, err := runner.List(context.Background(), prog)
	require.Error(t, err)
	assert.True(t, errdefs.IsLoad(err))
	assert.Contains(t, err.Error(), "test program failed")
}

func TestRunner_TapRun(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "helper", `printf '1..2\nok 1\nnot ok 2\n'`)
	prog := &model.TestProgram{Path: path, Root: dir, Interface: "tap"}
	runner := newTestRunner(t, nil, true)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.Failed("1 of 2 tests failed"), result)

	entries := controlDirs(t, runner)
	require.Len(t, entries, 1)
	controlDir := filepath.Join(runner.WorkDir(), entries[0].Name())

	// The protocol output is both captured normally and re-captured for
	// classification, and the stderr capture carries the merge warning.
	tapOutput, err := os.ReadFile(filepath.Join(controlDir, "tap-output.txt"))
	require.NoError(t, err)
	assert.Equal(t, "1..2\nok 1\nnot ok 2\n", string(tapOutput))

	stdout, err := os.ReadFile(filepath.Join(controlDir, "stdout"))
	require.NoError(t, err)
	assert.Equal(t, string(tapOutput), string(stdout))

	stderr, err := os.ReadFile(filepath.Join(controlDir, "stderr"))
	require.NoError(t, err)
	assert.Contains(t, string(stderr), "merged into the stdout")
}

func TestRunner_TapAllPass(t *testing.T) {
	dir := t.TempDir()
	path := writeScript(t, dir, "helper", `printf '1..1\nok 1\n'`)
	prog := &model.TestProgram{Path: path, Root: dir, Interface: "tap"}
	runner := newTestRunner(t, nil, false)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	assert.Equal(t, model.Passed(), result)
}

func TestRunner_AtfRun(t *testing.T) {
	dir := t.TempDir()
	// An ATF test program receives -r <resfile> <casename> and writes its
	// outcome to the result file.
	path := writeScript(t, dir, "helper",
		`test "$1" = -r || exit 99
test "$3" = first || exit 98
test "$__RUNNING_INSIDE_ATF_RUN" = internal-yes-value || exit 97
echo 'skipped: not today' > "$2"`)
	prog := &model.TestProgram{Path: path, Root: dir, Interface: "atf"}

	runner := newTestRunner(t, nil, false)
	tc, err := model.FromProperties(
		model.TestCaseID{Program: prog.Path, Name: "first"}, nil)
	require.NoError(t, err)

	result, err := runner.Run(context.Background(), prog, tc)
	require.NoError(t, err)
	assert.Equal(t, model.Skipped("not today"), result)
}

func TestRunner_UnknownInterface(t *testing.T) {
	runner := newTestRunner(t, nil, false)
	prog := &model.TestProgram{Path: "/bin/true", Root: "/", Interface: "gtest"}

	_, err := runner.List(context.Background(), prog)
	require.Error(t, err)

	_, err = runner.Run(context.Background(), prog, model.TestCase{
		ID: model.TestCaseID{Program: "/bin/true", Name: "main"}})
	require.Error(t, err)
}

func TestRunner_CleanupRemovesOwnedWorkDir(t *testing.T) {
	runner, err := NewRunner("", nil, false)
	require.NoError(t, err)
	workDir := runner.WorkDir()

	_, err = os.Stat(workDir)
	require.NoError(t, err)

	runner.Cleanup()
	_, err = os.Stat(workDir)
	assert.True(t, os.IsNotExist(err))
}

func TestRunner_StdoutStderrCaptured(t *testing.T) {
	dir := t.TempDir()
	prog := plainProgram(writeScript(t, dir, "helper",
		"echo to-stdout\necho to-stderr >&2\nexit 1"))
	runner := newTestRunner(t, nil, true)

	result, err := runner.Run(context.Background(), prog, mainCase(t, prog))
	require.NoError(t, err)
	require.Equal(t, model.ResultFailed, result.Kind)

	entries := controlDirs(t, runner)
	require.Len(t, entries, 1)
	controlDir := filepath.Join(runner.WorkDir(), entries[0].Name())

	stdout, err := os.ReadFile(filepath.Join(controlDir, "stdout"))
	require.NoError(t, err)
	stderr, err := os.ReadFile(filepath.Join(controlDir, "stderr"))
	require.NoError(t, err)

	assert.Equal(t, "to-stdout\n", string(stdout))
	assert.True(t, strings.HasPrefix(string(stderr), "to-stderr\n"))
}
