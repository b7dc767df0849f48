package execenv

// Command describes the child process a test interface wants the runner to
// spawn. Interfaces only build these descriptions; the runner owns the
// actual spawning, capture and reaping.
type Command struct {
	// Path is the binary to execute.
	Path string

	// Args are the arguments, not including the program name.
	Args []string

	// ExtraEnv holds KEY=VALUE pairs appended on top of the common child
	// environment (interface-specific markers and the like).
	ExtraEnv []string

	// TeeStdout, when non-empty, names a file inside the control directory
	// that receives a copy of everything the child writes to stdout. The
	// regular stdout capture still happens.
	TeeStdout string

	// StderrNote, when non-empty, is written verbatim to the stderr capture
	// once the child terminates.
	StderrNote string
}
