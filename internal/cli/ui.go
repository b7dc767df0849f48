package cli

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// UI is the sink for all human-facing output of the commands. Routing
// everything through it keeps the commands testable and lets interactive
// niceties (separators, progress lines) disappear when the output is a
// pipe.
type UI struct {
	out         io.Writer
	err         io.Writer
	interactive bool
}

func NewUI() *UI {
	return &UI{
		out:         os.Stdout,
		err:         os.Stderr,
		interactive: term.IsTerminal(int(os.Stdout.Fd())),
	}
}

func (u *UI) Out(format string, args ...interface{}) {
	fmt.Fprintf(u.out, format+"\n", args...)
}

func (u *UI) Err(format string, args ...interface{}) {
	fmt.Fprintf(u.err, format+"\n", args...)
}

// Separator prints a horizontal rule on interactive terminals.
func (u *UI) Separator() {
	if u.interactive {
		fmt.Fprintln(u.out, "===============================================================")
	}
}
