package model

import (
	"path/filepath"
	"time"
)

// TestProgram describes one executable adhering to a known test interface,
// together with the ordered collection of its test cases. The case list is
// empty until the list phase fills it in; after that the value is treated
// as immutable.
type TestProgram struct {
	// Path is the absolute path to the test binary.
	Path string

	// Root is the directory the program path was declared relative to,
	// typically the directory holding the Kyuafile that named it.
	Root string

	// Interface names the test framework family: atf, tap or plain.
	Interface string

	// DefaultTimeout overrides the harness-wide per-case deadline when the
	// test case itself does not carry a timeout property. Zero means "use
	// the harness-wide default", which is the same for every interface.
	DefaultTimeout time.Duration

	// TestCases holds the enumerated cases in list order.
	TestCases []TestCase
}

// NewTestProgram builds a test program descriptor, resolving a relative
// binary path against root.
func NewTestProgram(path, root, iface string) *TestProgram {
	abs := path
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(root, path)
	}
	return &TestProgram{Path: abs, Root: root, Interface: iface}
}

// Name returns the program's basename, used in human-facing listings.
func (tp *TestProgram) Name() string {
	return filepath.Base(tp.Path)
}
