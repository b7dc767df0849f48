// Package kyuafile loads the user-provided YAML files that declare which
// test programs a run covers. A Kyuafile names its syntax version, a list
// of test programs and optionally other Kyuafiles to merge in place.
package kyuafile

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kyua-go/kyua/internal/engine"
	"github.com/kyua-go/kyua/internal/errdefs"
	"github.com/kyua-go/kyua/internal/model"
)

// supportedSyntax is the only Kyuafile format version this loader accepts.
const supportedSyntax = 1

// document mirrors the YAML shape of one Kyuafile.
type document struct {
	Syntax       int            `yaml:"syntax"`
	TestPrograms []programEntry `yaml:"test_programs"`
	Include      []string       `yaml:"include"`
}

type programEntry struct {
	Name      string `yaml:"name"`
	Interface string `yaml:"interface"`
	Timeout   int    `yaml:"timeout,omitempty"`
}

// Load reads the Kyuafile at path and returns the test programs it declares
// in document order, followed by the programs of its included files in
// include order (recursively), wherever the include key sits in the file.
// Relative program names resolve against the directory of the file naming
// them.
func Load(path string) ([]*model.TestProgram, error) {
	visited := make(map[string]bool)
	return load(path, visited)
}

func load(path string, visited map[string]bool) ([]*model.TestProgram, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errdefs.System(err, "failed to resolve %s", path)
	}
	if visited[abs] {
		return nil, errdefs.Load(nil, "Include cycle through %s", path)
	}
	visited[abs] = true

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, errdefs.Load(err, "Failed to read %s", path)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errdefs.Load(err, "Failed to parse %s", path)
	}
	if doc.Syntax != supportedSyntax {
		return nil, errdefs.Load(nil, "Unsupported syntax version %d in %s",
			doc.Syntax, path)
	}

	root := filepath.Dir(abs)
	var programs []*model.TestProgram

	for _, entry := range doc.TestPrograms {
		tp, err := buildProgram(entry, root)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		programs = append(programs, tp)
	}

	for _, include := range doc.Include {
		target := include
		if !filepath.IsAbs(target) {
			target = filepath.Join(root, include)
		}
		nested, err := load(target, visited)
		if err != nil {
			return nil, err
		}
		programs = append(programs, nested...)
	}

	return programs, nil
}

func buildProgram(entry programEntry, root string) (*model.TestProgram, error) {
	if entry.Name == "" {
		return nil, errdefs.Load(nil, "Test program with empty name")
	}
	if _, err := engine.Lookup(entry.Interface); err != nil {
		return nil, errdefs.Load(nil, "Unknown test interface '%s' for program %s",
			entry.Interface, entry.Name)
	}
	if entry.Timeout < 0 {
		return nil, errdefs.Load(nil, "Invalid timeout %d for program %s",
			entry.Timeout, entry.Name)
	}

	tp := model.NewTestProgram(entry.Name, root, entry.Interface)
	if entry.Timeout > 0 {
		tp.DefaultTimeout = time.Duration(entry.Timeout) * time.Second
	}
	return tp, nil
}
