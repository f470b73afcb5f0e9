// Package manifest handles jonesy.toml machine configuration.
package manifest

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

// defaultStackSize mirrors the machine's built-in stack length.
const defaultStackSize = 64

// Manifest represents a jonesy.toml file.
type Manifest struct {
	Machine Machine `toml:"machine"`
	Image   Image   `toml:"image"`

	// Dir is the directory the manifest was loaded from (set at load time).
	Dir string `toml:"-"`
}

// Machine configures the virtual machine itself.
type Machine struct {
	StackSize int  `toml:"stack-size"`
	Trace     bool `toml:"trace"`
}

// Image configures program-image output.
type Image struct {
	Output string `toml:"output"`
}

// Default returns the configuration used when no jonesy.toml exists.
func Default() *Manifest {
	return &Manifest{Machine: Machine{StackSize: defaultStackSize}}
}

// Load parses jonesy.toml from the given directory. A missing file is not an
// error; defaults apply.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "jonesy.toml")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := Default()
	if err := toml.Unmarshal(data, m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	if m.Machine.StackSize <= 0 {
		m.Machine.StackSize = defaultStackSize
	}
	m.Dir = dir
	return m, nil
}
