// Package dotdir manages the .testwise/ and ~/.testwise directories where
// persistent configuration and, by default, per-round reports live.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// dirName is the name of the testwise directory.
	dirName = ".testwise"

	// reportsDirName is the default reports subdirectory.
	reportsDirName = "reports"
)

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the target absolute path to a .testwise/ directory.
// Order of precedence is as follows:
//  1. Provided override
//  2. Local ./.testwise/ dir
//  3. Home ~/.testwise/ dir
//  4. If none found, attempt to create ~/.testwise/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, dirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, dirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating testwise directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// ReportsDir resolves the default per-round reports directory inside the
// target .testwise/ directory.
func (m *Manager) ReportsDir(overrideDir string) (string, error) {
	target, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(target, reportsDirName), nil
}

// localDirExists checks whether a .testwise/ directory exists in the current
// working directory.
func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, dirName))
	return err == nil && info.IsDir()
}
