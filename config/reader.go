package config

import (
	"os"
	"path/filepath"
	"sort"
)

// FileReader is the host file-system capability used during resolution.
// Everything the resolver learns about the host goes through it, so the
// whole pipeline can be driven against a fake in tests.
type FileReader interface {
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
	Glob(pattern string) ([]string, error)
	Getwd() (string, error)
	// Resolve returns the absolute path with symlinks evaluated.
	Resolve(path string) (string, error)
	// DirSymlinks lists the directory's entries that are symlinks to
	// directories, mapping entry name to resolved target.
	DirSymlinks(path string) (map[string]string, error)
}

// OSReader reads the real file system.
type OSReader struct{}

func (OSReader) ReadFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (OSReader) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OSReader) Glob(pattern string) ([]string, error) {
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func (OSReader) Getwd() (string, error) {
	return os.Getwd()
}

func (OSReader) Resolve(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}

func (OSReader) DirSymlinks(path string) (map[string]string, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}

	links := make(map[string]string)
	for _, entry := range entries {
		if entry.Type()&os.ModeSymlink == 0 {
			continue
		}
		target, err := filepath.EvalSymlinks(filepath.Join(path, entry.Name()))
		if err != nil {
			continue
		}
		info, err := os.Stat(target)
		if err != nil || !info.IsDir() {
			continue
		}
		links[entry.Name()] = target
	}
	return links, nil
}
