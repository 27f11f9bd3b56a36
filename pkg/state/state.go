package state

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths is the canonical runtime folder layout under the DB path.
type Paths struct {
	Store     string // pebble archive database
	Audit     string // audit log sink
	Retention string // retention runner artifacts
	Tmp       string // scratch space
}

// EnsureStateDirs creates the runtime layout under dbPath and verifies
// each directory is a real, writable directory with restrictive
// permissions (no symlinks, no group/other write).
func EnsureStateDirs(dbPath string) (Paths, error) {
	p := Paths{
		Store:     filepath.Join(dbPath, "store"),
		Audit:     filepath.Join(dbPath, "state", "audit"),
		Retention: filepath.Join(dbPath, "state", "retention"),
		Tmp:       filepath.Join(dbPath, "state", "tmp"),
	}

	for _, dir := range []string{p.Store, p.Audit, p.Retention, p.Tmp} {
		if err := ensureDir(dir); err != nil {
			return Paths{}, err
		}
	}
	return p, nil
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(filepath.Dir(dir), 0o700); err != nil {
		return fmt.Errorf("cannot create parent for %s: %w", dir, err)
	}

	if fi, err := os.Lstat(dir); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("path is a symlink: %s", dir)
		}
		if !fi.IsDir() {
			return fmt.Errorf("path exists and is not a directory: %s", dir)
		}
		if fi.Mode().Perm()&0o022 != 0 {
			return fmt.Errorf("path has permissive mode (group/other write): %s", dir)
		}
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("cannot create path %s: %w", dir, err)
	}

	// re-check after creation
	if fi, err := os.Lstat(dir); err == nil {
		if fi.Mode()&os.ModeSymlink != 0 {
			return fmt.Errorf("path is a symlink after creation: %s", dir)
		}
	}

	// writability check: create and remove a temp file
	tmp, err := os.CreateTemp(dir, ".validate-*")
	if err != nil {
		return fmt.Errorf("path not writable: %s: %w", dir, err)
	}
	tmp.Close()
	_ = os.Remove(tmp.Name())
	return nil
}
