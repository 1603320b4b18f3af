package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"sysdaemon/internal/fileutil"
)

// PIDFile is a plain text pid file kept for external tools.
type PIDFile struct {
	path string
}

// NewPIDFile returns a handle for path. An empty path disables the file.
func NewPIDFile(path string) *PIDFile {
	return &PIDFile{path: path}
}

// Path returns the pid file location.
func (p *PIDFile) Path() string {
	return p.path
}

// Write records pid, refusing to follow a symlink planted at the path.
func (p *PIDFile) Write(pid int) error {
	if p == nil || p.path == "" {
		return nil
	}
	if err := refuseSymlink(p.path); err != nil {
		return err
	}
	if err := fileutil.EnsureParentDir(p.path, 0o755); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	if err := fileutil.WriteFileAtomic(p.path, []byte(strconv.Itoa(pid)+"\n"), 0o644); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	return nil
}

// Read returns the recorded pid, or 0 when the file is absent or empty.
func (p *PIDFile) Read() (int, error) {
	if p == nil || p.path == "" {
		return 0, nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	content := strings.TrimSpace(string(data))
	if content == "" {
		return 0, nil
	}
	pid, err := strconv.Atoi(content)
	if err != nil {
		return 0, fmt.Errorf("invalid pid in %s: %w", p.path, err)
	}
	if pid <= 0 {
		return 0, fmt.Errorf("invalid pid in %s: %d", p.path, pid)
	}
	return pid, nil
}

// Remove deletes the pid file if present.
func (p *PIDFile) Remove() error {
	if p == nil || p.path == "" {
		return nil
	}
	if err := refuseSymlink(p.path); err != nil {
		return err
	}
	return fileutil.RemoveIfExists(p.path)
}

func refuseSymlink(path string) error {
	info, err := os.Lstat(path)
	if err != nil {
		return nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("refusing to touch pid file %s: is a symlink", path)
	}
	return nil
}
