package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Export writes a snapshot of the collection to dir as tasks-<ULID>.<ext> and
// returns its path. An empty format uses the store's own.
func (s *Store) Export(dir string, f Format) (string, error) {
	dir = expandHome(strings.TrimSpace(dir))
	if dir == "" {
		return "", errors.New("export directory is empty")
	}
	if f == "" {
		f = s.format
	}
	c, err := codecFor(f)
	if err != nil {
		return "", err
	}
	data, err := c.encode(records(s.tasks))
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("tasks-%s.%s", newULID(), f.Ext()))
	if err := atomicWriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	s.log.Debug("exported tasks", "path", path, "tasks", len(s.tasks), "format", f)
	return path, nil
}
