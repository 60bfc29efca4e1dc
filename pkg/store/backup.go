package store

import (
	"errors"
	"fmt"
	"os"
)

// BackupIfExists renames a pre-existing file at path to the numbered sibling
// with the lowest unused suffix (path.bak1, path.bak2, ...), so no
// checkpoint write ever destroys the previous attempt's state. Returns the
// backup path, or "" when there was nothing to rotate.
func BackupIfExists(path string) (string, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("stat %s: %w", path, err)
	}

	for n := 1; ; n++ {
		backup := fmt.Sprintf("%s.bak%d", path, n)
		if _, err := os.Stat(backup); err == nil {
			continue
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %s: %w", backup, err)
		}
		if err := os.Rename(path, backup); err != nil {
			return "", fmt.Errorf("rotate %s to %s: %w", path, backup, err)
		}
		return backup, nil
	}
}

// Exists reports whether a checkpoint file is present at path.
func Exists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
