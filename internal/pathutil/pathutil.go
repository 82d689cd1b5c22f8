// Package pathutil holds the small filesystem helpers used to clear stale
// files before and after a movie is materialized.
package pathutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
)

// Exists reports whether anything is present at path
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// RemoveIfExists deletes the file at path. A missing file is not an error.
func RemoveIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// RemoveFiles deletes every path, continuing past failures, and returns
// the joined errors.
func RemoveFiles(paths ...string) error {
	var errs []error
	for _, p := range paths {
		if err := RemoveIfExists(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
