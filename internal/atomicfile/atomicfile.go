// Package atomicfile provides an atomic file write primitive used by
// internal/config for anything that must never be observed in a
// partially-written state, grounded on the teacher's
// pkg/filesystem.WriteFileAtomic.
package atomicfile

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// temporaryNamePrefix is the file name prefix used for the intermediate
// temporary file.
const temporaryNamePrefix = ".taskstate-atomic-write-"

// Write writes data to path in an atomic fashion by creating a temporary
// file in the same directory, writing and closing it, setting its
// permissions, and renaming it into place. On any failure the temporary
// file is removed and path is left untouched.
func Write(path string, data []byte, permissions os.FileMode) error {
	temporary, err := os.CreateTemp(filepath.Dir(path), temporaryNamePrefix)
	if err != nil {
		return errors.Wrap(err, "unable to create temporary file")
	}
	temporaryName := temporary.Name()

	if _, err := temporary.Write(data); err != nil {
		temporary.Close()
		os.Remove(temporaryName)
		return errors.Wrap(err, "unable to write data to temporary file")
	}

	if err := temporary.Close(); err != nil {
		os.Remove(temporaryName)
		return errors.Wrap(err, "unable to close temporary file")
	}

	if err := os.Chmod(temporaryName, permissions); err != nil {
		os.Remove(temporaryName)
		return errors.Wrap(err, "unable to change file permissions")
	}

	if err := os.Rename(temporaryName, path); err != nil {
		os.Remove(temporaryName)
		return errors.Wrap(err, "unable to rename file into place")
	}

	return nil
}
