package fs

import (
	"errors"
	"strings"
)

var ErrUnsafePath = errors.New("unsafe path")

// ValidAssetFileName rejects stored asset file names that would escape
// the assets directory when joined. Names come from the database, so
// this is a guard against a tampered or corrupted row.
func ValidAssetFileName(name string) error {
	if name == "" {
		return ErrUnsafePath
	}
	if strings.ContainsRune(name, 0) {
		return ErrUnsafePath
	}
	if strings.ContainsAny(name, "/\\") {
		return ErrUnsafePath
	}
	if name == "." || name == ".." {
		return ErrUnsafePath
	}
	return nil
}
