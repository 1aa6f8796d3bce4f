// Package fileutil provides case-insensitive filename lookup, for resolving
// a SoundFont or MIDI file name against a directory listing
// on filesystems (or zip archives) that preserve the name's original case.
package fileutil

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrNotFound is returned when no entry in the searched directory matches,
// case-insensitively.
var ErrNotFound = errors.New("fileutil: file not found")

// FindFileCaseInsensitive searches dir for a file matching filename,
// ignoring case, and returns its real on-disk path. Useful when a
// user-supplied SoundFont or MIDI filename's case doesn't match what's
// actually on disk. It delegates to FindFileCaseInsensitiveFS over
// os.DirFS(dir) rather than duplicating the case-folding scan, and
// translates the fs.FS-style (always forward-slash) result back into an
// OS-native path with filepath.Join.
func FindFileCaseInsensitive(dir, filename string) (string, error) {
	match, err := FindFileCaseInsensitiveFS(os.DirFS(dir), ".", filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, match), nil
}

// FindFileCaseInsensitiveFS searches dir within fsys for a file matching
// filename, ignoring case, and returns the matched path (joined with dir
// using forward slashes, per fs.FS convention) so embedded SoundFont
// collections can be searched the same way as a plain directory.
func FindFileCaseInsensitiveFS(fsys fs.FS, dir, filename string) (string, error) {
	searchName := strings.ToLower(filename)

	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return "", fmt.Errorf("fileutil: reading directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.ToLower(entry.Name()) == searchName {
			return path.Join(dir, entry.Name()), nil
		}
	}

	return "", fmt.Errorf("%w: %s (searched in %s)", ErrNotFound, filename, dir)
}
