// Package pics manages the local profile picture assets and the paced
// downloader that fills them.
package pics

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const (
	pictureFileExtension   = ".jpg"
	pictureFileFormat      = "%s" + pictureFileExtension
	scanDirectoryErrFormat = "scan picture directory %s: %w"
)

// Store locates profile pictures on disk. Each username owns at most one
// asset named <username>.jpg; a zero-byte file does not count as present.
type Store struct {
	directory string
}

// NewStore returns a Store rooted at the given directory. The directory is
// created lazily by the downloader, so it need not exist yet.
func NewStore(directory string) *Store {
	return &Store{directory: directory}
}

// Directory returns the root the store reads from.
func (pictureStore *Store) Directory() string {
	return pictureStore.directory
}

// Path returns the on-disk location for a username's picture.
func (pictureStore *Store) Path(username string) string {
	return filepath.Join(pictureStore.directory, fmt.Sprintf(pictureFileFormat, username))
}

// Has reports whether a non-empty picture exists for the username.
func (pictureStore *Store) Has(username string) bool {
	fileInfo, statErr := os.Stat(pictureStore.Path(username))
	if statErr != nil {
		return false
	}
	return fileInfo.Mode().IsRegular() && fileInfo.Size() > 0
}

// ScanSet returns the set of usernames that have a non-empty picture. A
// missing directory yields an empty set, not an error.
func (pictureStore *Store) ScanSet() (map[string]struct{}, error) {
	entries, readErr := os.ReadDir(pictureStore.directory)
	if readErr != nil {
		if os.IsNotExist(readErr) {
			return map[string]struct{}{}, nil
		}
		return nil, fmt.Errorf(scanDirectoryErrFormat, pictureStore.directory, readErr)
	}

	usernames := map[string]struct{}{}
	for _, entry := range entries {
		entryName := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(entryName, pictureFileExtension) {
			continue
		}
		entryInfo, infoErr := entry.Info()
		if infoErr != nil || entryInfo.Size() == 0 {
			continue
		}
		usernames[strings.TrimSuffix(entryName, pictureFileExtension)] = struct{}{}
	}
	return usernames, nil
}
