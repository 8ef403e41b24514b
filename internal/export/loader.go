// Package export discovers and parses the followers_and_following portion of
// an unzipped Instagram data export.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/conradchan/igrestore/internal/relation"
)

const (
	connectionsRelativePath  = "connections/followers_and_following"
	exportFolderNameFragment = "instagram"
	followersFileGlob        = "followers_*.html"
	followingFileName        = "following.html"
	pendingFileName          = "pending_follow_requests.html"
	profileLinkPattern       = `href="https://www\.instagram\.com/(?:_u/)?([^"/?]+)"`
	eventTimestampPattern    = `</a></div><div>([A-Z][a-z]{2} \d{1,2}, \d{4} \d{1,2}:\d{2} [ap]m)</div>`
	timestampProximityLimit  = 200
	exportMissingErrFormat   = "no Instagram export found under %s (expected <export>/%s)"
	followersMissingFormat   = "no %s files found in %s"
	followingMissingFormat   = "%s not found in %s"
	readExportFileErrFormat  = "read %s: %w"
)

var (
	reProfileLink    = regexp.MustCompile(profileLinkPattern)
	reEventTimestamp = regexp.MustCompile(eventTimestampPattern)
)

// FindExportDir locates the followers_and_following directory beneath
// baseDir. It accepts either an unzipped export folder whose name mentions
// Instagram or the connections path placed directly under baseDir.
func FindExportDir(baseDir string) (string, error) {
	entries, readErr := os.ReadDir(baseDir)
	if readErr != nil {
		return "", fmt.Errorf(exportMissingErrFormat, baseDir, connectionsRelativePath)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if !strings.Contains(strings.ToLower(entry.Name()), exportFolderNameFragment) {
			continue
		}
		candidate := filepath.Join(baseDir, entry.Name(), filepath.FromSlash(connectionsRelativePath))
		if directoryExists(candidate) {
			return candidate, nil
		}
	}
	directCandidate := filepath.Join(baseDir, filepath.FromSlash(connectionsRelativePath))
	if directoryExists(directCandidate) {
		return directCandidate, nil
	}
	return "", fmt.Errorf(exportMissingErrFormat, baseDir, connectionsRelativePath)
}

// LoadCategorySets parses followers, following, and pending-request files from
// the export directory. Followers and following are required; the pending file
// is optional and yields an empty set when absent.
func LoadCategorySets(exportDir string) (relation.CategorySets, error) {
	categorySets := relation.CategorySets{
		Following: map[string]relation.AccountRecord{},
		Followers: map[string]relation.AccountRecord{},
		Pending:   map[string]relation.AccountRecord{},
	}

	followerPaths, globErr := filepath.Glob(filepath.Join(exportDir, followersFileGlob))
	if globErr != nil || len(followerPaths) == 0 {
		return relation.CategorySets{}, fmt.Errorf(followersMissingFormat, followersFileGlob, exportDir)
	}
	sort.Strings(followerPaths)
	for _, followerPath := range followerPaths {
		if loadErr := mergeEntriesFromFile(followerPath, categorySets.Followers); loadErr != nil {
			return relation.CategorySets{}, loadErr
		}
	}

	followingPath := filepath.Join(exportDir, followingFileName)
	if !fileExists(followingPath) {
		return relation.CategorySets{}, fmt.Errorf(followingMissingFormat, followingFileName, exportDir)
	}
	if loadErr := mergeEntriesFromFile(followingPath, categorySets.Following); loadErr != nil {
		return relation.CategorySets{}, loadErr
	}

	pendingPath := filepath.Join(exportDir, pendingFileName)
	if fileExists(pendingPath) {
		if loadErr := mergeEntriesFromFile(pendingPath, categorySets.Pending); loadErr != nil {
			return relation.CategorySets{}, loadErr
		}
	}

	return categorySets, nil
}

// ParseEntries extracts account records from export markup. Each profile link
// contributes one record; the event timestamp is the first one rendered within
// timestampProximityLimit bytes after the link, preserved verbatim. The first
// occurrence of a username wins.
func ParseEntries(markup string) map[string]relation.AccountRecord {
	records := map[string]relation.AccountRecord{}

	linkMatches := reProfileLink.FindAllStringSubmatchIndex(markup, -1)
	timestampMatches := reEventTimestamp.FindAllStringSubmatchIndex(markup, -1)

	for _, linkMatch := range linkMatches {
		username := strings.TrimSpace(markup[linkMatch[2]:linkMatch[3]])
		if username == "" {
			continue
		}
		if _, alreadySeen := records[username]; alreadySeen {
			continue
		}

		linkEnd := linkMatch[1]
		eventTimestamp := ""
		for _, timestampMatch := range timestampMatches {
			if timestampMatch[0] > linkEnd && timestampMatch[0]-linkEnd < timestampProximityLimit {
				eventTimestamp = markup[timestampMatch[2]:timestampMatch[3]]
				break
			}
		}

		records[username] = relation.AccountRecord{
			Username:       username,
			EventTimestamp: eventTimestamp,
		}
	}
	return records
}

func mergeEntriesFromFile(path string, destination map[string]relation.AccountRecord) error {
	markup, readErr := os.ReadFile(path)
	if readErr != nil {
		return fmt.Errorf(readExportFileErrFormat, path, readErr)
	}
	for username, record := range ParseEntries(string(markup)) {
		if _, alreadySeen := destination[username]; !alreadySeen {
			destination[username] = record
		}
	}
	return nil
}

func directoryExists(path string) bool {
	info, statErr := os.Stat(path)
	return statErr == nil && info.IsDir()
}

func fileExists(path string) bool {
	info, statErr := os.Stat(path)
	return statErr == nil && !info.IsDir()
}
