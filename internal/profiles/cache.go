package profiles

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
)

const (
	cacheTempSuffix     = ".tmp"
	cacheIndentPrefix   = ""
	cacheIndentToken    = "  "
	cacheFileMode       = 0o644
	openCacheErrFormat  = "open profile cache %s: %w"
	parseCacheErrFormat = "parse profile cache %s: %w"
	writeCacheErrFormat = "write profile cache %s: %w"
)

// Cache is the durable username-to-profile mapping backing resumable fetch
// runs. The in-memory map is the source of truth between checkpoints; Save
// rewrites the whole document atomically. Single-writer, single-process;
// concurrent multi-process access is unsupported.
type Cache struct {
	path     string
	profiles map[string]Profile
}

// LoadCache reads the cache file at path, returning an empty cache when the
// file does not exist yet.
func LoadCache(path string) (*Cache, error) {
	cache := &Cache{path: path, profiles: map[string]Profile{}}

	encoded, readErr := os.ReadFile(path)
	if os.IsNotExist(readErr) {
		return cache, nil
	}
	if readErr != nil {
		return nil, fmt.Errorf(openCacheErrFormat, path, readErr)
	}
	if unmarshalErr := json.Unmarshal(encoded, &cache.profiles); unmarshalErr != nil {
		return nil, fmt.Errorf(parseCacheErrFormat, path, unmarshalErr)
	}
	return cache, nil
}

// Save rewrites the full cache document, writing to a temporary file and
// renaming it into place so a crash mid-write never truncates prior progress.
func (cache *Cache) Save() error {
	encoded, marshalErr := json.MarshalIndent(cache.profiles, cacheIndentPrefix, cacheIndentToken)
	if marshalErr != nil {
		return fmt.Errorf(writeCacheErrFormat, cache.path, marshalErr)
	}

	tempPath := cache.path + cacheTempSuffix
	if writeErr := os.WriteFile(tempPath, encoded, cacheFileMode); writeErr != nil {
		return fmt.Errorf(writeCacheErrFormat, cache.path, writeErr)
	}
	if renameErr := os.Rename(tempPath, cache.path); renameErr != nil {
		os.Remove(tempPath)
		return fmt.Errorf(writeCacheErrFormat, cache.path, renameErr)
	}
	return nil
}

// Get returns the cached profile for username.
func (cache *Cache) Get(username string) (Profile, bool) {
	profile, present := cache.profiles[username]
	return profile, present
}

// Put stores or overwrites the profile for its username.
func (cache *Cache) Put(profile Profile) {
	cache.profiles[profile.Username] = profile
}

// Len reports the number of cached entries.
func (cache *Cache) Len() int {
	return len(cache.profiles)
}

// Snapshot returns a copy of the cached mapping for read-only consumers such
// as the view merge.
func (cache *Cache) Snapshot() map[string]Profile {
	cloned := make(map[string]Profile, len(cache.profiles))
	for username, profile := range cache.profiles {
		cloned[username] = profile
	}
	return cloned
}

// Pending filters targets to the usernames still requiring a fetch: those
// absent from the cache and those recorded with a retryable status. Terminal
// entries are never re-fetched.
func (cache *Cache) Pending(targets []string) []string {
	var pending []string
	seen := make(map[string]bool, len(targets))
	for _, username := range targets {
		if username == "" || seen[username] {
			continue
		}
		seen[username] = true
		profile, present := cache.profiles[username]
		if present && profile.Status.Terminal() {
			continue
		}
		pending = append(pending, username)
	}
	return pending
}

// Reset removes exactly the entries recorded with a retryable status so they
// re-enter the fetch set, and reports the usernames removed in lexicographic
// order. Terminal entries are preserved.
func (cache *Cache) Reset() []string {
	var removed []string
	for username, profile := range cache.profiles {
		if profile.Status.Retryable() {
			removed = append(removed, username)
		}
	}
	sort.Strings(removed)
	for _, username := range removed {
		delete(cache.profiles, username)
	}
	return removed
}

// Tally counts cached entries by status.
func (cache *Cache) Tally() map[Status]int {
	tally := make(map[Status]int)
	for _, profile := range cache.profiles {
		tally[profile.Status]++
	}
	return tally
}
