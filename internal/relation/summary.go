package relation

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

const (
	summaryIndentPrefix   = ""
	summaryIndentToken    = "  "
	summaryFileMode       = 0o644
	readSummaryErrFormat  = "read summary %s: %w"
	parseSummaryErrFormat = "parse summary %s: %w"
	writeSummaryErrFormat = "write summary %s: %w"
)

// SummaryCounts reports the size of each input and derived set. The JSON key
// names are consumed by existing tooling and must not change.
type SummaryCounts struct {
	Followers               int `json:"followers"`
	Following               int `json:"following"`
	PendingRequests         int `json:"pending_requests"`
	Mutual                  int `json:"mutual"`
	NotFollowingBack        int `json:"not_following_back"`
	PendingNotFollowingBack int `json:"pending_not_following_back"`
	Fans                    int `json:"fans"`
}

// FollowedEntry describes an account the user follows without being followed
// back, with the export's verbatim follow timestamp.
type FollowedEntry struct {
	Username   string `json:"username"`
	FollowedAt string `json:"followed_at"`
}

// RequestedEntry describes an outstanding follow request toward an account
// that does not follow the user.
type RequestedEntry struct {
	Username    string `json:"username"`
	RequestedAt string `json:"requested_at"`
}

// FanEntry describes an account following the user that the user neither
// follows nor has a pending request toward.
type FanEntry struct {
	Username      string `json:"username"`
	FollowedYouAt string `json:"followed_you_at"`
}

// MutualEntry describes an account in a two-way follow relationship.
type MutualEntry struct {
	Username string `json:"username"`
}

// Summary is the persisted reconciliation artifact. Usernames within each set
// are emitted in case-sensitive lexicographic order.
type Summary struct {
	GeneratedAt             string           `json:"generated_at"`
	Counts                  SummaryCounts    `json:"counts"`
	NotFollowingBack        []FollowedEntry  `json:"not_following_back"`
	PendingNotFollowingBack []RequestedEntry `json:"pending_not_following_back"`
	Fans                    []FanEntry       `json:"fans"`
	Mutuals                 []MutualEntry    `json:"mutuals"`
}

// BuildSummary assembles the serialized reconciliation artifact from the raw
// category sets and the derived relationship sets. The generatedAt clock is
// injected so tests produce reproducible output.
func BuildSummary(categorySets CategorySets, relationshipSets RelationshipSets, generatedAt time.Time) Summary {
	summary := Summary{
		GeneratedAt: generatedAt.Format(time.RFC3339),
		Counts: SummaryCounts{
			Followers:               len(categorySets.Followers),
			Following:               len(categorySets.Following),
			PendingRequests:         len(categorySets.Pending),
			Mutual:                  len(relationshipSets.Mutuals),
			NotFollowingBack:        len(relationshipSets.NotFollowingBack),
			PendingNotFollowingBack: len(relationshipSets.PendingNotFollowingBack),
			Fans:                    len(relationshipSets.Fans),
		},
		NotFollowingBack:        []FollowedEntry{},
		PendingNotFollowingBack: []RequestedEntry{},
		Fans:                    []FanEntry{},
		Mutuals:                 []MutualEntry{},
	}

	for _, username := range sortedUsernames(relationshipSets.NotFollowingBack) {
		record := relationshipSets.NotFollowingBack[username]
		summary.NotFollowingBack = append(summary.NotFollowingBack, FollowedEntry{
			Username:   username,
			FollowedAt: record.EventTimestamp,
		})
	}
	for _, username := range sortedUsernames(relationshipSets.PendingNotFollowingBack) {
		record := relationshipSets.PendingNotFollowingBack[username]
		summary.PendingNotFollowingBack = append(summary.PendingNotFollowingBack, RequestedEntry{
			Username:    username,
			RequestedAt: record.EventTimestamp,
		})
	}
	for _, username := range sortedUsernames(relationshipSets.Fans) {
		record := relationshipSets.Fans[username]
		summary.Fans = append(summary.Fans, FanEntry{
			Username:      username,
			FollowedYouAt: record.EventTimestamp,
		})
	}
	for _, username := range sortedUsernames(relationshipSets.Mutuals) {
		summary.Mutuals = append(summary.Mutuals, MutualEntry{Username: username})
	}

	return summary
}

// Usernames returns every username referenced by the summary, in the order
// the sets are serialized, without duplicates.
func (summary Summary) Usernames() []string {
	seen := make(map[string]bool)
	var usernames []string
	appendUnique := func(username string) {
		if username == "" || seen[username] {
			return
		}
		seen[username] = true
		usernames = append(usernames, username)
	}
	for _, entry := range summary.NotFollowingBack {
		appendUnique(entry.Username)
	}
	for _, entry := range summary.PendingNotFollowingBack {
		appendUnique(entry.Username)
	}
	for _, entry := range summary.Fans {
		appendUnique(entry.Username)
	}
	for _, entry := range summary.Mutuals {
		appendUnique(entry.Username)
	}
	return usernames
}

// WriteSummaryFile serializes the summary to path with stable indentation.
func WriteSummaryFile(path string, summary Summary) error {
	encoded, marshalErr := json.MarshalIndent(summary, summaryIndentPrefix, summaryIndentToken)
	if marshalErr != nil {
		return fmt.Errorf(writeSummaryErrFormat, path, marshalErr)
	}
	if writeErr := os.WriteFile(path, encoded, summaryFileMode); writeErr != nil {
		return fmt.Errorf(writeSummaryErrFormat, path, writeErr)
	}
	return nil
}

// ReadSummaryFile loads a previously written summary artifact.
func ReadSummaryFile(path string) (Summary, error) {
	encoded, readErr := os.ReadFile(path)
	if readErr != nil {
		return Summary{}, fmt.Errorf(readSummaryErrFormat, path, readErr)
	}
	var summary Summary
	if unmarshalErr := json.Unmarshal(encoded, &summary); unmarshalErr != nil {
		return Summary{}, fmt.Errorf(parseSummaryErrFormat, path, unmarshalErr)
	}
	return summary, nil
}
