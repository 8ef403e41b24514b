// Package relation models follow relationships between Instagram accounts and
// classifies them into the sets used for unfollower triage.
package relation

// AccountRecord represents a single account reference discovered in a data
// export or roster file. Records are immutable once produced; merging happens
// downstream in the view engine.
type AccountRecord struct {
	Username       string
	DisplayName    string
	EventTimestamp string
}

// CategorySets contains the raw membership data parsed from an Instagram data
// export, keyed by username.
type CategorySets struct {
	Following map[string]AccountRecord
	Followers map[string]AccountRecord
	Pending   map[string]AccountRecord
}

// RelationshipSets holds the classified relationship data derived from a
// CategorySets value.
type RelationshipSets struct {
	Mutuals                 map[string]AccountRecord
	NotFollowingBack        map[string]AccountRecord
	Fans                    map[string]AccountRecord
	PendingNotFollowingBack map[string]AccountRecord
}
