package relation

import "sort"

// Reconcile classifies the relationship data from an export into the four
// triage sets. The function is pure and deterministic: it performs no I/O and
// identical inputs always produce identical outputs.
//
// A username present in both Following and Pending is treated as a follow, and
// fan classification excludes anyone with an outstanding pending request so a
// not-yet-accepted request is never double-counted as a fan.
func Reconcile(categorySets CategorySets) RelationshipSets {
	relationshipSets := RelationshipSets{
		Mutuals:                 map[string]AccountRecord{},
		NotFollowingBack:        map[string]AccountRecord{},
		Fans:                    map[string]AccountRecord{},
		PendingNotFollowingBack: map[string]AccountRecord{},
	}

	for username, record := range categorySets.Following {
		if _, followsBack := categorySets.Followers[username]; followsBack {
			relationshipSets.Mutuals[username] = record
		} else {
			relationshipSets.NotFollowingBack[username] = record
		}
	}

	for username, record := range categorySets.Followers {
		if _, followed := categorySets.Following[username]; followed {
			continue
		}
		if _, requested := categorySets.Pending[username]; requested {
			continue
		}
		relationshipSets.Fans[username] = record
	}

	for username, record := range categorySets.Pending {
		if _, followsBack := categorySets.Followers[username]; !followsBack {
			relationshipSets.PendingNotFollowingBack[username] = record
		}
	}

	return relationshipSets
}

// sortedUsernames returns the keys of recordsByUsername in case-sensitive
// lexicographic order. Serialized set ordering is a compatibility contract for
// the summary artifact, not an implementation accident.
func sortedUsernames(recordsByUsername map[string]AccountRecord) []string {
	usernames := make([]string, 0, len(recordsByUsername))
	for username := range recordsByUsername {
		usernames = append(usernames, username)
	}
	sort.Strings(usernames)
	return usernames
}
