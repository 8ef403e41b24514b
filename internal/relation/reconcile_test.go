package relation_test

import (
	"testing"

	"github.com/conradchan/igrestore/internal/relation"
)

func TestReconcile(t *testing.T) {
	testCases := []struct {
		name                            string
		following                       []string
		followers                       []string
		pending                         []string
		expectedMutuals                 []string
		expectedNotFollowingBack        []string
		expectedFans                    []string
		expectedPendingNotFollowingBack []string
	}{
		{
			name:                            "classifies basic relationships",
			following:                       []string{"alice", "bob"},
			followers:                       []string{"bob", "carol"},
			pending:                         []string{},
			expectedMutuals:                 []string{"bob"},
			expectedNotFollowingBack:        []string{"alice"},
			expectedFans:                    []string{"carol"},
			expectedPendingNotFollowingBack: []string{},
		},
		{
			name:                            "pending excludes fans and tracks unanswered requests",
			following:                       []string{"alice"},
			followers:                       []string{"dave", "erin"},
			pending:                         []string{"dave", "frank"},
			expectedMutuals:                 []string{},
			expectedNotFollowingBack:        []string{"alice"},
			expectedFans:                    []string{"erin"},
			expectedPendingNotFollowingBack: []string{"frank"},
		},
		{
			name:                            "follow wins over pending for the same username",
			following:                       []string{"grace"},
			followers:                       []string{"grace"},
			pending:                         []string{"grace"},
			expectedMutuals:                 []string{"grace"},
			expectedNotFollowingBack:        []string{},
			expectedFans:                    []string{},
			expectedPendingNotFollowingBack: []string{},
		},
		{
			name:                            "empty inputs produce empty sets",
			following:                       []string{},
			followers:                       []string{},
			pending:                         []string{},
			expectedMutuals:                 []string{},
			expectedNotFollowingBack:        []string{},
			expectedFans:                    []string{},
			expectedPendingNotFollowingBack: []string{},
		},
	}

	for _, testCase := range testCases {
		testCase := testCase
		t.Run(testCase.name, func(t *testing.T) {
			categorySets := relation.CategorySets{
				Following: recordSet(testCase.following),
				Followers: recordSet(testCase.followers),
				Pending:   recordSet(testCase.pending),
			}
			relationshipSets := relation.Reconcile(categorySets)

			assertSetMembers(t, "Mutuals", relationshipSets.Mutuals, testCase.expectedMutuals)
			assertSetMembers(t, "NotFollowingBack", relationshipSets.NotFollowingBack, testCase.expectedNotFollowingBack)
			assertSetMembers(t, "Fans", relationshipSets.Fans, testCase.expectedFans)
			assertSetMembers(t, "PendingNotFollowingBack", relationshipSets.PendingNotFollowingBack, testCase.expectedPendingNotFollowingBack)
		})
	}
}

func TestReconcilePartitionsFollowing(t *testing.T) {
	categorySets := relation.CategorySets{
		Following: recordSet([]string{"alice", "bob", "carol", "dave"}),
		Followers: recordSet([]string{"bob", "dave", "erin"}),
		Pending:   recordSet([]string{"frank", "erin"}),
	}
	relationshipSets := relation.Reconcile(categorySets)

	for username := range categorySets.Following {
		_, isMutual := relationshipSets.Mutuals[username]
		_, isUnreciprocated := relationshipSets.NotFollowingBack[username]
		if isMutual == isUnreciprocated {
			t.Fatalf("username %q must be in exactly one of Mutuals/NotFollowingBack (mutual=%v unreciprocated=%v)", username, isMutual, isUnreciprocated)
		}
	}
	for username := range relationshipSets.Fans {
		if _, present := categorySets.Pending[username]; present {
			t.Fatalf("fan %q must not appear in pending", username)
		}
		if _, present := categorySets.Following[username]; present {
			t.Fatalf("fan %q must not appear in following", username)
		}
	}
	for username := range relationshipSets.PendingNotFollowingBack {
		if _, present := categorySets.Pending[username]; !present {
			t.Fatalf("pending set member %q missing from pending input", username)
		}
	}
}

func recordSet(usernames []string) map[string]relation.AccountRecord {
	records := make(map[string]relation.AccountRecord, len(usernames))
	for _, username := range usernames {
		records[username] = relation.AccountRecord{Username: username}
	}
	return records
}

func assertSetMembers(t *testing.T, label string, records map[string]relation.AccountRecord, expectedUsernames []string) {
	t.Helper()
	if len(records) != len(expectedUsernames) {
		t.Fatalf("%s size mismatch: got %d, want %d", label, len(records), len(expectedUsernames))
	}
	for _, username := range expectedUsernames {
		if _, present := records[username]; !present {
			t.Fatalf("%s missing username %q", label, username)
		}
	}
}
