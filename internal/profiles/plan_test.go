package profiles_test

import (
	"testing"

	"github.com/conradchan/igrestore/internal/profiles"
	"github.com/conradchan/igrestore/internal/relation"
)

func TestFetchPlanMergesSourcesInOrder(t *testing.T) {
	plan := profiles.NewFetchPlan()
	plan.AddRoster([]relation.AccountRecord{
		{Username: "zeta"},
		{Username: "alice"},
		{Username: ""},
	})
	plan.AddSummary(relation.Summary{
		NotFollowingBack: []relation.FollowedEntry{{Username: "alice"}, {Username: "bob"}},
		Fans:             []relation.FanEntry{{Username: "carol"}},
	})

	if plan.TargetCount() != 4 {
		t.Fatalf("target count = %d, want 4", plan.TargetCount())
	}
	expectedOrder := []string{"zeta", "alice", "bob", "carol"}
	usernames := plan.Usernames()
	for index, username := range expectedOrder {
		if usernames[index] != username {
			t.Fatalf("usernames[%d] = %q, want %q", index, usernames[index], username)
		}
	}
}
