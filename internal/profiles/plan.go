package profiles

import (
	"github.com/conradchan/igrestore/internal/relation"
)

// FetchPlan captures the ordered set of usernames targeted by a fetch run.
// Sources contribute in order and duplicates are dropped, so roster position
// drives fetch order and summary-only usernames follow.
type FetchPlan struct {
	order []string
	seen  map[string]bool
}

// NewFetchPlan constructs an empty plan.
func NewFetchPlan() *FetchPlan {
	return &FetchPlan{seen: map[string]bool{}}
}

// AddRoster appends the roster usernames in file order.
func (plan *FetchPlan) AddRoster(records []relation.AccountRecord) {
	for _, record := range records {
		plan.add(record.Username)
	}
}

// AddSummary appends every username referenced by a reconciliation summary.
func (plan *FetchPlan) AddSummary(summary relation.Summary) {
	for _, username := range summary.Usernames() {
		plan.add(username)
	}
}

// TargetCount reports the number of unique usernames in the plan.
func (plan *FetchPlan) TargetCount() int {
	return len(plan.order)
}

// Usernames returns the planned usernames in insertion order.
func (plan *FetchPlan) Usernames() []string {
	ordered := make([]string, len(plan.order))
	copy(ordered, plan.order)
	return ordered
}

func (plan *FetchPlan) add(username string) {
	if username == "" || plan.seen[username] {
		return
	}
	plan.seen[username] = true
	plan.order = append(plan.order, username)
}
