package view_test

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/conradchan/igrestore/internal/profiles"
	"github.com/conradchan/igrestore/internal/relation"
	"github.com/conradchan/igrestore/internal/store"
	"github.com/conradchan/igrestore/internal/view"
)

func intPointer(value int) *int {
	return &value
}

func TestMergeDefaults(t *testing.T) {
	rows := view.Merge(
		[]relation.AccountRecord{{Username: "x"}},
		map[string]profiles.Profile{},
		map[string]store.Decision{},
		map[string]struct{}{},
	)

	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	row := rows[0]
	if row.Status != "unknown" {
		t.Errorf("expected default status unknown, got %q", row.Status)
	}
	if row.Decision != "undecided" {
		t.Errorf("expected default decision undecided, got %q", row.Decision)
	}
	if row.Notes != "" {
		t.Errorf("expected empty default notes, got %q", row.Notes)
	}
	if row.HasPic {
		t.Errorf("expected no local picture")
	}
	if row.ProfileURL != "https://instagram.com/x" {
		t.Errorf("unexpected profile url %q", row.ProfileURL)
	}
}

func TestMergeOverlays(t *testing.T) {
	sourceAccounts := []relation.AccountRecord{
		{Username: "alice", DisplayName: "alice from roster"},
		{Username: "bob", DisplayName: "bob from roster"},
		{Username: "carol"},
	}
	profilesByUsername := map[string]profiles.Profile{
		"alice": {
			Username:   "alice",
			Status:     profiles.StatusActive,
			FullName:   "Alice Fullname",
			ProfileURL: "https://instagram.com/alice",
			Followers:  intPointer(10),
			Following:  intPointer(20),
			Posts:      intPointer(3),
			IsPrivate:  true,
			Biography:  "bio",
		},
		"bob": {
			Username: "bob",
			Status:   profiles.StatusNotFound,
		},
	}
	decisionsByUsername := map[string]store.Decision{
		"bob": {Username: "bob", Decision: "will_unfollow", Notes: "gone"},
	}
	pictureSet := map[string]struct{}{"alice": {}}

	rows := view.Merge(sourceAccounts, profilesByUsername, decisionsByUsername, pictureSet)

	if len(rows) != 3 {
		t.Fatalf("expected three rows, got %d", len(rows))
	}
	for rowIndex, expectedUsername := range []string{"alice", "bob", "carol"} {
		if rows[rowIndex].Username != expectedUsername {
			t.Errorf("expected source order preserved, row %d is %q", rowIndex, rows[rowIndex].Username)
		}
	}

	aliceRow := rows[0]
	if aliceRow.DisplayName != "Alice Fullname" {
		t.Errorf("expected fetched full name to override roster name, got %q", aliceRow.DisplayName)
	}
	if aliceRow.Status != "active" {
		t.Errorf("unexpected status %q", aliceRow.Status)
	}
	if aliceRow.Followers == nil || *aliceRow.Followers != 10 {
		t.Errorf("unexpected followers %v", aliceRow.Followers)
	}
	if !aliceRow.HasPic {
		t.Errorf("expected alice to have a local picture")
	}
	if !aliceRow.IsPrivate {
		t.Errorf("expected private flag to carry over")
	}

	bobRow := rows[1]
	if bobRow.DisplayName != "bob from roster" {
		t.Errorf("expected roster name kept when fetch has no full name, got %q", bobRow.DisplayName)
	}
	if bobRow.Status != "not_found" {
		t.Errorf("unexpected status %q", bobRow.Status)
	}
	if bobRow.Decision != "will_unfollow" || bobRow.Notes != "gone" {
		t.Errorf("expected stored decision overlay, got %q/%q", bobRow.Decision, bobRow.Notes)
	}

	carolRow := rows[2]
	if carolRow.Status != "unknown" || carolRow.Decision != "undecided" {
		t.Errorf("expected defaults for unseen account, got %q/%q", carolRow.Status, carolRow.Decision)
	}
}

func TestRowJSONShape(t *testing.T) {
	rows := view.Merge(
		[]relation.AccountRecord{{Username: "x"}},
		map[string]profiles.Profile{},
		map[string]store.Decision{},
		map[string]struct{}{},
	)

	encoded, encodeErr := json.Marshal(rows[0])
	if encodeErr != nil {
		t.Fatalf("marshal returned error: %v", encodeErr)
	}

	var decoded map[string]json.RawMessage
	if decodeErr := json.Unmarshal(encoded, &decoded); decodeErr != nil {
		t.Fatalf("unmarshal returned error: %v", decodeErr)
	}
	expectedKeys := []string{
		"username", "display_name", "profile_url", "status",
		"followers", "following", "posts",
		"is_private", "is_verified", "biography",
		"has_pic", "decision", "notes",
	}
	for _, expectedKey := range expectedKeys {
		if _, found := decoded[expectedKey]; !found {
			t.Errorf("expected key %q in row json", expectedKey)
		}
	}
	if string(decoded["followers"]) != "null" {
		t.Errorf("expected absent count to serialize as null, got %s", decoded["followers"])
	}
}

func TestRenderTriagePage(t *testing.T) {
	rows := view.Merge(
		[]relation.AccountRecord{{Username: "alice", DisplayName: "Alice"}},
		map[string]profiles.Profile{
			"alice": {Username: "alice", Status: profiles.StatusActive, FullName: "Alice Fullname"},
		},
		map[string]store.Decision{},
		map[string]struct{}{"alice": {}},
	)

	pageHTML, renderErr := view.RenderTriagePage(rows)
	if renderErr != nil {
		t.Fatalf("RenderTriagePage returned error: %v", renderErr)
	}

	for _, expectedFragment := range []string{
		"Following Triage",
		"alice",
		"Alice Fullname",
		"/pics/alice.jpg",
		"window.TRIAGE_ROWS",
	} {
		if !strings.Contains(pageHTML, expectedFragment) {
			t.Errorf("expected rendered page to contain %q", expectedFragment)
		}
	}
}

func TestStaticAssets(t *testing.T) {
	assetsFS, assetsErr := view.StaticAssets()
	if assetsErr != nil {
		t.Fatalf("StaticAssets returned error: %v", assetsErr)
	}
	for _, assetName := range []string{"base.css", "app.js"} {
		if _, openErr := assetsFS.Open(assetName); openErr != nil {
			t.Errorf("expected embedded asset %q: %v", assetName, openErr)
		}
	}
}
