// Package view joins the reconciled account list with cached profile
// metadata, stored decisions, and local picture presence into the rows the
// triage surface serves.
package view

import (
	"fmt"

	"github.com/conradchan/igrestore/internal/profiles"
	"github.com/conradchan/igrestore/internal/relation"
	"github.com/conradchan/igrestore/internal/store"
)

const profileURLFormat = "https://instagram.com/%s"

// Row is one merged per-account record. Identity comes from the source
// account list, enrichment from the profile cache, triage state from the
// decision store, and the picture flag from the local asset scan.
type Row struct {
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	ProfileURL  string `json:"profile_url"`
	Status      string `json:"status"`
	Followers   *int   `json:"followers"`
	Following   *int   `json:"following"`
	Posts       *int   `json:"posts"`
	IsPrivate   bool   `json:"is_private"`
	IsVerified  bool   `json:"is_verified"`
	Biography   string `json:"biography"`
	HasPic      bool   `json:"has_pic"`
	Decision    string `json:"decision"`
	Notes       string `json:"notes"`
}

// Merge produces one Row per source account, preserving source order. Reads
// never create decision records; absent overlays fall back to defaults.
func Merge(
	sourceAccounts []relation.AccountRecord,
	profilesByUsername map[string]profiles.Profile,
	decisionsByUsername map[string]store.Decision,
	pictureSet map[string]struct{},
) []Row {
	rows := make([]Row, 0, len(sourceAccounts))
	for _, sourceAccount := range sourceAccounts {
		row := Row{
			Username:    sourceAccount.Username,
			DisplayName: sourceAccount.DisplayName,
			ProfileURL:  fmt.Sprintf(profileURLFormat, sourceAccount.Username),
			Status:      string(profiles.StatusUnknown),
			Decision:    store.DefaultDecision,
		}

		if profile, profileFound := profilesByUsername[sourceAccount.Username]; profileFound {
			row.Status = string(profile.Status)
			if profile.FullName != "" {
				row.DisplayName = profile.FullName
			}
			if profile.ProfileURL != "" {
				row.ProfileURL = profile.ProfileURL
			}
			row.Followers = profile.Followers
			row.Following = profile.Following
			row.Posts = profile.Posts
			row.IsPrivate = profile.IsPrivate
			row.IsVerified = profile.IsVerified
			row.Biography = profile.Biography
		}

		if decision, decisionFound := decisionsByUsername[sourceAccount.Username]; decisionFound {
			row.Decision = decision.Decision
			row.Notes = decision.Notes
		}

		_, row.HasPic = pictureSet[sourceAccount.Username]
		rows = append(rows, row)
	}
	return rows
}
