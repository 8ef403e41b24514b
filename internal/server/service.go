package server

import (
	"context"

	"github.com/conradchan/igrestore/internal/pics"
	"github.com/conradchan/igrestore/internal/profiles"
	"github.com/conradchan/igrestore/internal/relation"
	"github.com/conradchan/igrestore/internal/view"
)

// TriageService implements ViewService over the live data sources: the source
// account list loaded at startup, the profile cache, the decision store, and
// the local picture directory.
type TriageService struct {
	Accounts      []relation.AccountRecord
	ProfileCache  *profiles.Cache
	DecisionStore DecisionStore
	PictureStore  *pics.Store
}

// MergedRows assembles the merged view from the current state of every
// source. Decisions and pictures are re-read per call so edits show up
// without a restart.
func (service *TriageService) MergedRows(ctx context.Context) ([]view.Row, error) {
	decisionsByUsername, decisionsErr := service.DecisionStore.AllDecisions(ctx)
	if decisionsErr != nil {
		return nil, decisionsErr
	}
	pictureSet, scanErr := service.PictureStore.ScanSet()
	if scanErr != nil {
		return nil, scanErr
	}
	return view.Merge(service.Accounts, service.ProfileCache.Snapshot(), decisionsByUsername, pictureSet), nil
}

// RenderTriagePage delegates to the view package renderer.
func (service *TriageService) RenderTriagePage(rows []view.Row) (string, error) {
	return view.RenderTriagePage(rows)
}
