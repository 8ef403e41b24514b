package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/conradchan/igrestore/internal/export"
	"github.com/conradchan/igrestore/internal/relation"
)

const (
	findExportErrorFormat   = "locate export: %w"
	loadExportErrorFormat   = "load export %s: %w"
	writeSummaryErrorFormat = "write summary %s: %w"
	countsReportFormat      = "followers=%d following=%d pending=%d mutual=%d not_following_back=%d pending_not_following_back=%d fans=%d\n"
	writeSuccessFormat      = "Wrote %s\n"
)

// ReconcileConfiguration carries the resolved inputs for one reconcile run.
type ReconcileConfiguration struct {
	ExportBaseDir string
	OutputPath    string
}

// ReconcileDependencies lists the collaborators the application needs. Tests
// substitute individual fields; unset fields fall back to the defaults.
type ReconcileDependencies struct {
	FindExportDir    func(string) (string, error)
	LoadCategorySets func(string) (relation.CategorySets, error)
	WriteSummaryFile func(string, relation.Summary) error
	Now              func() time.Time
	Stdout           io.Writer
}

// ReconcileApplication orchestrates one export-to-summary run.
type ReconcileApplication struct {
	dependencies ReconcileDependencies
}

// NewReconcileApplication builds the application with default dependencies.
func NewReconcileApplication() ReconcileApplication {
	return NewReconcileApplicationWithDependencies(ReconcileDependencies{})
}

// NewReconcileApplicationWithDependencies builds the application, filling any
// unset dependency with its default.
func NewReconcileApplicationWithDependencies(dependencies ReconcileDependencies) ReconcileApplication {
	if dependencies.FindExportDir == nil {
		dependencies.FindExportDir = export.FindExportDir
	}
	if dependencies.LoadCategorySets == nil {
		dependencies.LoadCategorySets = export.LoadCategorySets
	}
	if dependencies.WriteSummaryFile == nil {
		dependencies.WriteSummaryFile = relation.WriteSummaryFile
	}
	if dependencies.Now == nil {
		dependencies.Now = time.Now
	}
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	return ReconcileApplication{dependencies: dependencies}
}

// Run locates the export, reconciles the category sets, and writes the
// summary artifact.
func (application ReconcileApplication) Run(_ context.Context, configuration ReconcileConfiguration) error {
	exportDir, findErr := application.dependencies.FindExportDir(configuration.ExportBaseDir)
	if findErr != nil {
		return fmt.Errorf(findExportErrorFormat, findErr)
	}

	categorySets, loadErr := application.dependencies.LoadCategorySets(exportDir)
	if loadErr != nil {
		return fmt.Errorf(loadExportErrorFormat, exportDir, loadErr)
	}

	relationshipSets := relation.Reconcile(categorySets)
	summary := relation.BuildSummary(categorySets, relationshipSets, application.dependencies.Now())

	if writeErr := application.dependencies.WriteSummaryFile(configuration.OutputPath, summary); writeErr != nil {
		return fmt.Errorf(writeSummaryErrorFormat, configuration.OutputPath, writeErr)
	}

	fmt.Fprintf(application.dependencies.Stdout, countsReportFormat,
		summary.Counts.Followers,
		summary.Counts.Following,
		summary.Counts.PendingRequests,
		summary.Counts.Mutual,
		summary.Counts.NotFollowingBack,
		summary.Counts.PendingNotFollowingBack,
		summary.Counts.Fans,
	)
	fmt.Fprintf(application.dependencies.Stdout, writeSuccessFormat, configuration.OutputPath)
	return nil
}
