package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/conradchan/igrestore/internal/relation"
)

func accountSet(usernames ...string) map[string]relation.AccountRecord {
	records := map[string]relation.AccountRecord{}
	for _, username := range usernames {
		records[username] = relation.AccountRecord{Username: username}
	}
	return records
}

func TestReconcileApplicationRun(t *testing.T) {
	var writtenPath string
	var writtenSummary relation.Summary
	var output bytes.Buffer

	application := NewReconcileApplicationWithDependencies(ReconcileDependencies{
		FindExportDir: func(baseDir string) (string, error) {
			if baseDir != "/exports" {
				t.Errorf("unexpected base dir %q", baseDir)
			}
			return "/exports/instagram/connections/followers_and_following", nil
		},
		LoadCategorySets: func(string) (relation.CategorySets, error) {
			return relation.CategorySets{
				Following: accountSet("alice", "bob"),
				Followers: accountSet("bob", "carol"),
				Pending:   accountSet(),
			}, nil
		},
		WriteSummaryFile: func(path string, summary relation.Summary) error {
			writtenPath = path
			writtenSummary = summary
			return nil
		},
		Now:    func() time.Time { return time.Date(2025, time.March, 1, 12, 0, 0, 0, time.UTC) },
		Stdout: &output,
	})

	runErr := application.Run(context.Background(), ReconcileConfiguration{
		ExportBaseDir: "/exports",
		OutputPath:    "results.json",
	})
	if runErr != nil {
		t.Fatalf("Run returned error: %v", runErr)
	}

	if writtenPath != "results.json" {
		t.Errorf("unexpected output path %q", writtenPath)
	}
	if writtenSummary.Counts.Mutual != 1 || writtenSummary.Counts.NotFollowingBack != 1 || writtenSummary.Counts.Fans != 1 {
		t.Errorf("unexpected counts %+v", writtenSummary.Counts)
	}
	if writtenSummary.GeneratedAt != "2025-03-01T12:00:00Z" {
		t.Errorf("unexpected generated_at %q", writtenSummary.GeneratedAt)
	}
	if !strings.Contains(output.String(), "Wrote results.json") {
		t.Errorf("expected success message, got %q", output.String())
	}
	if !strings.Contains(output.String(), "not_following_back=1") {
		t.Errorf("expected counts report, got %q", output.String())
	}
}

func TestReconcileApplicationRunMissingExport(t *testing.T) {
	application := NewReconcileApplicationWithDependencies(ReconcileDependencies{
		FindExportDir: func(string) (string, error) {
			return "", errors.New("no export found")
		},
		Stdout: &bytes.Buffer{},
	})

	runErr := application.Run(context.Background(), ReconcileConfiguration{ExportBaseDir: "/missing"})
	if runErr == nil {
		t.Fatalf("expected error for missing export")
	}
	if !strings.Contains(runErr.Error(), "no export found") {
		t.Errorf("expected wrapped cause, got %v", runErr)
	}
}
