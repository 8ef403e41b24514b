package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/conradchan/igrestore/internal/igclient"
	"github.com/conradchan/igrestore/internal/pacing"
	"github.com/conradchan/igrestore/internal/profiles"
	"github.com/conradchan/igrestore/internal/relation"
)

const (
	loadRosterErrorFormat   = "load roster %s: %w"
	loadSummaryErrorFormat  = "load summary %s: %w"
	loadCacheErrorFormat    = "load cache %s: %w"
	buildFetcherErrorFormat = "build fetcher: %w"
	noTargetsErrorMessage   = "no fetch targets: provide a summary or a roster"
	resetReportFormat       = "Reset %d retryable entries\n"
	tallyLineFormat         = "%s=%d\n"
	targetsReportFormat     = "Fetching %d of %d targets (%d already resolved)\n"
)

// FetchConfiguration carries the resolved inputs for one fetch run.
type FetchConfiguration struct {
	SummaryPath      string
	RosterPath       string
	CachePath        string
	SessionID        string
	Reset            bool
	MinDelay         time.Duration
	MaxDelay         time.Duration
	CheckpointEvery  int
	FailureThreshold int
	Cooldown         time.Duration
}

// FetchDependencies lists the collaborators the application needs. Tests
// substitute individual fields; unset fields fall back to the defaults.
type FetchDependencies struct {
	LoadRoster      func(string) ([]relation.AccountRecord, error)
	ReadSummaryFile func(string) (relation.Summary, error)
	LoadCache       func(string) (*profiles.Cache, error)
	BuildFetcher    func(sessionID string) (profiles.Fetcher, error)
	Logger          *zap.Logger
	Wait            func(ctx context.Context, duration time.Duration) error
	Stdout          io.Writer
}

// FetchApplication orchestrates one profile fetch run.
type FetchApplication struct {
	dependencies FetchDependencies
}

// NewFetchApplication builds the application with default dependencies.
func NewFetchApplication() FetchApplication {
	return NewFetchApplicationWithDependencies(FetchDependencies{})
}

// NewFetchApplicationWithDependencies builds the application, filling any
// unset dependency with its default.
func NewFetchApplicationWithDependencies(dependencies FetchDependencies) FetchApplication {
	if dependencies.LoadRoster == nil {
		dependencies.LoadRoster = relation.LoadRoster
	}
	if dependencies.ReadSummaryFile == nil {
		dependencies.ReadSummaryFile = relation.ReadSummaryFile
	}
	if dependencies.LoadCache == nil {
		dependencies.LoadCache = profiles.LoadCache
	}
	if dependencies.BuildFetcher == nil {
		dependencies.BuildFetcher = func(sessionID string) (profiles.Fetcher, error) {
			return igclient.NewClient(igclient.Config{SessionID: sessionID})
		}
	}
	if dependencies.Logger == nil {
		dependencies.Logger = zap.NewNop()
	}
	if dependencies.Stdout == nil {
		dependencies.Stdout = os.Stdout
	}
	return FetchApplication{dependencies: dependencies}
}

// displayNameFetcher decorates a Fetcher with roster display names so cached
// records keep the name the export carried even when the remote omits one.
type displayNameFetcher struct {
	inner        profiles.Fetcher
	displayNames map[string]string
}

func (fetcher displayNameFetcher) FetchProfile(ctx context.Context, username string) profiles.Profile {
	profile := fetcher.inner.FetchProfile(ctx, username)
	if profile.DisplayName == "" {
		profile.DisplayName = fetcher.displayNames[username]
	}
	return profile
}

// Run assembles the target plan from the summary and roster, then drives the
// fetch engine over it.
func (application FetchApplication) Run(ctx context.Context, configuration FetchConfiguration) error {
	plan := profiles.NewFetchPlan()
	displayNames := map[string]string{}

	if configuration.RosterPath != "" {
		rosterRecords, rosterErr := application.dependencies.LoadRoster(configuration.RosterPath)
		if rosterErr != nil {
			return fmt.Errorf(loadRosterErrorFormat, configuration.RosterPath, rosterErr)
		}
		plan.AddRoster(rosterRecords)
		for _, record := range rosterRecords {
			if record.DisplayName != "" {
				displayNames[record.Username] = record.DisplayName
			}
		}
	}

	if configuration.SummaryPath != "" {
		summary, summaryErr := application.dependencies.ReadSummaryFile(configuration.SummaryPath)
		if summaryErr != nil {
			if !errors.Is(summaryErr, os.ErrNotExist) || plan.TargetCount() == 0 {
				return fmt.Errorf(loadSummaryErrorFormat, configuration.SummaryPath, summaryErr)
			}
		} else {
			plan.AddSummary(summary)
		}
	}

	if plan.TargetCount() == 0 {
		return errors.New(noTargetsErrorMessage)
	}

	cache, cacheErr := application.dependencies.LoadCache(configuration.CachePath)
	if cacheErr != nil {
		return fmt.Errorf(loadCacheErrorFormat, configuration.CachePath, cacheErr)
	}

	if configuration.Reset {
		removedUsernames := cache.Reset()
		fmt.Fprintf(application.dependencies.Stdout, resetReportFormat, len(removedUsernames))
	}

	fetcher, fetcherErr := application.dependencies.BuildFetcher(configuration.SessionID)
	if fetcherErr != nil {
		return fmt.Errorf(buildFetcherErrorFormat, fetcherErr)
	}

	targets := plan.Usernames()
	pendingCount := len(cache.Pending(targets))
	fmt.Fprintf(application.dependencies.Stdout, targetsReportFormat,
		pendingCount, len(targets), len(targets)-pendingCount)

	engine := profiles.NewEngine(profiles.EngineConfig{
		Fetcher: displayNameFetcher{inner: fetcher, displayNames: displayNames},
		Cache:   cache,
		Logger:  application.dependencies.Logger,
		Pacing: pacing.Config{
			MinDelay: configuration.MinDelay,
			MaxDelay: configuration.MaxDelay,
		},
		CheckpointEvery:  configuration.CheckpointEvery,
		FailureThreshold: configuration.FailureThreshold,
		Cooldown:         configuration.Cooldown,
		Wait:             application.dependencies.Wait,
	})

	tally, runErr := engine.Run(ctx, targets)
	application.printTally(tally)
	return runErr
}

func (application FetchApplication) printTally(tally map[profiles.Status]int) {
	statuses := make([]string, 0, len(tally))
	for status := range tally {
		statuses = append(statuses, string(status))
	}
	sort.Strings(statuses)
	for _, status := range statuses {
		fmt.Fprintf(application.dependencies.Stdout, tallyLineFormat, status, tally[profiles.Status(status)])
	}
}
