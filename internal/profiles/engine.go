package profiles

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/conradchan/igrestore/internal/pacing"
)

const (
	defaultCheckpointEvery  = 10
	defaultFailureThreshold = 5
	defaultCooldown         = 60 * time.Second

	logMessageFetchOutcome   = "profile fetched"
	logMessageCheckpoint     = "profile cache checkpoint"
	logMessageBreakerPause   = "consecutive failures reached threshold, pausing"
	logMessageBreakerResume  = "resuming after cooldown"
	logFieldUsername         = "username"
	logFieldStatus           = "status"
	logFieldCompleted        = "completed"
	logFieldTotal            = "total"
	logFieldCachedEntries    = "cached_entries"
	logFieldFailures         = "failures"
	logFieldCooldownDuration = "cooldown"
)

// Fetcher retrieves the profile for a single username. Per-item failures are
// reported through the returned Profile's status, never as an error, so one
// bad username cannot abort a batch.
type Fetcher interface {
	FetchProfile(ctx context.Context, username string) Profile
}

// EngineConfig configures a fetch Engine.
type EngineConfig struct {
	Fetcher Fetcher
	Cache   *Cache
	Logger  *zap.Logger

	// Pacing samples the randomized delay between consecutive fetches.
	Pacing pacing.Config

	// CheckpointEvery bounds how many fetch results may be lost to a crash.
	CheckpointEvery int
	// FailureThreshold is the consecutive-failure count that trips the
	// circuit breaker.
	FailureThreshold int
	// Cooldown is how long fetching suspends after the breaker trips.
	Cooldown time.Duration

	// Wait is the suspension primitive; tests inject a no-op to run without
	// wall-clock delays. Defaults to pacing.WaitFor.
	Wait func(ctx context.Context, duration time.Duration) error

	// Tracker, when set, observes per-fetch progress.
	Tracker *RunTracker
}

// Engine drives a resumable, paced, sequential fetch run over a target set.
type Engine struct {
	fetcher          Fetcher
	cache            *Cache
	logger           *zap.Logger
	pacer            *pacing.Pacer
	checkpointEvery  int
	failureThreshold int
	cooldown         time.Duration
	wait             func(ctx context.Context, duration time.Duration) error
	tracker          *RunTracker
}

// NewEngine constructs an Engine, applying defaults for unset knobs.
func NewEngine(configuration EngineConfig) *Engine {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	checkpointEvery := configuration.CheckpointEvery
	if checkpointEvery <= 0 {
		checkpointEvery = defaultCheckpointEvery
	}
	failureThreshold := configuration.FailureThreshold
	if failureThreshold <= 0 {
		failureThreshold = defaultFailureThreshold
	}
	cooldown := configuration.Cooldown
	if cooldown <= 0 {
		cooldown = defaultCooldown
	}
	wait := configuration.Wait
	if wait == nil {
		wait = pacing.WaitFor
	}
	return &Engine{
		fetcher:          configuration.Fetcher,
		cache:            configuration.Cache,
		logger:           logger,
		pacer:            pacing.NewPacer(configuration.Pacing),
		checkpointEvery:  checkpointEvery,
		failureThreshold: failureThreshold,
		cooldown:         cooldown,
		wait:             wait,
		tracker:          configuration.Tracker,
	}
}

// Run fetches every target username not already resolved terminally, one at a
// time. The cache is persisted every CheckpointEvery fetches, unconditionally
// before a breaker pause, and at completion. It returns the status tally over
// the whole cache.
//
// Per-username state transitions: an unresolved username moves to a terminal
// status (active, not_found) or a retryable one (error, http_error,
// login_required); terminal entries are never overwritten except by an
// explicit Reset on the cache.
func (engine *Engine) Run(ctx context.Context, targets []string) (map[Status]int, error) {
	pendingUsernames := engine.cache.Pending(targets)
	if engine.tracker == nil {
		engine.tracker = NewRunTracker(len(pendingUsernames))
	}

	consecutiveFailures := 0
	sinceCheckpoint := 0

	for index, username := range pendingUsernames {
		select {
		case <-ctx.Done():
			if saveErr := engine.cache.Save(); saveErr != nil {
				return engine.cache.Tally(), saveErr
			}
			return engine.cache.Tally(), ctx.Err()
		default:
		}

		profile := engine.fetcher.FetchProfile(ctx, username)
		profile.Username = username
		engine.cache.Put(profile)
		engine.tracker.Record(profile.Status)
		sinceCheckpoint++

		engine.logger.Info(logMessageFetchOutcome,
			zap.String(logFieldUsername, username),
			zap.String(logFieldStatus, string(profile.Status)),
			zap.Int(logFieldCompleted, index+1),
			zap.Int(logFieldTotal, len(pendingUsernames)),
		)

		if profile.Status.Retryable() {
			consecutiveFailures++
		} else {
			consecutiveFailures = 0
		}

		if consecutiveFailures >= engine.failureThreshold {
			if pauseErr := engine.pauseForCooldown(ctx, consecutiveFailures); pauseErr != nil {
				return engine.cache.Tally(), pauseErr
			}
			consecutiveFailures = 0
			sinceCheckpoint = 0
		} else if sinceCheckpoint >= engine.checkpointEvery {
			if saveErr := engine.cache.Save(); saveErr != nil {
				return engine.cache.Tally(), saveErr
			}
			engine.logger.Debug(logMessageCheckpoint, zap.Int(logFieldCachedEntries, engine.cache.Len()))
			sinceCheckpoint = 0
		}

		if index == len(pendingUsernames)-1 {
			continue
		}
		if waitErr := engine.wait(ctx, engine.pacer.NextDelay()); waitErr != nil {
			if saveErr := engine.cache.Save(); saveErr != nil {
				return engine.cache.Tally(), saveErr
			}
			return engine.cache.Tally(), waitErr
		}
	}

	if saveErr := engine.cache.Save(); saveErr != nil {
		return engine.cache.Tally(), saveErr
	}
	return engine.cache.Tally(), nil
}

// pauseForCooldown persists the cache and suspends fetching. The breaker is
// control flow, not an error: fetching always resumes after the cooldown.
func (engine *Engine) pauseForCooldown(ctx context.Context, failures int) error {
	if saveErr := engine.cache.Save(); saveErr != nil {
		return saveErr
	}
	engine.logger.Warn(logMessageBreakerPause,
		zap.Int(logFieldFailures, failures),
		zap.Duration(logFieldCooldownDuration, engine.cooldown),
	)
	engine.tracker.SetPaused(true)
	waitErr := engine.wait(ctx, engine.cooldown)
	engine.tracker.SetPaused(false)
	if waitErr != nil {
		return waitErr
	}
	engine.logger.Info(logMessageBreakerResume)
	return nil
}
