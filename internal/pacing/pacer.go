// Package pacing provides randomized request pacing for remote fetch loops.
// Two ranges are used in practice: a slow range for profile enrichment calls
// and a faster range for lightweight picture downloads.
package pacing

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

const (
	// DefaultProfileMinDelay and DefaultProfileMaxDelay pace full profile
	// enrichment fetches.
	DefaultProfileMinDelay = 2 * time.Second
	DefaultProfileMaxDelay = 5 * time.Second

	// DefaultPictureMinDelay and DefaultPictureMaxDelay pace lightweight
	// asset downloads.
	DefaultPictureMinDelay = 300 * time.Millisecond
	DefaultPictureMaxDelay = 1 * time.Second
)

// Config describes the delay range sampled between consecutive requests.
type Config struct {
	MinDelay        time.Duration
	MaxDelay        time.Duration
	RandomGenerator *rand.Rand
}

// Pacer samples randomized delays from a configured range.
type Pacer struct {
	minDelay        time.Duration
	maxDelay        time.Duration
	randomGenerator *rand.Rand
	mutex           sync.Mutex
}

// NewPacer constructs a Pacer from configuration values, normalizing an
// inverted or negative range.
func NewPacer(configuration Config) *Pacer {
	minDelay := configuration.MinDelay
	if minDelay < 0 {
		minDelay = 0
	}
	maxDelay := configuration.MaxDelay
	if maxDelay < minDelay {
		maxDelay = minDelay
	}
	randomGenerator := configuration.RandomGenerator
	if randomGenerator == nil {
		randomGenerator = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Pacer{
		minDelay:        minDelay,
		maxDelay:        maxDelay,
		randomGenerator: randomGenerator,
	}
}

// NextDelay samples the next inter-request delay.
func (pacer *Pacer) NextDelay() time.Duration {
	pacer.mutex.Lock()
	defer pacer.mutex.Unlock()

	spread := pacer.maxDelay - pacer.minDelay
	if spread <= 0 {
		return pacer.minDelay
	}
	return pacer.minDelay + time.Duration(pacer.randomGenerator.Int63n(int64(spread)+1))
}

// Wait blocks for the next sampled delay or until the context is cancelled.
func (pacer *Pacer) Wait(ctx context.Context) error {
	return WaitFor(ctx, pacer.NextDelay())
}

// WaitFor blocks for the supplied duration or until the context is cancelled.
func WaitFor(ctx context.Context, duration time.Duration) error {
	if duration <= 0 {
		return nil
	}

	timer := time.NewTimer(duration)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
