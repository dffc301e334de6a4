package scrape

import (
	"context"
	"math/rand"
	"time"
)

const msec = time.Millisecond

// Pacer computes the randomized delays that keep the crawl looking like a
// person browsing: jittered waits between actions and long rests between
// page batches. Pure computation, no side effects.
type Pacer struct {
	restOptions []time.Duration
}

func NewPacer(restMinutes []int) Pacer {
	opts := make([]time.Duration, 0, len(restMinutes))
	for _, m := range restMinutes {
		if m > 0 {
			opts = append(opts, time.Duration(m)*time.Minute)
		}
	}
	if len(opts) == 0 {
		opts = []time.Duration{15 * time.Minute, 20 * time.Minute, 25 * time.Minute, 30 * time.Minute}
	}
	return Pacer{restOptions: opts}
}

// Jitter returns a uniformly random duration in [0.6*base, 1.4*base].
// Always positive for a positive base.
func (p Pacer) Jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	f := 0.6 + rand.Float64()*0.8
	return time.Duration(float64(base) * f)
}

// Between returns a uniformly random duration in [min, max].
func (p Pacer) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int63n(int64(max-min)+1))
}

// Rest picks one of the configured long rest durations.
func (p Pacer) Rest() time.Duration {
	return p.restOptions[rand.Intn(len(p.restOptions))]
}

// sleep blocks for d or until ctx is done, whichever comes first.
func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
