package scrape

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/fahad/etimad-monitor/internal/config"
)

type fakeBrowser struct {
	err error
}

func (b *fakeBrowser) NewTab() (context.Context, context.CancelFunc, error) {
	if b.err != nil {
		return nil, nil, b.err
	}
	return context.Background(), func() {}, nil
}

func testCrawlerConfig() config.CrawlerConfig {
	cfg := config.CrawlerConfig{
		ListingURL:         "https://tenders.etimad.sa/Tender/AllTendersForVisitor",
		PagesBeforeRest:    1000,
		RestMinutes:        []int{15},
		CycleIntervalHours: 6,
	}
	return cfg
}

func newTestScheduler(drv PageDriver, g Gateway) *Scheduler {
	pacer := NewPacer(nil)
	scraper := NewScraper(g, pacer, 0, zerolog.Nop())
	s := NewScheduler(&fakeBrowser{}, scraper, pacer, testCrawlerConfig(), zerolog.Nop())
	s.newDriver = func(context.Context) PageDriver { return drv }
	return s
}

func TestRunCycleWalksAllPages(t *testing.T) {
	drv := &fakeDriver{
		pages: [][]ListingEntry{
			{{URL: "u1", ReferenceNumber: "111"}, {URL: "u2", ReferenceNumber: "222"}},
			{{URL: "u3", ReferenceNumber: "333"}},
		},
		detailHTML: map[string]string{
			"u1": detailHTML("111", ""),
			"u2": detailHTML("222", ""),
			"u3": detailHTML("333", ""),
		},
		hasAward: map[string]bool{},
	}
	g := &fakeGateway{}
	s := newTestScheduler(drv, g)

	stats, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Pages)
	require.Equal(t, 3, stats.ItemsSeen)
	require.Equal(t, 3, stats.ItemsSaved)
	require.Len(t, g.saved, 3)
}

func TestRunCycleEmptyPageEndsCycle(t *testing.T) {
	drv := &fakeDriver{pages: [][]ListingEntry{{}}}
	s := newTestScheduler(drv, &fakeGateway{})

	stats, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, stats.Pages)
	require.Equal(t, 0, stats.ItemsSeen)
}

func TestRunCycleSingleFlight(t *testing.T) {
	gate := make(chan struct{})
	drv := &fakeDriver{
		pages: [][]ListingEntry{{}},
		gate:  gate,
	}
	s := newTestScheduler(drv, &fakeGateway{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = s.RunCycle(context.Background())
	}()

	require.Eventually(t, s.Running, time.Second, time.Millisecond)

	// A second invocation while the first holds the flag is a no-op.
	stats, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, CycleStats{}, stats)

	close(gate)
	<-done
	require.False(t, s.Running())
}

func TestRunCycleTabFailure(t *testing.T) {
	pacer := NewPacer(nil)
	scraper := NewScraper(&fakeGateway{}, pacer, 0, zerolog.Nop())
	s := NewScheduler(&fakeBrowser{err: errors.New("browser died")}, scraper, pacer, testCrawlerConfig(), zerolog.Nop())

	_, err := s.RunCycle(context.Background())
	require.Error(t, err)
	require.False(t, s.Running())
}

func TestRunCycleListingFailure(t *testing.T) {
	drv := &fakeDriver{listingErr: errors.New("nav timeout")}
	s := newTestScheduler(drv, &fakeGateway{})

	_, err := s.RunCycle(context.Background())
	require.Error(t, err)
	require.False(t, s.Running())
}

func TestRunCycleRestsBetweenPageBatches(t *testing.T) {
	drv := &fakeDriver{
		pages: [][]ListingEntry{
			{{URL: "u1", ReferenceNumber: "111"}},
			{{URL: "u2", ReferenceNumber: "222"}},
		},
		detailHTML: map[string]string{
			"u1": detailHTML("111", ""),
			"u2": detailHTML("222", ""),
		},
		hasAward: map[string]bool{},
	}
	// Every page boundary hits the rest branch; the single configured rest
	// duration makes the draw observable as a wall-clock lower bound.
	pacer := Pacer{restOptions: []time.Duration{50 * msec}}
	g := &fakeGateway{}
	scraper := NewScraper(g, pacer, 0, zerolog.Nop())
	cfg := testCrawlerConfig()
	cfg.PagesBeforeRest = 1
	s := NewScheduler(&fakeBrowser{}, scraper, pacer, cfg, zerolog.Nop())
	s.newDriver = func(context.Context) PageDriver { return drv }

	start := time.Now()
	stats, err := s.RunCycle(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, stats.Pages)
	// One rest: after page 1. The last page ends the cycle without one.
	require.GreaterOrEqual(t, time.Since(start), 50*msec)
}

func TestStartReturnsOnCancel(t *testing.T) {
	drv := &fakeDriver{pages: [][]ListingEntry{{}}}
	s := newTestScheduler(drv, &fakeGateway{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Start(ctx)
	}()
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after cancellation")
	}
	require.False(t, s.Running())
}

func TestRunCycleHonorsCancellation(t *testing.T) {
	drv := &fakeDriver{
		pages: [][]ListingEntry{{}},
	}
	s := newTestScheduler(drv, &fakeGateway{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RunCycle(ctx)
	require.ErrorIs(t, err, context.Canceled)
}
