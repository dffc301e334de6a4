package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CRAWLER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("DATABASE_URL", "")
	t.Setenv("PORT", "")
	t.Setenv("CYCLE_INTERVAL_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, "3001", cfg.Port)
	require.Contains(t, cfg.DatabaseURL, "etimad_monitor")

	cc := cfg.Crawler
	require.True(t, cc.Headless)
	require.Equal(t, 8, cc.ItemDelaySeconds)
	require.Equal(t, 15, cc.PageDelaySeconds)
	require.Equal(t, 10, cc.PagesBeforeRest)
	require.Equal(t, []int{15, 20, 25, 30}, cc.RestMinutes)
	require.Equal(t, 6*time.Hour, cc.CycleInterval())
}

func TestLoadYAMLOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.yaml")
	yaml := `
item_delay_seconds: 3
pages_before_rest: 5
rest_minutes: [1, 2]
headless: false
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	t.Setenv("CRAWLER_CONFIG", path)
	t.Setenv("CYCLE_INTERVAL_HOURS", "")

	cfg, err := Load()
	require.NoError(t, err)

	cc := cfg.Crawler
	require.Equal(t, 3, cc.ItemDelaySeconds)
	require.Equal(t, 5, cc.PagesBeforeRest)
	require.Equal(t, []int{1, 2}, cc.RestMinutes)
	require.False(t, cc.Headless)
	// Untouched keys keep their defaults.
	require.Equal(t, 15, cc.PageDelaySeconds)
}

func TestLoadEnvIntervalOverride(t *testing.T) {
	t.Setenv("CRAWLER_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("CYCLE_INTERVAL_HOURS", "12")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 12*time.Hour, cfg.Crawler.CycleInterval())
}

func TestLoadRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "crawler.yaml")
	require.NoError(t, os.WriteFile(path, []byte("\titem_delay_seconds: x"), 0o644))
	t.Setenv("CRAWLER_CONFIG", path)

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Config{Crawler: defaultCrawler()}
	require.NoError(t, cfg.Validate())

	bad := cfg
	bad.Crawler.ListingURL = ""
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Crawler.PagesBeforeRest = 0
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Crawler.RestMinutes = nil
	require.Error(t, bad.Validate())

	bad = cfg
	bad.Crawler.CycleIntervalHours = 0
	require.Error(t, bad.Validate())
}

func TestDurationHelpers(t *testing.T) {
	cc := CrawlerConfig{
		ItemDelaySeconds:   8,
		PageDelaySeconds:   15,
		NavTimeoutSeconds:  60,
		StepTimeoutSeconds: 15,
		AwardWaitSeconds:   2,
	}
	require.Equal(t, 8*time.Second, cc.ItemDelay())
	require.Equal(t, 15*time.Second, cc.PageDelay())
	require.Equal(t, 60*time.Second, cc.NavTimeout())
	require.Equal(t, 15*time.Second, cc.StepTimeout())
	require.Equal(t, 2*time.Second, cc.AwardWait())
}
