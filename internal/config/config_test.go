package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	// Neutralize ambient overrides (CI commonly sets AWS_REGION).
	t.Setenv(awsRegionEnv, "")
	t.Setenv(dynamoTableEnv, "")
	t.Setenv(listingURLEnv, "")
	t.Setenv(configPathEnv, "")

	cfg := Load()

	assert.Equal(t, defaultListingURL, cfg.Source.ListingURL)
	assert.Equal(t, defaultCutoffDate, cfg.Source.CutoffDate)
	assert.Equal(t, 2*time.Second, cfg.Source.PolitenessDelay())
	assert.Equal(t, 30*time.Second, cfg.Source.NavTimeout())
	assert.Equal(t, time.Second, cfg.Webflow.RequestInterval())
	assert.Equal(t, 60*time.Second, cfg.Webflow.RateCooldown())
	assert.Equal(t, "euronext-press-releases-state", cfg.State.TableName)
	assert.Equal(t, defaultTimezone, cfg.Window.Location().String())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv(configPathEnv, "")
	t.Setenv(listingURLEnv, "https://example.com/listing")
	t.Setenv(webflowTokenEnv, "secret")
	t.Setenv(dynamoTableEnv, "custom-table")
	t.Setenv(awsRegionEnv, "eu-west-1")

	cfg := Load()

	assert.Equal(t, "https://example.com/listing", cfg.Source.ListingURL)
	assert.Equal(t, "secret", cfg.Webflow.APIToken)
	assert.Equal(t, "custom-table", cfg.State.TableName)
	assert.Equal(t, "eu-west-1", cfg.State.Region)
}

func TestLoadYAMLFileMerge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	raw := `
source:
  cutoffDate: "2025-06-01"
  politenessDelayMs: 500
window:
  timezone: Europe/Paris
  weekdays: [Monday, Wednesday]
  start: "08:00"
  end: "18:00"
webflow:
  collectionId: coll-from-file
`
	require.NoError(t, os.WriteFile(path, []byte(raw), 0o600))
	t.Setenv(configPathEnv, path)

	cfg := Load()

	assert.Equal(t, "2025-06-01", cfg.Source.CutoffDate)
	assert.Equal(t, 500*time.Millisecond, cfg.Source.PolitenessDelay())
	assert.Equal(t, "Europe/Paris", cfg.Window.Timezone)
	assert.Equal(t, "08:00", cfg.Window.Start)
	assert.Equal(t, "coll-from-file", cfg.Webflow.CollectionID)
	// Defaults survive where the file is silent.
	assert.Equal(t, defaultListingURL, cfg.Source.ListingURL)
}

func TestAllowedWeekdays(t *testing.T) {
	w := WindowConfig{Weekdays: []string{"monday", " Friday ", "nonsense"}}

	allowed := w.AllowedWeekdays()
	assert.True(t, allowed[time.Monday])
	assert.True(t, allowed[time.Friday])
	assert.False(t, allowed[time.Sunday])
	assert.Len(t, allowed, 2)
}

func TestCutoffFallsBackOnBadDate(t *testing.T) {
	s := SourceConfig{CutoffDate: "garbage"}
	got := s.Cutoff(time.UTC)

	want, _ := time.ParseInLocation("2006-01-02", defaultCutoffDate, time.UTC)
	assert.True(t, got.Equal(want))
}
