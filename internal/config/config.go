package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone    = "Europe/Oslo"
	configPathEnv      = "PRESS_MONITOR_CONFIG"
	listingURLEnv      = "EURONEXT_URL"
	cutoffDateEnv      = "FILTER_DATE"
	timezoneEnv        = "MONITOR_TIMEZONE"
	windowStartEnv     = "BUSINESS_HOURS_START"
	windowEndEnv       = "BUSINESS_HOURS_END"
	webflowTokenEnv    = "WEBFLOW_API_TOKEN"
	webflowSiteEnv     = "WEBFLOW_SITE_ID"
	webflowCollEnv     = "WEBFLOW_COLLECTION_ID"
	dynamoTableEnv     = "DYNAMODB_TABLE_NAME"
	awsRegionEnv       = "AWS_REGION"
	logLevelEnv        = "LOG_LEVEL"
	cutoffDateLayout   = "2006-01-02"
	defaultCutoffDate  = "2025-05-12"
	defaultListingURL  = "https://live.euronext.com/en/listview/company-press-release/62020"
	defaultWebflowBase = "https://api.webflow.com"
)

// Config holds high-level settings required across the application.
// It is built once at startup and passed explicitly into constructors.
type Config struct {
	Source  SourceConfig  `yaml:"source"`
	Window  WindowConfig  `yaml:"window"`
	Webflow WebflowConfig `yaml:"webflow"`
	State   StateConfig   `yaml:"state"`
	Server  ServerConfig  `yaml:"server"`
	Logging LoggingConfig `yaml:"logging"`
}

// SourceConfig describes the listing site and extraction pacing.
type SourceConfig struct {
	ListingURL        string `yaml:"listingUrl"`
	CutoffDate        string `yaml:"cutoffDate"`
	PolitenessDelayMs int    `yaml:"politenessDelayMs"`
	NavTimeoutSec     int    `yaml:"navTimeoutSec"`
}

// PolitenessDelay is the pause between per-item detail navigations.
func (s SourceConfig) PolitenessDelay() time.Duration {
	return time.Duration(s.PolitenessDelayMs) * time.Millisecond
}

// NavTimeout bounds a single page navigation.
func (s SourceConfig) NavTimeout() time.Duration {
	return time.Duration(s.NavTimeoutSec) * time.Second
}

// Cutoff parses the configured cutoff date in the window timezone.
func (s SourceConfig) Cutoff(loc *time.Location) time.Time {
	t, err := time.ParseInLocation(cutoffDateLayout, s.CutoffDate, loc)
	if err != nil {
		log.Printf("config: invalid cutoff date %q, using %s", s.CutoffDate, defaultCutoffDate)
		t, _ = time.ParseInLocation(cutoffDateLayout, defaultCutoffDate, loc)
	}
	return t
}

// WindowConfig defines the allowed operating window for pipeline runs.
type WindowConfig struct {
	Timezone string         `yaml:"timezone"`
	Weekdays []string       `yaml:"weekdays"`
	Start    string         `yaml:"start"`
	End      string         `yaml:"end"`
	location *time.Location `yaml:"-"`
}

// Location resolves the window timezone string to a time.Location.
func (w WindowConfig) Location() *time.Location {
	if w.location != nil {
		return w.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// AllowedWeekdays maps configured day names onto time.Weekday values.
func (w WindowConfig) AllowedWeekdays() map[time.Weekday]bool {
	names := map[string]time.Weekday{
		"sunday": time.Sunday, "monday": time.Monday, "tuesday": time.Tuesday,
		"wednesday": time.Wednesday, "thursday": time.Thursday,
		"friday": time.Friday, "saturday": time.Saturday,
	}
	allowed := make(map[time.Weekday]bool, len(w.Weekdays))
	for _, name := range w.Weekdays {
		if day, ok := names[strings.ToLower(strings.TrimSpace(name))]; ok {
			allowed[day] = true
		}
	}
	return allowed
}

// WebflowConfig wires credentials and pacing for the destination CMS.
type WebflowConfig struct {
	APIToken          string `yaml:"apiToken"`
	SiteID            string `yaml:"siteId"`
	CollectionID      string `yaml:"collectionId"`
	BaseURL           string `yaml:"baseUrl"`
	RequestIntervalMs int    `yaml:"requestIntervalMs"`
	RateCooldownSec   int    `yaml:"rateCooldownSec"`
}

// RequestInterval is the minimum spacing between destination API calls.
func (w WebflowConfig) RequestInterval() time.Duration {
	return time.Duration(w.RequestIntervalMs) * time.Millisecond
}

// RateCooldown is the fixed pause before the single rate-limit retry.
func (w WebflowConfig) RateCooldown() time.Duration {
	return time.Duration(w.RateCooldownSec) * time.Second
}

// StateConfig describes the DynamoDB state table.
type StateConfig struct {
	TableName string `yaml:"tableName"`
	Region    string `yaml:"region"`
}

// ServerConfig configures the HTTP surface and serve-mode schedule.
type ServerConfig struct {
	Addr     string `yaml:"addr"`
	CronSpec string `yaml:"cronSpec"`
}

// LoggingConfig controls the console logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads .env, YAML configuration (if present) and applies environment
// overrides.
func Load() Config {
	_ = godotenv.Load()

	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(listingURLEnv); v != "" {
		c.Source.ListingURL = v
	}
	if v := os.Getenv(cutoffDateEnv); v != "" {
		c.Source.CutoffDate = v
	}
	if v := os.Getenv(timezoneEnv); v != "" {
		c.Window.Timezone = v
	}
	if v := os.Getenv(windowStartEnv); v != "" {
		c.Window.Start = v
	}
	if v := os.Getenv(windowEndEnv); v != "" {
		c.Window.End = v
	}
	if v := os.Getenv(webflowTokenEnv); v != "" {
		c.Webflow.APIToken = v
	}
	if v := os.Getenv(webflowSiteEnv); v != "" {
		c.Webflow.SiteID = v
	}
	if v := os.Getenv(webflowCollEnv); v != "" {
		c.Webflow.CollectionID = v
	}
	if v := os.Getenv(dynamoTableEnv); v != "" {
		c.State.TableName = v
	}
	if v := os.Getenv(awsRegionEnv); v != "" {
		c.State.Region = v
	}
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
}

func (c *Config) bindTimezone() {
	tz := c.Window.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Window.location = loc
}

func mergeConfig(base, override Config) Config {
	if override.Source.ListingURL != "" {
		base.Source.ListingURL = override.Source.ListingURL
	}
	if override.Source.CutoffDate != "" {
		base.Source.CutoffDate = override.Source.CutoffDate
	}
	if override.Source.PolitenessDelayMs > 0 {
		base.Source.PolitenessDelayMs = override.Source.PolitenessDelayMs
	}
	if override.Source.NavTimeoutSec > 0 {
		base.Source.NavTimeoutSec = override.Source.NavTimeoutSec
	}

	if override.Window.Timezone != "" {
		base.Window.Timezone = override.Window.Timezone
	}
	if len(override.Window.Weekdays) > 0 {
		base.Window.Weekdays = override.Window.Weekdays
	}
	if override.Window.Start != "" {
		base.Window.Start = override.Window.Start
	}
	if override.Window.End != "" {
		base.Window.End = override.Window.End
	}

	if override.Webflow.APIToken != "" {
		base.Webflow.APIToken = override.Webflow.APIToken
	}
	if override.Webflow.SiteID != "" {
		base.Webflow.SiteID = override.Webflow.SiteID
	}
	if override.Webflow.CollectionID != "" {
		base.Webflow.CollectionID = override.Webflow.CollectionID
	}
	if override.Webflow.BaseURL != "" {
		base.Webflow.BaseURL = override.Webflow.BaseURL
	}
	if override.Webflow.RequestIntervalMs > 0 {
		base.Webflow.RequestIntervalMs = override.Webflow.RequestIntervalMs
	}
	if override.Webflow.RateCooldownSec > 0 {
		base.Webflow.RateCooldownSec = override.Webflow.RateCooldownSec
	}

	if override.State.TableName != "" {
		base.State.TableName = override.State.TableName
	}
	if override.State.Region != "" {
		base.State.Region = override.State.Region
	}

	if override.Server.Addr != "" {
		base.Server.Addr = override.Server.Addr
	}
	if override.Server.CronSpec != "" {
		base.Server.CronSpec = override.Server.CronSpec
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	return base
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Source: SourceConfig{
			ListingURL:        defaultListingURL,
			CutoffDate:        defaultCutoffDate,
			PolitenessDelayMs: 2000,
			NavTimeoutSec:     30,
		},
		Window: WindowConfig{
			Timezone: defaultTimezone,
			Weekdays: []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"},
			Start:    "06:00",
			End:      "21:00",
			location: tz,
		},
		Webflow: WebflowConfig{
			BaseURL:           defaultWebflowBase,
			RequestIntervalMs: 1000,
			RateCooldownSec:   60,
		},
		State: StateConfig{
			TableName: "euronext-press-releases-state",
			Region:    "us-east-1",
		},
		Server: ServerConfig{
			Addr:     ":8080",
			CronSpec: "*/15 * * * *",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
