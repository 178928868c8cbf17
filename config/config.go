package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PoolConfig sizes the browser pool.
type PoolConfig struct {
	Browsers       int  `yaml:"browsers"`
	TabsPerBrowser int  `yaml:"tabs_per_browser"`
	Warmup         bool `yaml:"warmup"`
}

// TimeoutConfig holds the per-phase timeout budget in milliseconds.
// There is deliberately no whole-request budget; each phase fails on its
// own clock.
type TimeoutConfig struct {
	NavigateMs          int `yaml:"navigate_ms"`
	FieldVisibleMs      int `yaml:"field_visible_ms"`
	CalendarMs          int `yaml:"calendar_ms"`
	SubmitSettleMs      int `yaml:"submit_settle_ms"`
	OutboundTableMs     int `yaml:"outbound_table_ms"`
	ReturnTableMs       int `yaml:"return_table_ms"`
	StabilizePollMs     int `yaml:"stabilize_poll_ms"`
	StabilizeRounds     int `yaml:"stabilize_rounds"`
	StabilizeOutboundMs int `yaml:"stabilize_outbound_ms"`
	StabilizeReturnMs   int `yaml:"stabilize_return_ms"`
	ResetMs             int `yaml:"reset_ms"`
}

// ServerConfig configures the HTTP front end.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the whole application configuration. Values are read once at
// startup: defaults, then the YAML file, then environment overrides.
type Config struct {
	TargetHome     string `yaml:"target_home"`
	Headless       bool   `yaml:"headless"`
	ForceHeadless  bool   `yaml:"force_headless"`
	BlockResources bool   `yaml:"block_resources"`
	KeepReady      bool   `yaml:"keep_ready"`
	KeepOpenMaxMs  int64  `yaml:"keep_open_max_ms"`

	Pool     PoolConfig    `yaml:"pool"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
	Server   ServerConfig  `yaml:"server"`
}

// Default returns the built-in configuration, matching the scraper's
// production defaults.
func Default() *Config {
	return &Config{
		TargetHome:     "https://sys.prishtinaticket.net/",
		Headless:       true,
		ForceHeadless:  false,
		BlockResources: true,
		KeepReady:      true,
		KeepOpenMaxMs:  120000,
		Pool: PoolConfig{
			Browsers:       2,
			TabsPerBrowser: 8,
			Warmup:         true,
		},
		Timeouts: TimeoutConfig{
			NavigateMs:          60000,
			FieldVisibleMs:      30000,
			CalendarMs:          30000,
			SubmitSettleMs:      150,
			OutboundTableMs:     90000,
			ReturnTableMs:       90000,
			StabilizePollMs:     300,
			StabilizeRounds:     4,
			StabilizeOutboundMs: 40000,
			StabilizeReturnMs:   60000,
			ResetMs:             15000,
		},
		Server: ServerConfig{Addr: ":3000"},
	}
}

// Load builds the configuration from defaults, an optional YAML file and
// environment variables (a .env file is honored when present).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
			log.Printf("[config] %s not found, using defaults\n", path)
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}
	cfg.applyEnv()
	cfg.clamp()

	return cfg, nil
}

// applyEnv layers environment overrides over the file values. The names
// match the original deployment's knobs.
func (c *Config) applyEnv() {
	if v := os.Getenv("TARGET_SITE_HOME"); v != "" {
		c.TargetHome = v
	}
	if v := os.Getenv("SCRAPER_FORCE_HEADLESS"); v != "" {
		c.ForceHeadless = parseBool(v, c.ForceHeadless)
	}
	if v := os.Getenv("SCRAPER_BLOCK_RESOURCES"); v != "" {
		c.BlockResources = parseBool(v, c.BlockResources)
	}
	if v := os.Getenv("SCRAPER_KEEP_READY"); v != "" {
		c.KeepReady = parseBool(v, c.KeepReady)
	}
	if v := os.Getenv("SCRAPER_POOL_WARMUP"); v != "" {
		c.Pool.Warmup = parseBool(v, c.Pool.Warmup)
	}
	c.Pool.Browsers = getEnvInt("SCRAPER_POOL_BROWSERS", c.Pool.Browsers)
	c.Pool.TabsPerBrowser = getEnvInt("SCRAPER_POOL_TABS_PER_BROWSER", c.Pool.TabsPerBrowser)
	if v := os.Getenv("PORT"); v != "" {
		c.Server.Addr = ":" + v
	}
}

// clamp bounds the pool matrix to sane launch limits.
func (c *Config) clamp() {
	c.Pool.Browsers = clampInt(c.Pool.Browsers, 1, 8)
	c.Pool.TabsPerBrowser = clampInt(c.Pool.TabsPerBrowser, 1, 32)
	if c.KeepOpenMaxMs < 0 {
		c.KeepOpenMaxMs = 0
	}
	if c.Timeouts.StabilizeRounds < 1 {
		c.Timeouts.StabilizeRounds = 1
	}
}

// LaunchArgs returns the extra browser arguments that, together with the
// headless flag, form the pool identity key.
func (c *Config) LaunchArgs() []string {
	return []string{"--window-size=1280,900"}
}

// PoolKey identifies a pool build; a changed key forces a rebuild.
func (c *Config) PoolKey(headless bool) string {
	mode := "V"
	if headless {
		mode = "H"
	}
	return mode + "|" + strings.Join(c.LaunchArgs(), " ")
}

func parseBool(v string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "true", "1", "yes", "y", "on":
		return true
	case "false", "0", "no", "n", "off":
		return false
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func clampInt(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}
