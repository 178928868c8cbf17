package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.TargetHome != "https://sys.prishtinaticket.net/" {
		t.Errorf("TargetHome = %q", cfg.TargetHome)
	}
	if cfg.Pool.Browsers != 2 || cfg.Pool.TabsPerBrowser != 8 {
		t.Errorf("pool = %d x %d, want 2 x 8", cfg.Pool.Browsers, cfg.Pool.TabsPerBrowser)
	}
	if cfg.Server.Addr != ":3000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
target_home: "https://file.example/"
pool:
  browsers: 3
  tabs_per_browser: 4
server:
  addr: ":8080"
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Setenv("TARGET_SITE_HOME", "https://env.example/")
	t.Setenv("SCRAPER_POOL_BROWSERS", "5")
	t.Setenv("PORT", "9090")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Env wins over file, file wins over defaults.
	if cfg.TargetHome != "https://env.example/" {
		t.Errorf("TargetHome = %q, want env override", cfg.TargetHome)
	}
	if cfg.Pool.Browsers != 5 {
		t.Errorf("Browsers = %d, want 5 from env", cfg.Pool.Browsers)
	}
	if cfg.Pool.TabsPerBrowser != 4 {
		t.Errorf("TabsPerBrowser = %d, want 4 from file", cfg.Pool.TabsPerBrowser)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q, want :9090 from PORT", cfg.Server.Addr)
	}
}

func TestLoadClampsPoolSizes(t *testing.T) {
	t.Setenv("SCRAPER_POOL_BROWSERS", "50")
	t.Setenv("SCRAPER_POOL_TABS_PER_BROWSER", "0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Pool.Browsers != 8 {
		t.Errorf("Browsers = %d, want clamp to 8", cfg.Pool.Browsers)
	}
	if cfg.Pool.TabsPerBrowser != 1 {
		t.Errorf("TabsPerBrowser = %d, want clamp to 1", cfg.Pool.TabsPerBrowser)
	}
}

func TestPoolKeyDistinguishesModes(t *testing.T) {
	cfg := Default()
	if cfg.PoolKey(true) == cfg.PoolKey(false) {
		t.Error("headless and headed pools must have distinct keys")
	}
}
