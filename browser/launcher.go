package browser

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"

	"airkosova-scraper/config"
)

// buildLauncher prepares a rod launcher with the flag set used in
// production. Launchers are single-use, so every browser gets a fresh one.
func buildLauncher(cfg *config.Config, headless bool) *launcher.Launcher {
	l := launcher.New().
		Headless(headless).
		NoSandbox(true).
		Leakless(false).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("disable-background-timer-throttling").
		Set("disable-renderer-backgrounding").
		Set("disable-breakpad").
		Set("disable-default-apps").
		Set("disable-hang-monitor").
		Set("disable-popup-blocking").
		Set("disable-sync").
		Set("disable-translate").
		Set("metrics-recording-only").
		Set("mute-audio").
		Set("disable-features", "TranslateUI,BlinkGenPropertyTrees")

	for _, arg := range cfg.LaunchArgs() {
		kv := strings.SplitN(strings.TrimPrefix(arg, "--"), "=", 2)
		if len(kv) == 2 {
			l = l.Set(flags.Flag(kv[0]), kv[1])
		} else {
			l = l.Set(flags.Flag(kv[0]))
		}
	}

	if bin := findChromeBinary(); bin != "" {
		l = l.Bin(bin)
	}
	return l
}

// findChromeBinary checks CHROME_BIN and the usual Linux install paths,
// falling back to rod's managed download when nothing matches.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}
	paths := []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// launchBrowser starts one browser instance with tabsPerBrowser page
// handles sharing its browsing context. It is the default Manager launch
// function; tests substitute their own.
func launchBrowser(cfg *config.Config, headless bool, index int) (*Browser, error) {
	url, err := buildLauncher(cfg, headless).Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser %d: %w", index, err)
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser %d: %w", index, err)
	}

	unit := &Browser{Index: index, rod: b}

	if cfg.BlockResources {
		unit.router = b.HijackRequests()
		block := func(ctx *rod.Hijack) {
			ctx.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
		}
		for _, rt := range []proto.NetworkResourceType{
			proto.NetworkResourceTypeImage,
			proto.NetworkResourceTypeFont,
			proto.NetworkResourceTypeMedia,
		} {
			if err := unit.router.Add("*", rt, block); err != nil {
				b.Close()
				return nil, fmt.Errorf("failed to install resource blocker: %w", err)
			}
		}
		go unit.router.Run()
	}

	for ti := 0; ti < cfg.Pool.TabsPerBrowser; ti++ {
		page, err := b.Page(proto.TargetCreateTarget{URL: "about:blank"})
		if err != nil {
			unit.close()
			return nil, fmt.Errorf("failed to open tab %d on browser %d: %w", ti, index, err)
		}
		if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             1280,
			Height:            900,
			DeviceScaleFactor: 1,
		}); err != nil {
			unit.close()
			return nil, fmt.Errorf("failed to set viewport on tab %d: %w", ti, err)
		}
		unit.Handles = append(unit.Handles, &PageHandle{
			BrowserIndex: index,
			TabIndex:     ti,
			Page:         newRodDriver(page),
		})
	}

	return unit, nil
}
