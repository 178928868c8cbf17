package browser

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"airkosova-scraper/config"
	"airkosova-scraper/models"
)

// LaunchFunc starts one browser instance; tests inject a fake one.
type LaunchFunc func(cfg *config.Config, headless bool, index int) (*Browser, error)

// buildJob tracks one in-flight pool construction so that concurrent
// Ensure calls for the same key share a single build instead of racing.
type buildJob struct {
	key  string
	done chan struct{}
	pool *Pool
	err  error
}

// Manager owns the lifecycle of the current pool: lazy construction,
// identity-key rebuilds, warm-up and shutdown.
type Manager struct {
	cfg          *config.Config
	launch       LaunchFunc
	warmSelector string

	mu       sync.Mutex
	pool     *Pool
	building *buildJob
}

// NewManager creates a manager that launches real browsers. warmSelector
// is the element whose visibility marks a tab as sitting on the ready
// search form.
func NewManager(cfg *config.Config, warmSelector string) *Manager {
	return NewManagerWithLaunch(cfg, warmSelector, launchBrowser)
}

// NewManagerWithLaunch creates a manager with a custom launch function.
func NewManagerWithLaunch(cfg *config.Config, warmSelector string, launch LaunchFunc) *Manager {
	return &Manager{
		cfg:          cfg,
		launch:       launch,
		warmSelector: warmSelector,
	}
}

// Ensure returns a pool matching the requested mode, building it on
// first use. A mode change (headless vs headed) retires the old pool and
// builds a fresh one; concurrent callers asking for the same key join
// the in-flight build rather than starting their own.
func (m *Manager) Ensure(ctx context.Context, headless bool) (*Pool, error) {
	key := m.cfg.PoolKey(headless)

	for {
		m.mu.Lock()
		if m.pool != nil && m.pool.Key() == key {
			pool := m.pool
			m.mu.Unlock()
			return pool, nil
		}
		if m.building != nil && m.building.key == key {
			job := m.building
			m.mu.Unlock()
			select {
			case <-job.done:
				return job.pool, job.err
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
		if m.building != nil {
			// A build for a different key is in flight; wait for it to
			// settle, then re-evaluate.
			job := m.building
			m.mu.Unlock()
			select {
			case <-job.done:
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		old := m.pool
		m.pool = nil
		job := &buildJob{key: key, done: make(chan struct{})}
		m.building = job
		m.mu.Unlock()

		if old != nil {
			log.Printf("[pool] Key changed (%s -> %s), closing old pool\n", old.Key(), key)
			if err := old.Close(); err != nil {
				log.Printf("[pool] Error closing retired pool: %v\n", err)
			}
		}

		pool, err := m.build(ctx, key, headless)

		m.mu.Lock()
		if err == nil {
			m.pool = pool
		}
		m.building = nil
		m.mu.Unlock()

		job.pool = pool
		job.err = err
		close(job.done)
		return pool, err
	}
}

// build launches the configured browser matrix and optionally warms
// every tab onto the home form.
func (m *Manager) build(ctx context.Context, key string, headless bool) (*Pool, error) {
	start := time.Now()
	log.Printf("[pool] Building pool %s: %d browser(s) x %d tab(s)\n",
		key, m.cfg.Pool.Browsers, m.cfg.Pool.TabsPerBrowser)

	pool := &Pool{
		key:        key,
		headless:   headless,
		targetHome: m.cfg.TargetHome,
		browsers:   make([]*Browser, m.cfg.Pool.Browsers),
	}

	eg, _ := errgroup.WithContext(ctx)
	for i := 0; i < m.cfg.Pool.Browsers; i++ {
		i := i
		eg.Go(func() error {
			b, err := m.launch(m.cfg, headless, i)
			if err != nil {
				return err
			}
			pool.browsers[i] = b
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		for _, b := range pool.browsers {
			if b != nil {
				_ = b.close()
			}
		}
		return nil, fmt.Errorf("failed to build browser pool: %w", err)
	}

	if m.cfg.Pool.Warmup {
		m.warmup(pool)
	}

	log.Printf("[pool] Pool %s ready in %s\n", key, time.Since(start).Round(time.Millisecond))
	return pool, nil
}

// warmup navigates every tab to the home page and waits for the search
// form. Warm-up failures are logged per tab and never fail the build; a
// cold tab just pays the navigation on its first search.
func (m *Manager) warmup(pool *Pool) {
	timeout := time.Duration(m.cfg.Timeouts.NavigateMs) * time.Millisecond
	fieldTimeout := time.Duration(m.cfg.Timeouts.FieldVisibleMs) * time.Millisecond

	eg := new(errgroup.Group)
	for _, b := range pool.browsers {
		for _, h := range b.Handles {
			h := h
			eg.Go(func() error {
				if err := h.Page.Navigate(m.cfg.TargetHome, timeout); err != nil {
					log.Printf("[pool] Warmup navigate failed on %d/%d: %v\n", h.BrowserIndex, h.TabIndex, err)
					h.SetLastError(err)
					return nil
				}
				if err := h.Page.WaitVisible(m.warmSelector, fieldTimeout); err != nil {
					log.Printf("[pool] Warmup form wait failed on %d/%d: %v\n", h.BrowserIndex, h.TabIndex, err)
					h.SetLastError(err)
					return nil
				}
				h.SetWarmed(true)
				h.SetLastURL(h.Page.URL())
				return nil
			})
		}
	}
	_ = eg.Wait()
}

// Status reports the current pool, or an uninitialized snapshot when no
// pool has been built yet.
func (m *Manager) Status() models.PoolStatus {
	m.mu.Lock()
	pool := m.pool
	m.mu.Unlock()
	if pool == nil {
		return models.PoolStatus{Initialized: false}
	}
	return pool.Status()
}

// Close tears the current pool down. Safe to call with no pool built.
func (m *Manager) Close() error {
	m.mu.Lock()
	pool := m.pool
	m.pool = nil
	m.mu.Unlock()
	if pool == nil {
		return nil
	}
	return pool.Close()
}
