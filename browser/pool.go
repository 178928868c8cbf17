// Package browser manages the pool of browser instances and page
// handles the scraper runs on. A pool is a fixed matrix of browsers ×
// tabs; tabs are acquired exclusively, released always, and handed
// directly to the oldest waiter so a queued search can never be
// overtaken by a newcomer.
package browser

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"golang.org/x/sync/errgroup"

	"airkosova-scraper/models"
)

// ErrPoolClosed is returned by Acquire after the pool has been shut down.
var ErrPoolClosed = errors.New("browser pool is closed")

// PageHandle is one controllable tab. At most one search owns a handle
// at a time; the busy flag (guarded by the pool mutex) is the only
// synchronization primitive. The diagnostic fields are last-writer-wins
// observability data, never inputs to scheduling.
type PageHandle struct {
	BrowserIndex int
	TabIndex     int
	Page         Driver

	busy          bool
	lastAcquireAt time.Time
	lastReleaseAt time.Time

	diagMu    sync.Mutex
	warmed    bool
	lastURL   string
	lastError string
}

// SetWarmed records whether the tab is known to sit on the home form.
func (h *PageHandle) SetWarmed(warmed bool) {
	h.diagMu.Lock()
	h.warmed = warmed
	h.diagMu.Unlock()
}

// Warmed reports whether the tab can skip home navigation.
func (h *PageHandle) Warmed() bool {
	h.diagMu.Lock()
	defer h.diagMu.Unlock()
	return h.warmed
}

// SetLastURL stores the tab's final location for the status endpoint.
func (h *PageHandle) SetLastURL(url string) {
	h.diagMu.Lock()
	h.lastURL = url
	h.diagMu.Unlock()
}

// SetLastError stores the most recent failure seen on this tab.
func (h *PageHandle) SetLastError(err error) {
	h.diagMu.Lock()
	if err != nil {
		h.lastError = err.Error()
	}
	h.diagMu.Unlock()
}

// Browser is one launched browser instance with its page handles.
type Browser struct {
	Index   int
	Handles []*PageHandle

	rod    *rod.Browser
	router *rod.HijackRouter
}

func (b *Browser) close() error {
	if b.router != nil {
		_ = b.router.Stop()
	}
	if b.rod != nil {
		return b.rod.Close()
	}
	return nil
}

// Pool is a fixed set of browsers whose tabs are shared by all in-flight
// searches. Acquisition is first-free-wins over the matrix; when nothing
// is free the caller queues FIFO and a release hands its handle straight
// over.
type Pool struct {
	key        string
	headless   bool
	targetHome string

	mu       sync.Mutex
	browsers []*Browser
	waiters  []chan *PageHandle
	closed   bool
}

// Key returns the identity key the pool was built for.
func (p *Pool) Key() string { return p.key }

// Headless reports the mode the pool's browsers run in.
func (p *Pool) Headless() bool { return p.headless }

// Acquire returns a free page handle, or blocks in FIFO order until a
// release hands one over. ctx cancels the wait, not the pool.
func (p *Pool) Acquire(ctx context.Context) (*PageHandle, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	for _, b := range p.browsers {
		for _, h := range b.Handles {
			if !h.busy {
				h.busy = true
				h.lastAcquireAt = time.Now()
				p.mu.Unlock()
				return h, nil
			}
		}
	}

	ch := make(chan *PageHandle, 1)
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	select {
	case h, ok := <-ch:
		if !ok {
			return nil, ErrPoolClosed
		}
		return h, nil
	case <-ctx.Done():
		p.mu.Lock()
		for i, w := range p.waiters {
			if w == ch {
				p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
				p.mu.Unlock()
				return nil, ctx.Err()
			}
		}
		p.mu.Unlock()
		// A handoff raced the cancellation; take the handle and put it back.
		if h, ok := <-ch; ok && h != nil {
			p.Release(h)
		}
		return nil, ctx.Err()
	}
}

// Release frees a handle. If a waiter is queued the handle stays busy
// and goes directly to the oldest one, so the pool never looks idle
// while someone is waiting.
func (p *Pool) Release(h *PageHandle) {
	if h == nil {
		return
	}
	p.mu.Lock()
	h.lastReleaseAt = time.Now()
	if len(p.waiters) > 0 && !p.closed {
		next := p.waiters[0]
		p.waiters = p.waiters[1:]
		h.lastAcquireAt = time.Now()
		p.mu.Unlock()
		next <- h
		return
	}
	h.busy = false
	p.mu.Unlock()
}

// Status takes a point-in-time snapshot for the operational endpoint.
func (p *Pool) Status() models.PoolStatus {
	p.mu.Lock()
	defer p.mu.Unlock()

	status := models.PoolStatus{
		Initialized: true,
		Key:         p.key,
		Headless:    p.headless,
		TargetHome:  p.targetHome,
		Waiters:     len(p.waiters),
	}
	for _, b := range p.browsers {
		bs := models.BrowserStatus{
			BrowserIndex: b.Index,
			TabsCount:    len(b.Handles),
		}
		for _, h := range b.Handles {
			h.diagMu.Lock()
			ts := models.TabStatus{
				TabIndex:  h.TabIndex,
				Busy:      h.busy,
				Warmed:    h.warmed,
				LastURL:   h.lastURL,
				LastError: h.lastError,
			}
			h.diagMu.Unlock()
			if !h.lastAcquireAt.IsZero() {
				ts.LastAcquireAtMs = h.lastAcquireAt.UnixMilli()
			}
			if !h.lastReleaseAt.IsZero() {
				ts.LastReleaseAtMs = h.lastReleaseAt.UnixMilli()
			}
			if h.busy {
				bs.BusyCount++
			}
			bs.Tabs = append(bs.Tabs, ts)
		}
		status.TotalTabs += bs.TabsCount
		status.TotalBusy += bs.BusyCount
		status.Browsers = append(status.Browsers, bs)
	}
	status.TotalFree = status.TotalTabs - status.TotalBusy
	return status
}

// Size returns (browsers, tabs per browser).
func (p *Pool) Size() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.browsers) == 0 {
		return 0, 0
	}
	return len(p.browsers), len(p.browsers[0].Handles)
}

// Close shuts every browser down, best effort. Queued waiters are woken
// with ErrPoolClosed. Partial close failures are logged, not fatal.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	waiters := p.waiters
	p.waiters = nil
	browsers := p.browsers
	p.mu.Unlock()

	for _, w := range waiters {
		close(w)
	}

	eg := new(errgroup.Group)
	eg.SetLimit(4)
	for _, b := range browsers {
		b := b
		eg.Go(func() error {
			if err := b.close(); err != nil {
				log.Printf("[pool] Error closing browser %d: %v\n", b.Index, err)
				return err
			}
			return nil
		})
	}
	return eg.Wait()
}
