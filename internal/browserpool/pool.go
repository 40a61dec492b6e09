// Package browserpool owns a fixed set of headless browser instances,
// handing them out to callers with a waiting queue and respawning any that
// crash. It is the only place chromedp.NewExecAllocator is called.
package browserpool

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// ErrPoolClosed is returned by Acquire once Close has completed.
var ErrPoolClosed = errors.New("browserpool: pool is closed")

// ErrAcquireTimeout is returned when a waiter does not receive a browser
// within the configured timeout.
var ErrAcquireTimeout = errors.New("browserpool: timed out waiting for a browser")

const waiterTimeout = 300 * time.Second

// Browser is a handle to one running headless browser instance. Callers
// derive chromedp contexts from Context for the duration they hold the
// handle, then call Pool.Release.
type Browser struct {
	id      int
	allocCtx context.Context
	allocCancel context.CancelFunc
	ctx     context.Context
	cancel  context.CancelFunc
}

// Context returns the chromedp-ready context for this browser.
func (b *Browser) Context() context.Context {
	return b.ctx
}

// Stats describes current pool occupancy.
type Stats struct {
	Total     int
	Available int
	InUse     int
	Waiting   int
}

// Pool owns N browser instances and serialises acquire/release/crash-replace
// mutation as required by the concurrency model.
type Pool struct {
	size   int
	logger *slog.Logger

	launch func(ctx context.Context, id int) (*Browser, error)

	mu        sync.Mutex
	available []*Browser
	inUse     map[int]*Browser
	waiters   []chan waitResult
	closed    bool
}

type waitResult struct {
	browser *Browser
	err     error
}

// Option configures a Pool at construction time.
type Option func(*Pool)

// WithLogger overrides the default logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// New launches `size` browsers and returns a ready Pool. Failure to launch
// any browser is fatal to the caller, so New returns an
// error rather than a partially-populated pool.
func New(ctx context.Context, size int, opts ...Option) (*Pool, error) {
	p := &Pool{
		size:   size,
		logger: slog.Default(),
		inUse:  make(map[int]*Browser),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.launch = p.launchBrowser

	for i := 0; i < size; i++ {
		b, err := p.launch(ctx, i)
		if err != nil {
			p.closeAll()
			return nil, fmt.Errorf("browserpool: failed to launch browser %d: %w", i, err)
		}
		p.available = append(p.available, b)
	}
	return p, nil
}

func (p *Pool) launchBrowser(ctx context.Context, id int) (*Browser, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:], chromedp.Flag("headless", true))...,
	)
	tabCtx, cancel := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(string, ...any) {}),
		chromedp.WithErrorf(func(string, ...any) {}),
	)
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		allocCancel()
		return nil, err
	}
	return &Browser{id: id, allocCtx: allocCtx, allocCancel: allocCancel, ctx: tabCtx, cancel: cancel}, nil
}

// Acquire returns a ready browser, blocking FIFO behind any other waiters if
// none is immediately available. It fails with ErrAcquireTimeout after 300s
// and with ErrPoolClosed if the pool has been shut down.
func (p *Pool) Acquire(ctx context.Context) (*Browser, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrPoolClosed
	}
	if n := len(p.available); n > 0 {
		b := p.available[0]
		p.available = p.available[1:]
		p.inUse[b.id] = b
		p.mu.Unlock()
		return b, nil
	}

	ch := make(chan waitResult, 1)
	p.waiters = append(p.waiters, ch)
	p.mu.Unlock()

	timer := time.NewTimer(waiterTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		return res.browser, res.err
	case <-timer.C:
		p.removeWaiter(ch)
		return nil, ErrAcquireTimeout
	case <-ctx.Done():
		p.removeWaiter(ch)
		return nil, ctx.Err()
	}
}

func (p *Pool) removeWaiter(ch chan waitResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, w := range p.waiters {
		if w == ch {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return
		}
	}
}

// Release returns a browser to the pool, or hands it directly to the
// longest-waiting caller.
func (p *Pool) Release(b *Browser) {
	p.mu.Lock()
	defer p.mu.Unlock()

	delete(p.inUse, b.id)

	if p.closed {
		go b.close()
		return
	}

	if len(p.waiters) > 0 {
		ch := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.inUse[b.id] = b
		ch <- waitResult{browser: b}
		return
	}

	p.available = append(p.available, b)
}

// ReportCrash tells the pool that b disconnected unexpectedly. A replacement
// is launched in the background and handed to the first waiter if one
// exists, otherwise returned to the available set.
func (p *Pool) ReportCrash(ctx context.Context, b *Browser) {
	p.mu.Lock()
	delete(p.inUse, b.id)
	closed := p.closed
	p.mu.Unlock()

	go b.close()

	if closed {
		return
	}

	go func() {
		replacement, err := p.launch(ctx, b.id)
		if err != nil {
			p.logger.Error("browserpool: failed to respawn crashed browser", "id", b.id, "error", err)
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			go replacement.close()
			return
		}
		if len(p.waiters) > 0 {
			ch := p.waiters[0]
			p.waiters = p.waiters[1:]
			p.inUse[replacement.id] = replacement
			ch <- waitResult{browser: replacement}
			return
		}
		p.available = append(p.available, replacement)
	}()
}

// Stats reports current occupancy for the health endpoint.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		Total:     p.size,
		Available: len(p.available),
		InUse:     len(p.inUse),
		Waiting:   len(p.waiters),
	}
}

// Close fails all waiters and closes every browser. After Close returns,
// Acquire always fails immediately.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	waiters := p.waiters
	p.waiters = nil
	p.mu.Unlock()

	for _, ch := range waiters {
		ch <- waitResult{err: ErrPoolClosed}
	}

	p.closeAll()
}

func (p *Pool) closeAll() {
	p.mu.Lock()
	all := append(append([]*Browser{}, p.available...), valuesOf(p.inUse)...)
	p.available = nil
	p.inUse = make(map[int]*Browser)
	p.mu.Unlock()

	for _, b := range all {
		b.close()
	}
}

func valuesOf(m map[int]*Browser) []*Browser {
	out := make([]*Browser, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	return out
}

func (b *Browser) close() {
	b.cancel()
	b.allocCancel()
}
