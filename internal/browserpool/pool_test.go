package browserpool

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestPool builds a Pool backed by fake browsers instead of real chrome
// processes, so acquire/release/crash semantics can be tested without a
// headless browser binary.
func newTestPool(t *testing.T, size int) *Pool {
	t.Helper()
	var nextID int64

	p := &Pool{
		size:  size,
		inUse: make(map[int]*Browser),
	}
	p.logger = discardLogger()
	p.launch = func(ctx context.Context, id int) (*Browser, error) {
		cctx, cancel := context.WithCancel(ctx)
		n := int(atomic.AddInt64(&nextID, 1))
		return &Browser{id: n, ctx: cctx, cancel: cancel, allocCancel: func() {}}, nil
	}

	for i := 0; i < size; i++ {
		b, err := p.launch(context.Background(), i)
		if err != nil {
			t.Fatalf("launch: %v", err)
		}
		p.available = append(p.available, b)
	}
	return p
}

func TestAcquireRelease(t *testing.T) {
	p := newTestPool(t, 2)

	b1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	stats := p.Stats()
	if stats.InUse != 1 || stats.Available != 1 {
		t.Fatalf("unexpected stats after acquire: %+v", stats)
	}

	p.Release(b1)
	stats = p.Stats()
	if stats.InUse != 0 || stats.Available != 2 {
		t.Fatalf("unexpected stats after release: %+v", stats)
	}
}

func TestAcquireFIFOWaiter(t *testing.T) {
	p := newTestPool(t, 1)

	b1, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	done := make(chan *Browser, 1)
	go func() {
		b, err := p.Acquire(context.Background())
		if err != nil {
			t.Errorf("waiter acquire: %v", err)
			return
		}
		done <- b
	}()

	time.Sleep(20 * time.Millisecond)
	if stats := p.Stats(); stats.Waiting != 1 {
		t.Fatalf("expected 1 waiter, got %+v", stats)
	}

	p.Release(b1)

	select {
	case b := <-done:
		if b != b1 {
			t.Fatalf("expected waiter to receive the released browser")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never received a browser")
	}
}

func TestCloseFailsWaiters(t *testing.T) {
	p := newTestPool(t, 1)
	b1, _ := p.Acquire(context.Background())
	_ = b1

	errCh := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Close()

	select {
	case err := <-errCh:
		if err != ErrPoolClosed {
			t.Fatalf("expected ErrPoolClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never failed after close")
	}

	if _, err := p.Acquire(context.Background()); err != ErrPoolClosed {
		t.Fatalf("expected immediate ErrPoolClosed post-close, got %v", err)
	}
}

func TestReportCrashReplacesAndHandsToWaiter(t *testing.T) {
	p := newTestPool(t, 1)
	b1, _ := p.Acquire(context.Background())

	done := make(chan *Browser, 1)
	go func() {
		b, err := p.Acquire(context.Background())
		if err != nil {
			t.Errorf("waiter acquire: %v", err)
			return
		}
		done <- b
	}()
	time.Sleep(20 * time.Millisecond)

	p.ReportCrash(context.Background(), b1)

	select {
	case b := <-done:
		if b == nil || b.id == b1.id {
			t.Fatalf("expected a distinct replacement browser")
		}
	case <-time.After(time.Second):
		t.Fatal("waiter never received a replacement browser")
	}
}
