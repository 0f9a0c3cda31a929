// Package search debounces type-ahead lookups.
package search

import (
	"context"
	"strings"
	"sync"
	"time"
)

// DefaultDelay is the quiet period before a search fires.
const DefaultDelay = 300 * time.Millisecond

// Debouncer runs the most recent call once no new call arrived for delay.
type Debouncer struct {
	delay time.Duration

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer builds a Debouncer; a non-positive delay means DefaultDelay.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer{delay: delay}
}

// Call schedules fn, replacing any call still waiting.
func (d *Debouncer) Call(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, fn)
}

// Stop drops the pending call, if any.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

// Result is the outcome of one lookup.
type Result[T any] struct {
	Term  string
	Items []T
	Err   error
}

// Live turns keystrokes into debounced lookups. Only the latest term's
// result is delivered; answers for superseded terms are dropped.
type Live[T any] struct {
	lookup   func(ctx context.Context, term string) ([]T, error)
	debounce *Debouncer
	results  chan Result[T]

	mu     sync.Mutex
	seq    uint64
	cancel context.CancelFunc
}

// NewLive builds a Live search around lookup.
func NewLive[T any](delay time.Duration, lookup func(ctx context.Context, term string) ([]T, error)) *Live[T] {
	return &Live[T]{
		lookup:   lookup,
		debounce: NewDebouncer(delay),
		results:  make(chan Result[T], 1),
	}
}

// Results delivers lookup outcomes.
func (l *Live[T]) Results() <-chan Result[T] { return l.results }

// Type records the current input. Blank input cancels the pending lookup.
func (l *Live[T]) Type(ctx context.Context, term string) {
	term = strings.TrimSpace(term)
	l.mu.Lock()
	l.seq++
	seq := l.seq
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
	l.mu.Unlock()

	if term == "" {
		l.debounce.Stop()
		return
	}
	l.debounce.Call(func() {
		lctx, cancel := context.WithCancel(ctx)
		l.mu.Lock()
		if seq != l.seq {
			l.mu.Unlock()
			cancel()
			return
		}
		l.cancel = cancel
		l.mu.Unlock()

		items, err := l.lookup(lctx, term)
		cancel()

		l.mu.Lock()
		defer l.mu.Unlock()
		if seq != l.seq {
			return
		}
		select {
		case <-l.results:
		default:
		}
		l.results <- Result[T]{Term: term, Items: items, Err: err}
	})
}

// Close stops pending work.
func (l *Live[T]) Close() {
	l.debounce.Stop()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seq++
	if l.cancel != nil {
		l.cancel()
		l.cancel = nil
	}
}
