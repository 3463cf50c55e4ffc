package scroll

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/getsentry/sentry-go"
	"github.com/jsphweid/pianofalls/constants"
)

// Command mutates the scroller from inside the engine goroutine.
type Command func(s *Scroller)

type request struct {
	cmd  Command
	done chan struct{}
}

// Engine runs a Scroller on its own goroutine. Every mutation goes through
// Do so that the scroller only ever has one writer; readers use Snapshot or
// Subscribe.
type Engine struct {
	scroller *Scroller
	keys     chan KeyEvent
	cmds     chan request
	period   time.Duration
	logger   *log.Logger

	snap atomic.Pointer[Snapshot]

	mu   sync.Mutex
	subs map[chan Snapshot]struct{}
}

func NewEngine(s *Scroller) *Engine {
	e := &Engine{
		scroller: s,
		keys:     make(chan KeyEvent, constants.KeyQueueSize),
		cmds:     make(chan request, constants.CommandQueueSize),
		period:   constants.PollPeriod,
		logger:   s.logger,
		subs:     make(map[chan Snapshot]struct{}),
	}
	e.publish()
	return e
}

// PushKey queues a key event without blocking. It returns false if the
// queue is full and the event was dropped.
func (e *Engine) PushKey(k KeyEvent) bool {
	select {
	case e.keys <- k:
		return true
	default:
		return false
	}
}

// Do queues cmd and waits until the engine has applied it.
func (e *Engine) Do(ctx context.Context, cmd Command) error {
	req := request{cmd: cmd, done: make(chan struct{})}
	select {
	case e.cmds <- req:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Engine) Snapshot() Snapshot {
	return *e.snap.Load()
}

// Subscribe returns a channel receiving the latest snapshot after every
// tick. A slow reader only misses intermediate snapshots.
func (e *Engine) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)
	e.mu.Lock()
	e.subs[ch] = struct{}{}
	e.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			e.mu.Lock()
			delete(e.subs, ch)
			e.mu.Unlock()
			close(ch)
		})
	}
}

func (e *Engine) publish() {
	snap := e.scroller.Snapshot()
	e.snap.Store(&snap)

	e.mu.Lock()
	defer e.mu.Unlock()
	for ch := range e.subs {
		select {
		case ch <- snap:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
	}
}

// safely runs fn, turning a panic into a logged (and reported) error so
// one bad tick does not stop the timeline.
func (e *Engine) safely(what string, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("recovered from panic", "in", what, "err", r)
			sentry.CurrentHub().Recover(fmt.Errorf("%s: %v", what, r))
		}
	}()
	fn()
}

func (e *Engine) drainKeys() []KeyEvent {
	var keys []KeyEvent
	for {
		select {
		case k := <-e.keys:
			keys = append(keys, k)
		default:
			return keys
		}
	}
}

// Run ticks the scroller every constants.PollPeriod until ctx is done. On
// return all autoplay notes have been released.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.period)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			e.safely("flush", e.scroller.flushActive)
			e.publish()
			return nil
		case req := <-e.cmds:
			e.safely("command", func() { req.cmd(e.scroller) })
			e.publish()
			close(req.done)
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			keys := e.drainKeys()
			e.safely("tick", func() { e.scroller.Tick(dt, keys) })
			e.publish()
		}
	}
}
