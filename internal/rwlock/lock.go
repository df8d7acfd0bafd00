package rwlock

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

// Mode selects whether a caller wants shared (reader) or exclusive
// (writer) access.
type Mode int

const (
	Reader Mode = iota
	Writer
)

const (
	// Poll requests an immediate, non-blocking attempt.
	Poll time.Duration = 0
	// Infinite requests an untimed wait.
	Infinite time.Duration = -1
)

// Handle is returned by a successful Begin/BeginTimed/BeginPriority and
// must be passed to End exactly once to release the acquisition.
type Handle struct {
	mode Mode
}

// Lock is a first-come-first-served fair reader-writer lock. The zero
// value is not usable; construct one with New.
type Lock struct {
	mu sync.Mutex

	arena    arena
	waitlist []int // arena indices, in queue order

	readingCount int
	writingCount int

	readerWake chan struct{}
	writerWake chan struct{}

	name   string
	logger *slog.Logger
	debug  bool
}

// Option configures a Lock at construction time.
type Option func(*Lock)

// WithDebug enables per-transition state dumps via logger. Dumps are
// logged under the lock's own mutex, which already serializes the
// waitlist, so no separate logging mutex is needed.
func WithDebug(logger *slog.Logger) Option {
	return func(l *Lock) {
		l.debug = true
		l.logger = logger
	}
}

// New constructs a Lock identified by name (used only in debug dumps).
func New(name string, opts ...Option) *Lock {
	l := &Lock{
		name:       name,
		readerWake: make(chan struct{}),
		writerWake: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Begin acquires the lock in mode, waiting indefinitely (subject to ctx
// cancellation) if it is not immediately available.
func (l *Lock) Begin(ctx context.Context, mode Mode) (*Handle, error) {
	return l.acquire(ctx, mode, Infinite, false)
}

// BeginTimed acquires the lock in mode, waiting up to timeout.
// Poll (0) attempts once without blocking; Infinite (-1) waits forever.
func (l *Lock) BeginTimed(ctx context.Context, mode Mode, timeout time.Duration) (*Handle, error) {
	return l.acquire(ctx, mode, timeout, false)
}

// BeginPriority is BeginTimed but inserts the caller's token at the
// front of the waitlist (after any tokens already promoted and awaiting
// dispatch), a priority escape hatch for callers that must jump ahead
// of already-queued, not-yet-dispatched waiters.
func (l *Lock) BeginPriority(ctx context.Context, mode Mode, timeout time.Duration) (*Handle, error) {
	return l.acquire(ctx, mode, timeout, true)
}

// End releases an acquisition obtained from Begin/BeginTimed/BeginPriority.
func (l *Lock) End(h *Handle) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch h.mode {
	case Reader:
		if l.readingCount == 0 {
			return dierr.New("rwlock.End", dierr.Unexpected)
		}
		l.readingCount--
		if l.readingCount == 0 {
			l.dispatchHead()
		}
	case Writer:
		if l.writingCount == 0 {
			return dierr.New("rwlock.End", dierr.Unexpected)
		}
		l.writingCount--
		l.dispatchHead()
	}
	l.dump("end")
	return nil
}

func (l *Lock) acquire(ctx context.Context, mode Mode, timeout time.Duration, priority bool) (*Handle, error) {
	l.mu.Lock()

	if l.fastPathReady(mode) {
		l.grant(mode)
		if mode == Reader {
			l.dispatchHead()
		}
		l.dump("begin-fast")
		l.mu.Unlock()
		return &Handle{mode: mode}, nil
	}

	if timeout == Poll {
		l.dump("begin-poll-timeout")
		l.mu.Unlock()
		return nil, dierr.New("rwlock.Begin", dierr.TimedOut)
	}

	idx := l.enqueue(mode, priority)
	l.dump("begin-enqueue")

	hasDeadline := timeout != Infinite
	var deadline time.Time
	if hasDeadline {
		deadline = time.Now().Add(timeout)
	}

	for {
		wake := l.wakeChannel(mode)
		l.mu.Unlock()

		var timer *time.Timer
		var timerC <-chan time.Time
		if hasDeadline {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			timer = time.NewTimer(remaining)
			timerC = timer.C
		}

		select {
		case <-wake:
		case <-ctx.Done():
		case <-timerC:
		}
		if timer != nil {
			timer.Stop()
		}

		l.mu.Lock()

		// Head predicate: re-checked on every wake to defend against
		// spurious wake-ups and to give an already-granted acquisition
		// (raced against our own cancellation/timeout) priority over
		// discarding it — the count it observes was already incremented
		// under the mutex by the signaler.
		if l.headReady(idx, mode) {
			l.remove(idx)
			if mode == Reader {
				l.dispatchHead()
			}
			l.dump("begin-wake")
			l.mu.Unlock()
			return &Handle{mode: mode}, nil
		}

		// A reader promoted in a batch but not yet at the head is already
		// counted in readingCount; abandoning it gives that count back.
		promoted := l.arena.slots[idx] == roleReading

		select {
		case <-ctx.Done():
			if promoted {
				l.readingCount--
			}
			l.remove(idx)
			l.dump("begin-cancelled")
			l.mu.Unlock()
			return nil, dierr.Wrap("rwlock.Begin", dierr.Interrupted, ctx.Err())
		default:
		}
		if hasDeadline && !time.Now().Before(deadline) {
			if promoted {
				l.readingCount--
			}
			l.remove(idx)
			l.dump("begin-timeout")
			l.mu.Unlock()
			return nil, dierr.New("rwlock.Begin", dierr.TimedOut)
		}
		// Spurious wake (another reader's promotion, or a generation
		// that closed just before we reached the head): loop and wait
		// again on the current generation channel.
	}
}

// Waiters reports the current waitlist depth, for metrics exposure. It
// includes tokens already promoted but not yet dispatched.
func (l *Lock) Waiters() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.waitlist)
}

func (l *Lock) fastPathReady(mode Mode) bool {
	if len(l.waitlist) != 0 {
		return false
	}
	switch mode {
	case Reader:
		return l.writingCount == 0
	case Writer:
		return l.readingCount == 0 && l.writingCount == 0
	default:
		return false
	}
}

func (l *Lock) grant(mode Mode) {
	if mode == Reader {
		l.readingCount++
	} else {
		l.writingCount++
	}
}

func (l *Lock) wakeChannel(mode Mode) chan struct{} {
	if mode == Reader {
		return l.readerWake
	}
	return l.writerWake
}
