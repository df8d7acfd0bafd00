package rwlock

import (
	"context"
	"testing"
	"time"

	"github.com/diminuto-go/diminuto/internal/dierr"
)

func TestReadersRunConcurrently(t *testing.T) {
	t.Parallel()

	l := New("readers")
	ctx := context.Background()

	h1, err := l.Begin(ctx, Reader)
	if err != nil {
		t.Fatalf("Begin(Reader) #1 = %v", err)
	}
	h2, err := l.Begin(ctx, Reader)
	if err != nil {
		t.Fatalf("Begin(Reader) #2 = %v", err)
	}

	if err := l.End(h1); err != nil {
		t.Fatalf("End #1 = %v", err)
	}
	if err := l.End(h2); err != nil {
		t.Fatalf("End #2 = %v", err)
	}
}

func TestWriterExcludesReaders(t *testing.T) {
	t.Parallel()

	l := New("writer-excludes")
	ctx := context.Background()

	w, err := l.Begin(ctx, Writer)
	if err != nil {
		t.Fatalf("Begin(Writer) = %v", err)
	}

	if _, err := l.BeginTimed(ctx, Reader, Poll); !dierr.Is(err, dierr.TimedOut) {
		t.Fatalf("BeginTimed(Reader, Poll) while writer holds lock = %v, want TimedOut", err)
	}

	if err := l.End(w); err != nil {
		t.Fatalf("End(writer) = %v", err)
	}

	r, err := l.BeginTimed(ctx, Reader, Poll)
	if err != nil {
		t.Fatalf("BeginTimed(Reader, Poll) after writer released = %v", err)
	}
	_ = l.End(r)
}

func TestFIFOOrderIsPreserved(t *testing.T) {
	t.Parallel()

	l := New("fifo")
	ctx := context.Background()

	w0, err := l.Begin(ctx, Writer)
	if err != nil {
		t.Fatalf("Begin(Writer) = %v", err)
	}

	order := make(chan int, 2)
	go func() {
		h, err := l.Begin(ctx, Writer)
		if err != nil {
			t.Errorf("Begin(Writer) second = %v", err)
			return
		}
		order <- 1
		_ = l.End(h)
	}()
	time.Sleep(20 * time.Millisecond) // let the second writer enqueue first

	go func() {
		h, err := l.Begin(ctx, Writer)
		if err != nil {
			t.Errorf("Begin(Writer) third = %v", err)
			return
		}
		order <- 2
		_ = l.End(h)
	}()
	time.Sleep(20 * time.Millisecond)

	if err := l.End(w0); err != nil {
		t.Fatalf("End(w0) = %v", err)
	}

	first := <-order
	second := <-order
	if first != 1 || second != 2 {
		t.Errorf("acquisition order = %d, %d; want 1, 2 (FIFO arrival order)", first, second)
	}
}

func TestBeginTimedTimesOut(t *testing.T) {
	t.Parallel()

	l := New("timeout")
	ctx := context.Background()

	w, err := l.Begin(ctx, Writer)
	if err != nil {
		t.Fatalf("Begin(Writer) = %v", err)
	}
	defer func() { _ = l.End(w) }()

	start := time.Now()
	_, err = l.BeginTimed(ctx, Reader, 30*time.Millisecond)
	elapsed := time.Since(start)

	if !dierr.Is(err, dierr.TimedOut) {
		t.Fatalf("BeginTimed = %v, want TimedOut", err)
	}
	if elapsed < 25*time.Millisecond {
		t.Errorf("BeginTimed returned after %v, want roughly the 30ms timeout", elapsed)
	}
}

func TestBeginRespectsContextCancellation(t *testing.T) {
	t.Parallel()

	l := New("cancel")
	ctx, cancel := context.WithCancel(context.Background())

	w, err := l.Begin(context.Background(), Writer)
	if err != nil {
		t.Fatalf("Begin(Writer) = %v", err)
	}
	defer func() { _ = l.End(w) }()

	done := make(chan error, 1)
	go func() {
		_, err := l.Begin(ctx, Reader)
		done <- err
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	err = <-done
	if !dierr.Is(err, dierr.Interrupted) {
		t.Fatalf("Begin after cancellation = %v, want Interrupted", err)
	}
}

func TestBeginPriorityJumpsNonPendingQueue(t *testing.T) {
	t.Parallel()

	l := New("priority")
	ctx := context.Background()

	w0, err := l.Begin(ctx, Writer)
	if err != nil {
		t.Fatalf("Begin(Writer) = %v", err)
	}

	normalDone := make(chan int, 1)
	go func() {
		h, err := l.Begin(ctx, Writer)
		if err != nil {
			t.Errorf("normal Begin(Writer) = %v", err)
			return
		}
		normalDone <- 1
		_ = l.End(h)
	}()
	time.Sleep(20 * time.Millisecond)

	priorityDone := make(chan int, 1)
	go func() {
		h, err := l.BeginPriority(ctx, Writer, Infinite)
		if err != nil {
			t.Errorf("BeginPriority(Writer) = %v", err)
			return
		}
		priorityDone <- 2
		_ = l.End(h)
	}()
	time.Sleep(20 * time.Millisecond)

	if err := l.End(w0); err != nil {
		t.Fatalf("End(w0) = %v", err)
	}

	first := <-priorityDone
	second := <-normalDone
	if first != 2 || second != 1 {
		t.Errorf("acquisition order = %d, %d; want priority request (2) to jump ahead of the normal one (1)", first, second)
	}
}

func TestEndWithoutBeginReportsUnexpected(t *testing.T) {
	t.Parallel()

	l := New("unbalanced")
	err := l.End(&Handle{mode: Reader})
	if !dierr.Is(err, dierr.Unexpected) {
		t.Fatalf("End() on an unheld reader lock = %v, want Unexpected", err)
	}
}
