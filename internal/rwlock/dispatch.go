package rwlock

// enqueue allocates a token for mode and inserts it into the waitlist:
// at the tail for a normal request, or just after any leading pending
// tokens (which cannot be preempted) for a priority request.
func (l *Lock) enqueue(mode Mode, priority bool) int {
	r := roleReader
	if mode == Writer {
		r = roleWriter
	}
	idx := l.arena.alloc(r)

	if !priority {
		l.waitlist = append(l.waitlist, idx)
		return idx
	}

	pos := 0
	for pos < len(l.waitlist) && l.arena.slots[l.waitlist[pos]].pending() {
		pos++
	}
	l.waitlist = append(l.waitlist, 0)
	copy(l.waitlist[pos+1:], l.waitlist[pos:])
	l.waitlist[pos] = idx
	return idx
}

// remove detaches idx's token from the waitlist and returns its slot to
// the arena's free list. Used both when a waiter claims its own
// dispatched token and when a waiter abandons its wait on cancellation
// or timeout.
func (l *Lock) remove(idx int) {
	for i, v := range l.waitlist {
		if v == idx {
			l.waitlist = append(l.waitlist[:i], l.waitlist[i+1:]...)
			break
		}
	}
	l.arena.release(idx)
}

// headReady is the head predicate: a waiter is ready iff its token is
// at the head of the waitlist and has been promoted to the pending
// role matching its request.
func (l *Lock) headReady(idx int, mode Mode) bool {
	if len(l.waitlist) == 0 || l.waitlist[0] != idx {
		return false
	}
	want := roleReading
	if mode == Writer {
		want = roleWriting
	}
	return l.arena.slots[idx] == want
}

// dispatchHead is the queue's "resume" step: it promotes the waitlist head
// to its pending role if current counts allow, and if the head is a
// reader, continues promoting each contiguous waiting reader behind it
// so they can all run concurrently once woken. A head that is already
// pending (promoted by an earlier call, not yet claimed by its own
// goroutine) blocks any further dispatch — this is what makes the queue
// fair independent of scheduling order.
//
// Key invariant: the count a woken waiter will observe has already been
// incremented here, under the mutex, before it is signaled — this is
// what prevents a new acquirer from observing a transient zero count and
// jumping the queue.
func (l *Lock) dispatchHead() {
	if len(l.waitlist) == 0 {
		return
	}

	head := l.arena.slots[l.waitlist[0]]
	switch head {
	case roleReading:
		// The head was promoted by an earlier dispatchHead call in the
		// same batch but has not yet been claimed by its own goroutine.
		// A sibling reader promoted in that same batch may have lost the
		// race to reacquire the mutex against this head token, found
		// headReady false (it wasn't at the head yet), and re-parked on
		// a fresh generation channel. Re-signal so it wakes again once
		// the head finally advances onto it.
		l.signal(Reader)
		return
	case roleWriting:
		return
	case roleWriter:
		if l.readingCount == 0 && l.writingCount == 0 {
			l.arena.slots[l.waitlist[0]] = roleWriting
			l.writingCount++
			l.signal(Writer)
		}
		return
	case roleReader:
		for i := 0; i < len(l.waitlist) && l.writingCount == 0; i++ {
			j := l.waitlist[i]
			if l.arena.slots[j] != roleReader {
				break
			}
			l.arena.slots[j] = roleReading
			l.readingCount++
			l.signal(Reader)
		}
	}
}

// signal wakes every goroutine currently waiting in mode by closing and
// replacing that mode's generation channel. Must be called with mu held.
func (l *Lock) signal(mode Mode) {
	if mode == Reader {
		close(l.readerWake)
		l.readerWake = make(chan struct{})
	} else {
		close(l.writerWake)
		l.writerWake = make(chan struct{})
	}
}
