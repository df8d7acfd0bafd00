// Package rwlock implements a first-come-first-served fair
// reader-writer lock: reader and writer requests are serviced strictly
// in arrival order, independent of any condition variable's own
// wake-up policy, except that a reader at the head of the queue wakes
// contiguous readers behind it so they can run concurrently, and a
// caller may request priority (head-of-queue) insertion as a seldom-used
// escape hatch.
//
// Unlike the C implementation this is modeled on, there is no
// thread-local storage key: the token identifying a goroutine's place
// in the waitlist is a value returned by Begin/BeginTimed/BeginPriority
// and passed back to the matching End. There is also no FAILED waitlist
// role: a goroutine whose wait is abandoned by context cancellation or
// timeout detaches its own token under the lock's mutex in the same
// call that discovers the abandonment, since Go's select lets it
// reacquire the mutex deterministically instead of relying on a
// separate cleanup handler.
package rwlock
