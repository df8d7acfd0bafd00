// Package meter implements a traffic rate meter tracking peak,
// sustained, and burst rates from a stream of events(now, n) calls. It
// never touches a wall clock itself: now is any caller-supplied tick
// value from a clock the caller chooses, as long as successive calls are
// non-decreasing — this is what lets a single implementation serve both
// real-time callers (nanosecond ticks) and deterministic tests
// (synthetic tick sequences).
package meter
