// Package parking implements futex-style wait and notify keyed by address.
//
// A Spot maps an address to a FIFO queue of parked waiters. The map is split
// into buckets, each guarded by its own mutex, and a queue exists only while
// at least one waiter is parked on its address.
//
// The compare in Wait32/Wait64 and the enqueue of the waiter happen under the
// bucket lock. A notifier stores its new value first and then takes the same
// lock, so it either finds the waiter queued or the waiter sees the new value
// and returns NotEqual. No wakeup is lost between the check and the park.
//
// Parked callers block on a channel receive. There is no polling.
package parking
