package parking

import "sync"

// Waiter is a parking token. One wait call holds it from enqueue until it
// returns; it is then recycled.
type Waiter struct {
	ch    chan struct{}
	next  *Waiter
	prev  *Waiter
	queue *queue
}

var waiterPool = sync.Pool{
	New: func() any {
		return &Waiter{ch: make(chan struct{}, 1)}
	},
}

func getWaiter() *Waiter {
	return waiterPool.Get().(*Waiter)
}

func putWaiter(w *Waiter) {
	w.next, w.prev, w.queue = nil, nil, nil
	waiterPool.Put(w)
}

// unpark is called with the bucket lock held, after w left its queue.
// Each park enqueues w once, so the buffered send never blocks.
func (w *Waiter) unpark() {
	w.ch <- struct{}{}
}

// queue is an intrusive FIFO of waiters parked on one address.
type queue struct {
	head *Waiter
	tail *Waiter
	n    int
}

func (q *queue) push(w *Waiter) {
	w.queue = q
	w.next = nil
	w.prev = q.tail
	if q.tail != nil {
		q.tail.next = w
	} else {
		q.head = w
	}
	q.tail = w
	q.n++
}

func (q *queue) pop() *Waiter {
	w := q.head
	if w != nil {
		q.remove(w)
	}
	return w
}

func (q *queue) remove(w *Waiter) {
	if w.prev != nil {
		w.prev.next = w.next
	} else {
		q.head = w.next
	}
	if w.next != nil {
		w.next.prev = w.prev
	} else {
		q.tail = w.prev
	}
	w.next, w.prev, w.queue = nil, nil, nil
	q.n--
}
