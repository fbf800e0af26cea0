package nhttp

import (
	"io"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// DefaultReadTimeout limits how long a single socket read may
	// stay outstanding before the sweeper tears the connection down.
	DefaultReadTimeout = 90 * time.Second

	// DefaultWriteTimeout limits how long a single socket write may
	// stay outstanding before the sweeper tears the connection down.
	DefaultWriteTimeout = 90 * time.Second
)

// sweepInterval is the sweeper cadence - coarse but cheap.
var sweepInterval = time.Second

// ioHandle tracks completion of one in-flight I/O operation. A
// completed I/O never unregisters itself from the timeout queue; the
// sweeper checks the handle before disposing.
type ioHandle struct {
	done uint32
}

func (h *ioHandle) complete() {
	atomic.StoreUint32(&h.done, 1)
}

func (h *ioHandle) completed() bool {
	return atomic.LoadUint32(&h.done) == 1
}

type timeoutItem struct {
	expiry time.Time
	h      *ioHandle
	c      io.Closer
}

// timeoutQueue is a FIFO of timeout items sharing one timeout
// duration. Since the timeout is constant, items are enqueued in
// nondecreasing expiry order and expired items leave from the head
// only.
type timeoutQueue struct {
	mu      sync.Mutex
	items   []timeoutItem
	timeout time.Duration
}

func (q *timeoutQueue) add(h *ioHandle, c io.Closer) {
	q.mu.Lock()
	q.items = append(q.items, timeoutItem{
		expiry: time.Now().Add(q.timeout),
		h:      h,
		c:      c,
	})
	q.mu.Unlock()
}

func (q *timeoutQueue) len() int {
	q.mu.Lock()
	n := len(q.items)
	q.mu.Unlock()
	return n
}

func (q *timeoutQueue) headExpiry() (time.Time, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return zeroTime, false
	}
	return q.items[0].expiry, true
}

// sweep dequeues expired items from the head. An item whose I/O
// completed already is dropped silently; otherwise the connection is
// disposed, which cancels the outstanding I/O.
func (q *timeoutQueue) sweep(now time.Time) {
	for {
		q.mu.Lock()
		if len(q.items) == 0 || q.items[0].expiry.After(now) {
			q.mu.Unlock()
			return
		}
		it := q.items[0]
		q.items[0] = timeoutItem{}
		q.items = q.items[1:]
		q.mu.Unlock()

		if !it.h.completed() {
			it.c.Close()
		}
	}
}

// timeoutManager owns the read and write queues and the single
// background sweeper cancelling stalled I/O.
type timeoutManager struct {
	readQueue  timeoutQueue
	writeQueue timeoutQueue
	stopCh     chan struct{}
}

func newTimeoutManager(readTimeout, writeTimeout time.Duration) *timeoutManager {
	if readTimeout <= 0 {
		readTimeout = DefaultReadTimeout
	}
	if writeTimeout <= 0 {
		writeTimeout = DefaultWriteTimeout
	}
	tm := &timeoutManager{
		stopCh: make(chan struct{}),
	}
	tm.readQueue.timeout = readTimeout
	tm.writeQueue.timeout = writeTimeout
	go tm.sweeper()
	return tm
}

func (tm *timeoutManager) sweeper() {
	t := time.NewTicker(sweepInterval)
	defer t.Stop()
	for {
		select {
		case <-tm.stopCh:
			return
		case now := <-t.C:
			tm.readQueue.sweep(now)
			tm.writeQueue.sweep(now)
		}
	}
}

// registerRead registers an outstanding read with expiry
// now+readTimeout and returns its completion handle.
func (tm *timeoutManager) registerRead(c io.Closer) *ioHandle {
	h := &ioHandle{}
	tm.readQueue.add(h, c)
	return h
}

// registerWrite registers an outstanding write with expiry
// now+writeTimeout and returns its completion handle.
func (tm *timeoutManager) registerWrite(c io.Closer) *ioHandle {
	h := &ioHandle{}
	tm.writeQueue.add(h, c)
	return h
}

func (tm *timeoutManager) stop() {
	close(tm.stopCh)
}
