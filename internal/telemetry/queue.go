package telemetry

import "sync"

// writeOp is one unit of work for the append worker: either a line to
// append or a truncate of the whole file. done, when non-nil, is closed
// after the op has been applied; Flush uses it as a barrier.
type writeOp struct {
	line     []byte
	truncate bool
	done     chan struct{}
}

// writeQueue is an unbounded thread-safe FIFO feeding the single append
// worker. It is unbounded so record calls never block on disk latency.
//
// The queue uses a buffered size-1 signal channel so the worker can wait
// for work without spinning; multiple signals coalesce.
type writeQueue struct {
	mu     sync.Mutex
	ops    []writeOp
	closed bool
	signal chan struct{}
}

func newWriteQueue() *writeQueue {
	return &writeQueue{
		ops:    make([]writeOp, 0, 64),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an op to the back of the queue. Returns false if the queue
// is closed.
func (q *writeQueue) Enqueue(op writeOp) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	q.ops = append(q.ops, op)

	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front op without blocking.
func (q *writeQueue) TryDequeue() (writeOp, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.ops) == 0 {
		return writeOp{}, false
	}
	op := q.ops[0]

	// Nil the slot so the backing array does not retain line buffers.
	q.ops[0] = writeOp{}
	if len(q.ops) == 1 {
		q.ops = q.ops[:0]
	} else {
		q.ops = q.ops[1:]
	}
	return op, true
}

// Wait returns the signal channel for select-based waiting.
func (q *writeQueue) Wait() <-chan struct{} {
	return q.signal
}

// Closed reports whether Close has been called.
func (q *writeQueue) Closed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}

func (q *writeQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.ops)
}

// Close rejects further enqueues and wakes the worker so it can drain and
// exit. Ops already queued are still dequeued.
func (q *writeQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
