package telemetry

// RecentCapacity bounds the recent-activity ring buffer. Recency queries
// are O(limit) regardless of total log size.
const RecentCapacity = 50

// activityRing is a fixed-capacity overwrite-oldest buffer of records.
// Not safe for concurrent use; the Log's mutex guards it.
type activityRing struct {
	buf  []Execution
	next int
	full bool
}

func newActivityRing(capacity int) *activityRing {
	return &activityRing{buf: make([]Execution, capacity)}
}

func (r *activityRing) add(e Execution) {
	r.buf[r.next] = e
	r.next++
	if r.next == len(r.buf) {
		r.next = 0
		r.full = true
	}
}

func (r *activityRing) size() int {
	if r.full {
		return len(r.buf)
	}
	return r.next
}

// newestFirst returns up to limit records, most recent first.
func (r *activityRing) newestFirst(limit int) []Execution {
	n := r.size()
	if limit >= 0 && limit < n {
		n = limit
	}
	out := make([]Execution, 0, n)
	for i := 1; i <= n; i++ {
		idx := r.next - i
		if idx < 0 {
			idx += len(r.buf)
		}
		out = append(out, r.buf[idx])
	}
	return out
}

func (r *activityRing) reset() {
	r.next = 0
	r.full = false
}
