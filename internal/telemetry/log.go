package telemetry

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/keyfold/keyfold/internal/tree"
)

const dayFormat = "2006-01-02"

// Options configures a Log.
type Options struct {
	// Path is the JSON-Lines log file location. Required.
	Path string

	// Now supplies timestamps. Defaults to time.Now.
	Now func() time.Time
}

// Log owns the append-only event log and its derived aggregates.
type Log struct {
	path string
	now  func() time.Time

	mu        sync.Mutex
	actions   map[string]*ActionStats
	groups    map[string]*GroupStats
	recent    *activityRing
	perDay    map[string]int // day -> action executions
	totalExec int
	totalNav  int
	closed    bool

	queue *writeQueue
	file  *os.File
	wg    sync.WaitGroup
}

// Open replays the existing log file into fresh aggregates, opens the file
// for appending, and starts the background append worker. A malformed line
// in the existing log is skipped with a diagnostic, never fatal.
func Open(opts Options) (*Log, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	l := &Log{
		path:    opts.Path,
		now:     opts.Now,
		actions: map[string]*ActionStats{},
		groups:  map[string]*GroupStats{},
		recent:  newActivityRing(RecentCapacity),
		perDay:  map[string]int{},
		queue:   newWriteQueue(),
	}

	if err := l.replay(); err != nil {
		return nil, err
	}

	if dir := filepath.Dir(opts.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create telemetry dir: %w", err)
		}
	}
	f, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open telemetry log %s: %w", opts.Path, err)
	}
	l.file = f

	l.wg.Add(1)
	go l.worker()
	return l, nil
}

// replay folds every line of the existing file into the aggregates in
// original temporal order, exactly as a live record call would.
func (l *Log) replay() error {
	f, err := os.Open(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open telemetry log %s: %w", l.path, err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Execution
		if err := json.Unmarshal(line, &e); err != nil {
			slog.Warn("skipping corrupt telemetry line", "path", l.path, "line", lineNo, "error", err)
			continue
		}
		l.apply(e)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("scan telemetry log %s: %w", l.path, err)
	}
	return nil
}

// RecordExecution records the execution of a leaf action. Aggregates are
// updated before this returns; the durable append completes asynchronously.
func (l *Log) RecordExecution(action *tree.Node, keyPath string) {
	l.record(newExecution(action, keyPath, l.now()))
}

// RecordGroupNavigation records entering a group.
func (l *Log) RecordGroupNavigation(group *tree.Node, keyPath string) {
	l.record(newNavigation(group, keyPath, l.now()))
}

func (l *Log) record(e Execution) {
	// Marshal outside the lock; only the aggregate update and the enqueue
	// happen under it, so disk order matches aggregate order.
	line, err := json.Marshal(e)
	if err != nil {
		slog.Warn("cannot marshal telemetry record", "error", err)
		return
	}
	line = append(line, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.apply(e)
	l.queue.Enqueue(writeOp{line: line})
}

// apply folds one record into the aggregates. Caller holds mu (or is the
// single-threaded replay before the worker starts).
func (l *Log) apply(e Execution) {
	l.recent.add(e)
	key := e.statsKey()
	switch e.EventType {
	case EventGroup:
		l.totalNav++
		g := l.groups[key]
		if g == nil {
			g = &GroupStats{KeyPath: e.KeyPath, Label: e.ActionLabel}
			if g.Label == "" {
				g.Label = e.ActionValue
			}
			l.groups[key] = g
		}
		g.Count++
		g.LastUsed = e.Timestamp
	default:
		l.totalExec++
		l.perDay[e.Timestamp.Format(dayFormat)]++
		a := l.actions[key]
		if a == nil {
			a = &ActionStats{
				KeyPath:     e.KeyPath,
				ActionType:  e.ActionType,
				ActionValue: e.ActionValue,
				ActionLabel: e.ActionLabel,
			}
			l.actions[key] = a
		}
		a.Count++
		a.LastUsed = e.Timestamp
	}
}

// MostUsedActions returns up to limit action aggregates, count descending.
func (l *Log) MostUsedActions(limit int) []ActionStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return topActions(l.actions, limit)
}

// MostNavigatedGroups returns up to limit group aggregates, count descending.
func (l *Log) MostNavigatedGroups(limit int) []GroupStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return topGroups(l.groups, limit)
}

// RecentActivity returns up to limit records, newest first, from the
// bounded recency buffer.
func (l *Log) RecentActivity(limit int) []Execution {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.recent.newestFirst(limit)
}

// ExecutionsPerDay returns action execution counts for the trailing days
// calendar days ending today, oldest first, zero-filled.
func (l *Log) ExecutionsPerDay(days int) []DayCount {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]DayCount, 0, days)
	today := l.now()
	for i := days - 1; i >= 0; i-- {
		day := today.AddDate(0, 0, -i).Format(dayFormat)
		out = append(out, DayCount{Day: day, Count: l.perDay[day]})
	}
	return out
}

// TotalExecutions returns the running count of action executions.
func (l *Log) TotalExecutions() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalExec
}

// TotalNavigations returns the running count of group navigations.
func (l *Log) TotalNavigations() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totalNav
}

// TodayCount returns today's action execution count.
func (l *Log) TodayCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.perDay[l.now().Format(dayFormat)]
}

// ClearAllStats resets every in-memory aggregate and truncates the on-disk
// log. Appends already queued before the clear are written and then
// truncated away; no append can land in the post-clear file out of order
// because the truncate goes through the same serialized worker.
func (l *Log) ClearAllStats() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.actions = map[string]*ActionStats{}
	l.groups = map[string]*GroupStats{}
	l.perDay = map[string]int{}
	l.recent.reset()
	l.totalExec = 0
	l.totalNav = 0
	l.queue.Enqueue(writeOp{truncate: true})
}

// Flush blocks until every append enqueued before the call has reached the
// file. Mainly for tests and shutdown paths.
func (l *Log) Flush() {
	done := make(chan struct{})
	l.mu.Lock()
	ok := l.queue.Enqueue(writeOp{done: done})
	l.mu.Unlock()
	if !ok {
		return
	}
	<-done
}

// Close drains the queue, stops the worker, and closes the file. Records
// arriving after Close are dropped.
func (l *Log) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.queue.Close()
	l.wg.Wait()
	return l.file.Close()
}

// worker is the single append goroutine. It drains the queue in order and
// exits once the queue is closed and empty.
func (l *Log) worker() {
	defer l.wg.Done()
	for {
		op, ok := l.queue.TryDequeue()
		if ok {
			l.applyOp(op)
			continue
		}
		if l.queue.Closed() {
			return
		}
		<-l.queue.Wait()
	}
}

func (l *Log) applyOp(op writeOp) {
	if op.done != nil {
		defer close(op.done)
	}
	switch {
	case op.truncate:
		if err := l.file.Truncate(0); err != nil {
			slog.Warn("telemetry log truncate failed", "path", l.path, "error", err)
		}
	case len(op.line) > 0:
		if _, err := l.file.Write(op.line); err != nil {
			// Aggregates already include this record; in-memory state is
			// ahead of disk until the next successful append.
			slog.Warn("telemetry append failed", "path", l.path, "error", err)
		}
	}
}
