package telemetry

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/testutil"
	"github.com/keyfold/keyfold/internal/tree"
)

var testStart = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func openTestLog(t *testing.T, path string, clk *testutil.Clock) *Log {
	t.Helper()
	l, err := Open(Options{Path: path, Now: clk.Now})
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func terminalAction() *tree.Node {
	return tree.NewAction(tree.TypeApplication, "t", "/Applications/Terminal.app")
}

func readLines(t *testing.T, path string) []Execution {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []Execution
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var e Execution
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	require.NoError(t, sc.Err())
	return out
}

func TestRecordExecution_AggregatesVisibleImmediately(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	clk := testutil.NewClock(testStart)
	l := openTestLog(t, path, clk)

	for i := 0; i < 4; i++ {
		l.RecordExecution(terminalAction(), "t")
		clk.Advance(time.Minute)
	}

	// No Flush: queries must already see the records.
	top := l.MostUsedActions(10)
	require.Len(t, top, 1)
	assert.Equal(t, "t", top[0].KeyPath)
	assert.Equal(t, 4, top[0].Count)
	assert.Equal(t, string(tree.TypeApplication), top[0].ActionType)
	assert.Equal(t, testStart.Add(3*time.Minute), top[0].LastUsed)
	assert.Equal(t, 4, l.TotalExecutions())
	assert.Equal(t, 0, l.TotalNavigations())
	assert.Equal(t, 4, l.TodayCount())

	// The durable lines arrive in call order.
	l.Flush()
	lines := readLines(t, path)
	require.Len(t, lines, 4)
	for i, e := range lines {
		assert.Equal(t, EventAction, e.EventType)
		assert.Equal(t, testStart.Add(time.Duration(i)*time.Minute), e.Timestamp)
	}
}

func TestRecordGroupNavigation_SeparateAggregates(t *testing.T) {
	clk := testutil.NewClock(testStart)
	l := openTestLog(t, filepath.Join(t.TempDir(), "usage.jsonl"), clk)

	open := tree.NewGroup("o", "Open")
	l.RecordGroupNavigation(open, "o")
	l.RecordGroupNavigation(open, "o")
	l.RecordExecution(terminalAction(), "t")

	groups := l.MostNavigatedGroups(10)
	require.Len(t, groups, 1)
	assert.Equal(t, "o", groups[0].KeyPath)
	assert.Equal(t, "Open", groups[0].Label)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, 2, l.TotalNavigations())
	assert.Equal(t, 1, l.TotalExecutions())

	// Navigations never count toward per-day executions.
	assert.Equal(t, 1, l.TodayCount())
}

func TestMostUsedActions_TieBreakIsDeterministic(t *testing.T) {
	clk := testutil.NewClock(testStart)
	l := openTestLog(t, filepath.Join(t.TempDir(), "usage.jsonl"), clk)

	l.RecordExecution(terminalAction(), "c")
	l.RecordExecution(terminalAction(), "a")
	l.RecordExecution(terminalAction(), "b")
	l.RecordExecution(terminalAction(), "b")

	top := l.MostUsedActions(10)
	require.Len(t, top, 3)
	assert.Equal(t, "b", top[0].KeyPath)
	assert.Equal(t, "a", top[1].KeyPath)
	assert.Equal(t, "c", top[2].KeyPath)

	// Limit truncates after sorting.
	assert.Len(t, l.MostUsedActions(2), 2)
}

func TestStatsKey_FallsBackToTypeAndValue(t *testing.T) {
	clk := testutil.NewClock(testStart)
	l := openTestLog(t, filepath.Join(t.TempDir(), "usage.jsonl"), clk)

	unkeyed := tree.NewAction(tree.TypeURL, "", "https://github.com")
	l.RecordExecution(unkeyed, "")
	l.RecordExecution(unkeyed, "")

	top := l.MostUsedActions(10)
	require.Len(t, top, 1)
	assert.Equal(t, 2, top[0].Count)
	assert.Empty(t, top[0].KeyPath)
	assert.Equal(t, "https://github.com", top[0].ActionValue)
}

func TestRecentActivity_BoundedNewestFirst(t *testing.T) {
	clk := testutil.NewClock(testStart)
	l := openTestLog(t, filepath.Join(t.TempDir(), "usage.jsonl"), clk)

	for i := 0; i < 60; i++ {
		l.RecordExecution(terminalAction(), "t")
		clk.Advance(time.Second)
	}

	recent := l.RecentActivity(100)
	require.Len(t, recent, RecentCapacity)
	assert.Equal(t, testStart.Add(59*time.Second), recent[0].Timestamp)
	assert.Equal(t, testStart.Add(10*time.Second), recent[len(recent)-1].Timestamp)

	short := l.RecentActivity(3)
	require.Len(t, short, 3)
	assert.Equal(t, testStart.Add(59*time.Second), short[0].Timestamp)
	assert.Equal(t, testStart.Add(57*time.Second), short[2].Timestamp)
}

func TestExecutionsPerDay_ZeroFilledTrailingWindow(t *testing.T) {
	clk := testutil.NewClock(testStart)
	l := openTestLog(t, filepath.Join(t.TempDir(), "usage.jsonl"), clk)

	l.RecordExecution(terminalAction(), "t")
	clk.Advance(24 * time.Hour) // day 2: nothing
	clk.Advance(24 * time.Hour) // day 3
	l.RecordExecution(terminalAction(), "t")
	l.RecordExecution(terminalAction(), "t")

	days := l.ExecutionsPerDay(3)
	require.Len(t, days, 3)
	assert.Equal(t, DayCount{Day: "2026-03-10", Count: 1}, days[0])
	assert.Equal(t, DayCount{Day: "2026-03-11", Count: 0}, days[1])
	assert.Equal(t, DayCount{Day: "2026-03-12", Count: 2}, days[2])

	assert.Equal(t, 2, l.TodayCount())
}

func TestRestart_ReplayReproducesAggregates(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	clk := testutil.NewClock(testStart)

	l, err := Open(Options{Path: path, Now: clk.Now})
	require.NoError(t, err)
	open := tree.NewGroup("o", "Open")
	for i := 0; i < 5; i++ {
		l.RecordExecution(terminalAction(), "t")
		clk.Advance(time.Minute)
	}
	l.RecordGroupNavigation(open, "o")
	require.NoError(t, l.Close())

	reloaded, err := Open(Options{Path: path, Now: clk.Now})
	require.NoError(t, err)
	defer reloaded.Close()

	assert.Equal(t, l.TotalExecutions(), reloaded.TotalExecutions())
	assert.Equal(t, l.TotalNavigations(), reloaded.TotalNavigations())
	assert.Equal(t, l.MostUsedActions(10), reloaded.MostUsedActions(10))
	assert.Equal(t, l.MostNavigatedGroups(10), reloaded.MostNavigatedGroups(10))
	assert.Equal(t, l.RecentActivity(100), reloaded.RecentActivity(100))
}

func TestReplay_SkipsCorruptLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	good := `{"actionType":"application","actionValue":"/a","keyPath":"t","eventType":"action","timestamp":"2026-03-10T09:00:00Z"}`
	content := good + "\n" + `{"actionType": truncated garb` + "\n" + good + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	clk := testutil.NewClock(testStart)
	l := openTestLog(t, path, clk)

	assert.Equal(t, 2, l.TotalExecutions(), "good lines around the corrupt one must survive")
	top := l.MostUsedActions(10)
	require.Len(t, top, 1)
	assert.Equal(t, 2, top[0].Count)
}

func TestClearAllStats_ResetsMemoryAndTruncatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	clk := testutil.NewClock(testStart)
	l := openTestLog(t, path, clk)

	l.RecordExecution(terminalAction(), "t")
	l.RecordGroupNavigation(tree.NewGroup("o", "Open"), "o")
	l.ClearAllStats()

	assert.Equal(t, 0, l.TotalExecutions())
	assert.Equal(t, 0, l.TotalNavigations())
	assert.Equal(t, 0, l.TodayCount())
	assert.Empty(t, l.MostUsedActions(10))
	assert.Empty(t, l.MostNavigatedGroups(10))
	assert.Empty(t, l.RecentActivity(10))

	l.Flush()
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Zero(t, info.Size())

	// Recording keeps working after a clear.
	l.RecordExecution(terminalAction(), "t")
	assert.Equal(t, 1, l.TotalExecutions())
	l.Flush()
	assert.Len(t, readLines(t, path), 1)
}

func TestClose_DrainsQueueAndDropsLateRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.jsonl")
	clk := testutil.NewClock(testStart)
	l, err := Open(Options{Path: path, Now: clk.Now})
	require.NoError(t, err)

	for i := 0; i < 20; i++ {
		l.RecordExecution(terminalAction(), "t")
	}
	require.NoError(t, l.Close())
	assert.Len(t, readLines(t, path), 20)

	l.RecordExecution(terminalAction(), "t")
	assert.Equal(t, 20, l.TotalExecutions())
	assert.Len(t, readLines(t, path), 20)
}
