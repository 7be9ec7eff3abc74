package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/keyfold/keyfold/internal/statsdb"
)

// writeTestSettings creates a settings file pointing at a telemetry log
// seeded with content and returns the settings path and the log path.
func writeTestSettings(t *testing.T, logContent string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	logPath := filepath.Join(dir, "usage.jsonl")
	require.NoError(t, os.WriteFile(logPath, []byte(logContent), 0o644))

	settingsPath := filepath.Join(dir, "settings.yaml")
	content := fmt.Sprintf("configPath: %s\ntelemetryPath: %s\n",
		filepath.Join(dir, "config.json"), logPath)
	require.NoError(t, os.WriteFile(settingsPath, []byte(content), 0o644))
	return settingsPath, logPath
}

const sampleLog = `{"actionType":"application","actionValue":"/a","keyPath":"t","eventType":"action","timestamp":"2026-03-10T09:00:00Z"}
{"actionType":"application","actionValue":"/a","keyPath":"t","eventType":"action","timestamp":"2026-03-10T09:01:00Z"}
{"actionType":"group","actionValue":"Open","actionLabel":"Open","keyPath":"o","eventType":"group","timestamp":"2026-03-10T09:02:00Z"}
`

func TestStatsShow_Totals(t *testing.T) {
	settingsPath, _ := writeTestSettings(t, sampleLog)

	out, err := execute(t, "--settings", settingsPath, "--format", "json", "stats", "show")
	require.NoError(t, err)

	var resp struct {
		Status string      `json:"status"`
		Data   StatsResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.TotalExecutions)
	assert.Equal(t, 1, resp.Data.TotalNavigations)
	require.Len(t, resp.Data.TopActions, 1)
	assert.Equal(t, 2, resp.Data.TopActions[0].Count)
	require.Len(t, resp.Data.Recent, 3)
	assert.Equal(t, "o", resp.Data.Recent[0].KeyPath, "recent activity is newest first")
}

func TestStatsShow_Text(t *testing.T) {
	settingsPath, _ := writeTestSettings(t, sampleLog)

	out, err := execute(t, "--settings", settingsPath, "stats", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "Executions: 2 total")
	assert.Contains(t, out, "Navigations: 1 total")
	assert.Contains(t, out, "Top actions:")
}

func TestStatsClear_TruncatesLog(t *testing.T) {
	settingsPath, logPath := writeTestSettings(t, sampleLog)

	_, err := execute(t, "--settings", settingsPath, "stats", "clear")
	require.NoError(t, err)

	info, statErr := os.Stat(logPath)
	require.NoError(t, statErr)
	assert.Zero(t, info.Size())
}

func TestStatsExport_WritesDatabase(t *testing.T) {
	settingsPath, _ := writeTestSettings(t, sampleLog)
	dbPath := filepath.Join(t.TempDir(), "stats.db")

	out, err := execute(t, "--settings", settingsPath, "stats", "export", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "exported 3 event(s)")

	db, openErr := statsdb.Open(dbPath)
	require.NoError(t, openErr)
	defer db.Close()
	count, countErr := db.Count(context.Background())
	require.NoError(t, countErr)
	assert.Equal(t, 3, count)
}
