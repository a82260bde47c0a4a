package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/finprofile/internal/model"
)

func TestFormatRuns_Empty(t *testing.T) {
	var buf bytes.Buffer
	formatRuns(&buf, nil)

	output := buf.String()
	assert.Contains(t, output, "STATUS")
	assert.Contains(t, output, "FACTS")
	assert.Contains(t, output, "PROFILES")
}

func TestFormatRuns_Completed(t *testing.T) {
	started := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	completed := started.Add(95 * time.Minute)

	var buf bytes.Buffer
	formatRuns(&buf, []model.ImportRun{{
		ID:                   "3f2b8c1e-5d7a-4c39-9a51-0c2e6f1b7d44",
		Status:               model.RunStatusCompleted,
		StartedAt:            started,
		CompletedAt:          &completed,
		CompaniesInDirectory: 10234,
		CompaniesProcessed:   9876,
		FactsInserted:        4500000,
		ProfilesWritten:      9001,
	}})

	output := buf.String()
	assert.Contains(t, output, "3f2b8c1e")
	assert.NotContains(t, output, "3f2b8c1e-5d7a")
	assert.Contains(t, output, "completed")
	assert.Contains(t, output, "2025-01-15 10:30")
	assert.Contains(t, output, "1h35m0s")
	assert.Contains(t, output, "4500000")
	assert.Contains(t, output, "9001")
}

func TestFormatRuns_RunningAndFailed(t *testing.T) {
	started := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	errMsg := strings.Repeat("x", 100)

	var buf bytes.Buffer
	formatRuns(&buf, []model.ImportRun{
		{ID: "run-1", Status: model.RunStatusRunning, StartedAt: started},
		{ID: "run-2", Status: model.RunStatusFailed, StartedAt: started, CompletedAt: &started, Error: &errMsg},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Len(t, lines, 4)
	assert.Contains(t, lines[2], "running")
	assert.Contains(t, lines[2], " - ")
	assert.Contains(t, lines[3], "failed")
	assert.Contains(t, lines[3], "...")
	assert.NotContains(t, lines[3], errMsg)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
}
