package main

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/atlas-cli/internal/model"
	"github.com/sells-group/atlas-cli/internal/pipeline"
)

func TestProcessBatch_IndividualFailuresDoNotAbort(t *testing.T) {
	var mu sync.Mutex
	ran := make(map[string]bool)

	run := func(_ context.Context, aoiPath string) (*pipeline.Result, error) {
		mu.Lock()
		ran[aoiPath] = true
		mu.Unlock()
		if aoiPath == "bad.geojson" {
			return nil, eris.New("broken AOI")
		}
		return &pipeline.Result{Run: &model.Run{ID: aoiPath}}, nil
	}

	err := processBatch(context.Background(),
		[]string{"a.geojson", "bad.geojson", "b.geojson"}, 2, run)
	require.NoError(t, err)
	assert.Len(t, ran, 3)
}

func TestProcessBatch_RespectsConcurrencyLimit(t *testing.T) {
	var mu sync.Mutex
	active, peak := 0, 0

	run := func(context.Context, string) (*pipeline.Result, error) {
		mu.Lock()
		active++
		if active > peak {
			peak = active
		}
		mu.Unlock()

		time.Sleep(10 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		return &pipeline.Result{Run: &model.Run{ID: "r"}}, nil
	}

	paths := []string{"a", "b", "c", "d", "e", "f"}
	require.NoError(t, processBatch(context.Background(), paths, 2, run))
	assert.LessOrEqual(t, peak, 2)
}

func TestFormatRunsList(t *testing.T) {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	runs := []model.Run{{
		ID:        "0123456789abcdef",
		Mode:      model.ModeCoastal,
		Status:    model.RunStatusCompleted,
		Stages:    []string{"fetch_imagery", "score"},
		CreatedAt: now,
		UpdatedAt: now.Add(90 * time.Second),
	}}

	var sb strings.Builder
	formatRunsList(&sb, runs)
	out := sb.String()

	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "89abcdef")
	assert.Contains(t, out, "coastal")
	assert.Contains(t, out, "completed")
	assert.Contains(t, out, "2/7")
	assert.Contains(t, out, "1m30s")
}

func TestFormatTargetsList(t *testing.T) {
	targets := []model.Target{{
		ID:              "target-1-long-identifier",
		AreaKM2:         19.83,
		MeanScore:       0.912,
		MaxScore:        0.95,
		EvidenceSummary: []string{"Near coastline (<30 km)", "Low slope (<=5°)"},
	}}

	var sb strings.Builder
	formatTargetsList(&sb, targets)
	out := sb.String()

	assert.Contains(t, out, "target-1")
	assert.Contains(t, out, "19.83")
	assert.Contains(t, out, "0.912")
	assert.Contains(t, out, "Near coastline (<30 km)")
	assert.NotContains(t, out, "Low slope")
}

func TestTruncateID(t *testing.T) {
	assert.Equal(t, "12345678", truncateID("1234567890"))
	assert.Equal(t, "short", truncateID("short"))
}
