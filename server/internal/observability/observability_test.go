package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestContext_AttachesBaseFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	rc := NewRequestContextWithID(logger, "req-1", "minutes", "work")

	rc.Info("stage done", slog.String(LogFieldStage, "filter"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "req-1", line[LogFieldRequestID])
	assert.Equal(t, "minutes", line[LogFieldMode])
	assert.Equal(t, "work", line[LogFieldCalendarID])
	assert.Equal(t, "filter", line[LogFieldStage])
}

func TestRequestContext_ErrorField(t *testing.T) {
	var buf bytes.Buffer
	rc := NewRequestContext(slog.New(slog.NewJSONHandler(&buf, nil)), "single", "")
	require.NotEmpty(t, rc.RequestID)

	rc.Error("fetch failed", errors.New("boom"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, "ERROR", line["level"])
}

func TestRequestContext_FromContext(t *testing.T) {
	rc := NewRequestContext(nil, "recurring", "default")
	ctx := WithRequestContext(context.Background(), rc)

	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, rc, got)

	_, ok = FromContext(context.Background())
	assert.False(t, ok)
}

func TestMetrics_RecordPlan(t *testing.T) {
	m := NewMetrics()
	m.RecordPlan("minutes", "SUCCESS", 20*time.Millisecond)
	m.RecordPlan("minutes", "PARTIAL", 40*time.Millisecond)
	m.RecordPlan("single", "FAILED", 10*time.Millisecond)
	m.RecordFallback()
	m.RecordCreationFailure()

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.PlanTotal)
	assert.Equal(t, int64(1), snap.PlanFailed)
	assert.Equal(t, int64(1), snap.FallbackTotal)
	assert.Equal(t, int64(1), snap.CreationFailures)
	assert.Equal(t, []string{"minutes", "single"}, snap.ModeNames())
	assert.Equal(t, int64(30), snap.Modes["minutes"].AverageDuration)
	assert.Equal(t, int64(1), snap.Modes["minutes"].StatusCounts["PARTIAL"])
	assert.InDelta(t, 66.67, snap.SuccessRate(), 0.01)

	m.Reset()
	assert.Equal(t, int64(0), m.Snapshot().PlanTotal)
	assert.Equal(t, 100.0, m.Snapshot().SuccessRate())
}

func TestMetrics_ConcurrentRecording(t *testing.T) {
	m := NewMetrics()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.RecordPlan("recurring", "SUCCESS", time.Millisecond)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(50), m.Snapshot().Modes["recurring"].StatusCounts["SUCCESS"])
}
