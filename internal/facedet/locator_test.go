package facedet

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gazeguard/gazeguard-go/internal/detection"
	"github.com/gazeguard/gazeguard-go/internal/frame"
)

// scriptedModel replays a fixed sequence of results for testing.
type scriptedModel struct {
	name    string
	results []scriptedResult
	calls   int
	delay   time.Duration
}

type scriptedResult struct {
	dets []detection.Detection
	err  error
}

func (m *scriptedModel) Name() string { return m.name }

func (m *scriptedModel) Detect(ctx context.Context, f *frame.Frame) ([]detection.Detection, error) {
	if m.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.delay):
		}
	}
	i := m.calls
	if i >= len(m.results) {
		i = len(m.results) - 1
	}
	m.calls++
	return m.results[i].dets, m.results[i].err
}

func testFrame() *frame.Frame {
	return &frame.Frame{Width: 640, Height: 480, Timestamp: time.Now(), Seq: 1}
}

func TestLocateFiltersLowConfidence(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{name: "test", results: []scriptedResult{{
		dets: []detection.Detection{
			{X: 0, Y: 0, W: 50, H: 50, Confidence: 0.9},
			{X: 100, Y: 0, W: 50, H: 50, Confidence: 0.3},
			{X: 200, Y: 0, W: 50, H: 50, Confidence: 0.5},
		},
	}}}

	l := New(Config{ConfidenceThreshold: 0.5, Timeout: time.Second}, model, nil, nil)
	dets, err := l.Locate(context.Background(), testFrame())
	require.NoError(t, err)
	require.Len(t, dets, 2)
	assert.InDelta(t, 0.9, dets[0].Confidence, 1e-9)
	assert.InDelta(t, 0.5, dets[1].Confidence, 1e-9)
}

func TestLocateLeavesBackendSliceIntact(t *testing.T) {
	t.Parallel()

	// Backends may reuse the slice they returned across calls, so
	// filtering must not rearrange it in place.
	retained := []detection.Detection{
		{X: 0, Y: 0, W: 50, H: 50, Confidence: 0.2},
		{X: 100, Y: 0, W: 50, H: 50, Confidence: 0.9},
		{X: 200, Y: 0, W: 50, H: 50, Confidence: 0.3},
	}
	model := &scriptedModel{name: "test", results: []scriptedResult{{dets: retained}}}

	l := New(Config{ConfidenceThreshold: 0.5, Timeout: time.Second}, model, nil, nil)
	dets, err := l.Locate(context.Background(), testFrame())
	require.NoError(t, err)
	require.Len(t, dets, 1)

	assert.InDelta(t, 0.2, retained[0].Confidence, 1e-9)
	assert.InDelta(t, 0.9, retained[1].Confidence, 1e-9)
	assert.InDelta(t, 0.3, retained[2].Confidence, 1e-9)
}

func TestLocateTimeoutReturnsUnavailable(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{
		name:    "slow",
		delay:   200 * time.Millisecond,
		results: []scriptedResult{{dets: nil}},
	}

	l := New(Config{ConfidenceThreshold: 0.5, Timeout: 20 * time.Millisecond}, model, nil, nil)

	start := time.Now()
	dets, err := l.Locate(context.Background(), testFrame())
	assert.ErrorIs(t, err, ErrDetectionUnavailable)
	assert.Empty(t, dets)
	assert.Less(t, time.Since(start), 150*time.Millisecond, "locate must not wait for the slow backend")
}

func TestLocateDegradedModeAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{name: "flaky", results: []scriptedResult{
		{err: errors.New("backend down")},
	}}

	l := New(Config{ConfidenceThreshold: 0.5, Timeout: time.Second}, model, nil, nil)

	for i := 0; i < 2; i++ {
		_, err := l.Locate(context.Background(), testFrame())
		assert.ErrorIs(t, err, ErrDetectionUnavailable)
		assert.False(t, l.Degraded(), "degraded must not trip before three consecutive failures")
	}

	_, err := l.Locate(context.Background(), testFrame())
	assert.ErrorIs(t, err, ErrDetectionUnavailable)
	assert.True(t, l.Degraded(), "third consecutive failure must set degraded mode")
}

func TestLocateRecoveryClearsDegraded(t *testing.T) {
	t.Parallel()

	model := &scriptedModel{name: "recovering", results: []scriptedResult{
		{err: errors.New("backend down")},
		{err: errors.New("backend down")},
		{err: errors.New("backend down")},
		{dets: []detection.Detection{{X: 0, Y: 0, W: 40, H: 40, Confidence: 0.8}}},
	}}

	l := New(Config{ConfidenceThreshold: 0.5, Timeout: time.Second}, model, nil, nil)

	for i := 0; i < 3; i++ {
		_, _ = l.Locate(context.Background(), testFrame())
	}
	require.True(t, l.Degraded())

	dets, err := l.Locate(context.Background(), testFrame())
	require.NoError(t, err)
	assert.Len(t, dets, 1)
	assert.False(t, l.Degraded(), "successful primary call must clear degraded mode")
}

func TestLocateFallbackCoversFailingPrimary(t *testing.T) {
	t.Parallel()

	primary := &scriptedModel{name: "primary", results: []scriptedResult{
		{err: errors.New("backend down")},
	}}
	fallback := &scriptedModel{name: "fallback", results: []scriptedResult{
		{dets: []detection.Detection{{X: 10, Y: 10, W: 60, H: 60, Confidence: 0.7, Model: "fallback"}}},
	}}

	l := New(Config{ConfidenceThreshold: 0.5, Timeout: time.Second}, primary, fallback, nil)

	dets, err := l.Locate(context.Background(), testFrame())
	require.NoError(t, err, "fallback result must cover the cycle")
	require.Len(t, dets, 1)
	assert.Equal(t, "fallback", dets[0].Model)
}
