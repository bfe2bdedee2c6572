package correction

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/sampling"
)

func seconds(v float64) *float64 { return &v }

func TestApplyMidpointShift(t *testing.T) {
	events, repaired := Apply([]entity.RawSlideEvent{
		{Timestamp: "00:42", Seconds: seconds(42), PageNumber: 3, SlideTitle: "Results", Reasoning: "Chart matches page 3."},
	}, 10)

	require.Len(t, events, 1)
	assert.Equal(t, 0, repaired)
	assert.Equal(t, 37.0, events[0].Seconds)
	assert.Equal(t, "00:37", events[0].Timestamp)
	assert.Equal(t, 3, events[0].PageNumber)
	assert.Equal(t, "Results", events[0].SlideTitle)
	assert.Contains(t, events[0].Reasoning, "Chart matches page 3.")
	assert.Contains(t, events[0].Reasoning, "automatically adjusted backward")
}

func TestApplyClampsAtZero(t *testing.T) {
	events, repaired := Apply([]entity.RawSlideEvent{
		{Timestamp: "00:02", Seconds: seconds(2), PageNumber: 1},
	}, 10)

	require.Len(t, events, 1)
	assert.Equal(t, 0, repaired)
	assert.Equal(t, 0.0, events[0].Seconds)
	assert.Equal(t, "00:00", events[0].Timestamp)
}

func TestApplyOddIntervalHalvesExactly(t *testing.T) {
	events, _ := Apply([]entity.RawSlideEvent{
		{Seconds: seconds(42), PageNumber: 1},
	}, 5)

	require.Len(t, events, 1)
	assert.Equal(t, 39.5, events[0].Seconds)
	assert.Equal(t, "00:39", events[0].Timestamp)
}

func TestApplyTimestampFallback(t *testing.T) {
	nan := math.NaN()

	// Without sampling: the parsed value passes through untouched.
	events, repaired := Apply([]entity.RawSlideEvent{
		{Timestamp: "02:15", Seconds: &nan, PageNumber: 2},
	}, 0)
	require.Len(t, events, 1)
	assert.Equal(t, 0, repaired)
	assert.Equal(t, 135.0, events[0].Seconds)
	assert.Equal(t, "02:15", events[0].Timestamp)

	// With sampling: the same resolution feeds the shift.
	events, repaired = Apply([]entity.RawSlideEvent{
		{Timestamp: "02:15", PageNumber: 2},
	}, 10)
	require.Len(t, events, 1)
	assert.Equal(t, 0, repaired)
	assert.Equal(t, 130.0, events[0].Seconds)
	assert.Equal(t, "02:10", events[0].Timestamp)
}

func TestApplyRepairsMalformedEvent(t *testing.T) {
	events, repaired := Apply([]entity.RawSlideEvent{
		{Seconds: seconds(42), PageNumber: 1},
		{Timestamp: "not a timecode", PageNumber: 2, Reasoning: "unclear"},
		{Seconds: seconds(80), PageNumber: 3},
	}, 10)

	// One bad event is repaired to zero; the rest of the batch survives.
	require.Len(t, events, 3)
	assert.Equal(t, 1, repaired)
	assert.Equal(t, 37.0, events[0].Seconds)
	assert.Equal(t, 0.0, events[1].Seconds)
	assert.Equal(t, "00:00", events[1].Timestamp)
	assert.Equal(t, 75.0, events[2].Seconds)

	// Order and page references are untouched.
	assert.Equal(t, []int{1, 2, 3}, []int{events[0].PageNumber, events[1].PageNumber, events[2].PageNumber})
}

func TestApplyInlineSubmissionLeavesEventsUnshifted(t *testing.T) {
	events, repaired := Apply([]entity.RawSlideEvent{
		{Timestamp: "01:31", Seconds: seconds(90.7), PageNumber: 4, Reasoning: "Title slide visible."},
	}, 0)

	require.Len(t, events, 1)
	assert.Equal(t, 0, repaired)
	assert.Equal(t, 90.7, events[0].Seconds)
	// Timestamp is re-derived from the resolved value either way.
	assert.Equal(t, "01:30", events[0].Timestamp)
	assert.Equal(t, "Title slide visible.", events[0].Reasoning)
	assert.NotContains(t, events[0].Reasoning, "adjusted")
}

func TestApplyNegativeSecondsClamp(t *testing.T) {
	events, _ := Apply([]entity.RawSlideEvent{
		{Seconds: seconds(-5), PageNumber: 1},
	}, 0)

	require.Len(t, events, 1)
	assert.Equal(t, 0.0, events[0].Seconds)
	assert.Equal(t, "00:00", events[0].Timestamp)
}

func TestApplySampledHundredSeconds(t *testing.T) {
	events, _ := Apply([]entity.RawSlideEvent{
		{Seconds: seconds(100), PageNumber: 5},
	}, 2)

	require.Len(t, events, 1)
	assert.Equal(t, 99.0, events[0].Seconds)
	assert.Equal(t, "01:39", events[0].Timestamp)
}

// A 1000 second lecture with the default 800-frame budget plans a floored
// interval of 1, clamped to 2, sampling 500 frames; a transition the model
// reports at 100 seconds shifts back to 99.
func TestPlanAndCorrectScenario(t *testing.T) {
	interval, err := sampling.PlanInterval(1000, 800)
	require.NoError(t, err)
	assert.Equal(t, 2, interval)
	assert.Equal(t, 500, sampling.FrameCount(1000, interval))

	events, repaired := Apply([]entity.RawSlideEvent{
		{Timestamp: "01:40", Seconds: seconds(100), PageNumber: 7, SlideTitle: "Benchmarks"},
	}, interval)

	require.Len(t, events, 1)
	assert.Equal(t, 0, repaired)
	assert.Equal(t, 99.0, events[0].Seconds)
	assert.Equal(t, "01:39", events[0].Timestamp)
}

func TestApplyEmptyBatch(t *testing.T) {
	events, repaired := Apply(nil, 10)
	assert.Empty(t, events)
	assert.Equal(t, 0, repaired)
}
