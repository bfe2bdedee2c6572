// Package sampling plans how densely a video timeline is sampled.
package sampling

import (
	"math"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

// MinInterval is the floor on the sampling interval in seconds. Sub-second
// spacing would both explode payload size on short videos and exceed useful
// seek precision.
const MinInterval = 2

// PlanInterval derives the sampling interval for one extraction run:
// floor(duration/targetFrames) clamped to MinInterval. The fixed frame
// budget keeps payload size roughly constant regardless of video length.
// The interval is computed once per video and carried unchanged through the
// run and into timestamp correction.
func PlanInterval(duration float64, targetFrames int) (int, error) {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, &entity.InvalidDurationError{Duration: duration}
	}
	if targetFrames <= 0 {
		targetFrames = 1
	}

	interval := int(math.Floor(duration / float64(targetFrames)))
	if interval < MinInterval {
		interval = MinInterval
	}
	return interval, nil
}

// FrameCount reports how many frames the seek-capture loop will emit for a
// duration and interval: one for every instant strictly less than duration.
func FrameCount(duration float64, interval int) int {
	if interval <= 0 || duration <= 0 {
		return 0
	}
	return int(math.Ceil(duration / float64(interval)))
}
