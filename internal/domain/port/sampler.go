package port

import (
	"context"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

// SampleProgressFunc reports how far the seek-capture loop has advanced.
// Purely observational: implementations must never gate control flow on it.
type SampleProgressFunc func(currentSeconds, totalSeconds float64)

type FrameSampleResult struct {
	Frames   []entity.FramePart
	Interval int
	Duration float64
}

type FrameSampler interface {
	// SampleFrames drives one strictly sequential seek-capture-encode pass
	// over the video timeline and returns the ordered frame sequence plus
	// the interval used. progress may be nil.
	SampleFrames(ctx context.Context, videoPath, workDir string, progress SampleProgressFunc) (*FrameSampleResult, error)

	// ProbeDuration reports the video's playable length in seconds.
	ProbeDuration(ctx context.Context, videoPath string) (float64, error)
}
