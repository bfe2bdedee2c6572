package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/port"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/imaging"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/sampling"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/pkg/timecode"
	"go.uber.org/zap"
)

// Sampler drives ffmpeg through the seek-capture-encode loop: one seek per
// planned instant, one captured frame per seek, normalized to a bounded
// JPEG. Each run allocates a fresh capture directory under the caller's
// workdir and removes it before returning, success or failure.
type Sampler struct {
	targetFrames int
	maxEdge      int
	jpegQuality  int
	logger       *zap.Logger
}

func NewSampler(targetFrames, maxEdge, jpegQuality int, logger *zap.Logger) *Sampler {
	return &Sampler{
		targetFrames: targetFrames,
		maxEdge:      maxEdge,
		jpegQuality:  jpegQuality,
		logger:       logger,
	}
}

func (s *Sampler) SampleFrames(ctx context.Context, videoPath, workDir string, progress port.SampleProgressFunc) (*port.FrameSampleResult, error) {
	duration, err := s.ProbeDuration(ctx, videoPath)
	if err != nil {
		return nil, fmt.Errorf("probe duration: %w", err)
	}

	interval, err := sampling.PlanInterval(duration, s.targetFrames)
	if err != nil {
		return nil, err
	}

	captureDir := filepath.Join(workDir, "capture")
	if err := os.MkdirAll(captureDir, 0755); err != nil {
		return nil, fmt.Errorf("create capture dir: %w", err)
	}
	defer os.RemoveAll(captureDir)

	capturePath := filepath.Join(captureDir, "frame.png")
	frames := make([]entity.FramePart, 0, sampling.FrameCount(duration, interval))

	// Strictly sequential: the next seek is not issued until the previous
	// capture has fully resolved, since a media timeline has one decoder
	// position. A frame is emitted for every instant strictly less than
	// duration, never at or past it.
	for t := 0; float64(t) < duration; t += interval {
		raw, err := s.captureFrame(ctx, videoPath, capturePath, t)
		if err != nil {
			return nil, &entity.FrameExtractionError{Seconds: t, Err: err}
		}

		encoded, err := imaging.Normalize(raw, s.maxEdge, s.jpegQuality)
		if err != nil {
			return nil, &entity.FrameExtractionError{Seconds: t, Err: err}
		}

		frames = append(frames, entity.FramePart{
			Timestamp: timecode.Format(float64(t)),
			Seconds:   t,
			Image:     encoded,
			MIMEType:  imaging.MIMEType,
		})

		if progress != nil {
			progress(float64(t), duration)
		}
	}

	s.logger.Info("frames sampled",
		zap.Int("count", len(frames)),
		zap.Int("interval_seconds", interval),
		zap.Float64("video_duration", duration),
	)

	return &port.FrameSampleResult{
		Frames:   frames,
		Interval: interval,
		Duration: duration,
	}, nil
}

func (s *Sampler) captureFrame(ctx context.Context, videoPath, capturePath string, seconds int) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-ss", strconv.Itoa(seconds),
		"-i", videoPath,
		"-frames:v", "1",
		"-y",
		capturePath,
	)

	output, err := cmd.CombinedOutput()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg error: %w, output: %s", err, string(output))
	}

	data, err := os.ReadFile(capturePath)
	if err != nil {
		return nil, fmt.Errorf("read captured frame: %w", err)
	}

	// The capture path is reused across iterations; a stale file must not
	// masquerade as the next frame.
	if err := os.Remove(capturePath); err != nil {
		return nil, fmt.Errorf("discard capture: %w", err)
	}
	return data, nil
}
