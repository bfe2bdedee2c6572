// Command slidesync runs the deck sync pipeline against local files, without
// the broker, database, or object store. It uses the same sampling,
// rasterization, payload, and correction code as the worker, driven one shot
// from the command line.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/correction"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/config"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/ffmpeg"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/gemini"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/pdf"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/payload"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/sampling"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/pkg/logger"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/pkg/timecode"
)

var (
	syncVideoPath  string
	syncDeckPath   string
	syncOutputPath string
)

var rootCmd = &cobra.Command{
	Use:           "slidesync",
	Short:         "Match lecture video timestamps to slide deck pages",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sample a video, rasterize its deck, and resolve slide-change timestamps",
	RunE: func(cmd *cobra.Command, args []string) error {
		if syncVideoPath == "" {
			return errors.New("--video is required")
		}
		if syncDeckPath == "" {
			return errors.New("--deck is required")
		}
		return runSync(cmd.Context())
	},
}

var probeCmd = &cobra.Command{
	Use:   "probe <video>",
	Short: "Show a video's duration and the sampling plan it would get",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runProbe(cmd.Context(), args[0])
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncVideoPath, "video", "", "path to the lecture video")
	syncCmd.Flags().StringVar(&syncDeckPath, "deck", "", "path to the slide deck PDF")
	syncCmd.Flags().StringVarP(&syncOutputPath, "output", "o", "", "write the results JSON here instead of stdout")

	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(probeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// syncOutput mirrors the worker's results document, with local file paths in
// place of object storage keys.
type syncOutput struct {
	Video            string              `json:"video"`
	Deck             string              `json:"deck"`
	SamplingInterval int                 `json:"sampling_interval"`
	VideoDuration    float64             `json:"video_duration"`
	SlideCount       int                 `json:"slide_count"`
	EventsRepaired   int                 `json:"events_repaired,omitempty"`
	Events           []entity.SlideEvent `json:"events"`
}

func runSync(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.GeminiAPIKey == "" {
		return errors.New("GEMINI_API_KEY is not set")
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	sampler := ffmpeg.NewSampler(cfg.SamplerTargetFrames, cfg.FrameMaxEdgePx, cfg.FrameJPEGQuality, log)
	rasterizer := pdf.NewRasterizer(cfg.PageRenderDPI, cfg.PageMaxEdgePx, cfg.PageJPEGQuality, log)
	model := gemini.NewClient(cfg.GeminiBaseURL, cfg.GeminiAPIKey, cfg.GeminiModel, log)

	workDir, err := os.MkdirTemp("", "slidesync-*")
	if err != nil {
		return fmt.Errorf("create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	in := payload.AssembleInput{}
	var duration float64

	start := time.Now()

	videoSize, err := fileSize(syncVideoPath)
	if err != nil {
		return err
	}
	if videoSize > cfg.VideoInlineMaxBytes {
		result, err := sampler.SampleFrames(ctx, syncVideoPath, workDir, printProgress)
		if err != nil {
			return fmt.Errorf("sample frames: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		in.Frames = result.Frames
		in.SamplingInterval = result.Interval
		duration = result.Duration
		log.Info("video sampled",
			zap.Int("frames", len(result.Frames)),
			zap.Int("interval_seconds", result.Interval))
	} else {
		data, err := os.ReadFile(syncVideoPath)
		if err != nil {
			return fmt.Errorf("read video: %w", err)
		}
		in.VideoInline = data
		in.VideoMIMEType = payload.VideoMIMEType(syncVideoPath)
		if d, err := sampler.ProbeDuration(ctx, syncVideoPath); err == nil {
			duration = d
		} else {
			log.Warn("could not probe inline video duration", zap.Error(err))
		}
		log.Info("video small enough to send inline", zap.Int64("bytes", videoSize))
	}

	deckSize, err := fileSize(syncDeckPath)
	if err != nil {
		return err
	}
	if deckSize > cfg.DeckInlineMaxBytes {
		pages, err := rasterizer.RasterizePages(ctx, syncDeckPath, workDir)
		if err != nil {
			return fmt.Errorf("rasterize pages: %w", err)
		}
		in.Pages = pages
		log.Info("deck rasterized", zap.Int("pages", len(pages)))
	} else {
		data, err := os.ReadFile(syncDeckPath)
		if err != nil {
			return fmt.Errorf("read deck: %w", err)
		}
		in.DeckInline = data
		log.Info("deck small enough to send inline", zap.Int64("bytes", deckSize))
	}

	parts, err := payload.Assemble(in)
	if err != nil {
		return fmt.Errorf("assemble payload: %w", err)
	}

	log.Info("calling model", zap.Int("parts", len(parts)))
	raw, err := model.SyncSlides(ctx, parts)
	if err != nil {
		return fmt.Errorf("call model: %w", err)
	}

	events, repaired := correction.Apply(raw, in.SamplingInterval)
	if repaired > 0 {
		log.Warn("repaired malformed events", zap.Int("count", repaired))
	}

	out := syncOutput{
		Video:            syncVideoPath,
		Deck:             syncDeckPath,
		SamplingInterval: in.SamplingInterval,
		VideoDuration:    duration,
		SlideCount:       len(events),
		EventsRepaired:   repaired,
		Events:           events,
	}
	doc, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	doc = append(doc, '\n')

	if syncOutputPath != "" {
		if err := os.WriteFile(syncOutputPath, doc, 0o644); err != nil {
			return fmt.Errorf("write results: %w", err)
		}
		log.Info("sync finished",
			zap.Int("events", len(events)),
			zap.String("output", syncOutputPath),
			zap.Duration("elapsed", time.Since(start)))
		return nil
	}

	if _, err := os.Stdout.Write(doc); err != nil {
		return fmt.Errorf("write results: %w", err)
	}
	log.Info("sync finished",
		zap.Int("events", len(events)),
		zap.Duration("elapsed", time.Since(start)))
	return nil
}

func runProbe(ctx context.Context, videoPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New("error")
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	sampler := ffmpeg.NewSampler(cfg.SamplerTargetFrames, cfg.FrameMaxEdgePx, cfg.FrameJPEGQuality, log)
	duration, err := sampler.ProbeDuration(ctx, videoPath)
	if err != nil {
		return fmt.Errorf("probe duration: %w", err)
	}

	interval, err := sampling.PlanInterval(duration, cfg.SamplerTargetFrames)
	if err != nil {
		return err
	}
	frames := sampling.FrameCount(duration, interval)

	fmt.Printf("duration:  %s (%.1fs)\n", timecode.Format(duration), duration)
	fmt.Printf("interval:  %ds\n", interval)
	fmt.Printf("frames:    %d\n", frames)
	return nil
}

func printProgress(currentSeconds, totalSeconds float64) {
	fmt.Fprintf(os.Stderr, "\rsampling %s / %s", timecode.Format(currentSeconds), timecode.Format(totalSeconds))
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}
