package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/correction"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/port"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/infra/metrics"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/payload"
)

type SyncDeckUseCase struct {
	repo       port.JobRepository
	storage    port.MediaStorage
	sampler    port.FrameSampler
	rasterizer port.PageRasterizer
	model      port.SlideSyncModel
	publisher  port.StatusPublisher
	dlq        port.DLQPublisher
	notifier   port.FailureNotifier
	logger     *zap.Logger
	cfg        SyncDeckConfig
}

type SyncDeckConfig struct {
	TempDir             string
	MaxRetries          int
	VideoInlineMaxBytes int64
	DeckInlineMaxBytes  int64
}

func NewSyncDeckUseCase(
	repo port.JobRepository,
	storage port.MediaStorage,
	sampler port.FrameSampler,
	rasterizer port.PageRasterizer,
	model port.SlideSyncModel,
	publisher port.StatusPublisher,
	dlq port.DLQPublisher,
	notifier port.FailureNotifier,
	logger *zap.Logger,
	cfg SyncDeckConfig,
) *SyncDeckUseCase {
	return &SyncDeckUseCase{
		repo:       repo,
		storage:    storage,
		sampler:    sampler,
		rasterizer: rasterizer,
		model:      model,
		publisher:  publisher,
		dlq:        dlq,
		notifier:   notifier,
		logger:     logger,
		cfg:        cfg,
	}
}

// syncResults is the JSON document uploaded to the results bucket; a UI
// downloads it to drive a clickable, seekable results table.
type syncResults struct {
	JobID            uuid.UUID           `json:"job_id"`
	VideoKey         string              `json:"video_key"`
	DeckKey          string              `json:"deck_key"`
	SamplingInterval int                 `json:"sampling_interval"`
	VideoDuration    float64             `json:"video_duration"`
	Events           []entity.SlideEvent `json:"events"`
}

func (uc *SyncDeckUseCase) Execute(ctx context.Context, rawMsg []byte) error {
	tracer := otel.Tracer("usecase")
	ctx, span := tracer.Start(ctx, "SyncDeckUseCase.Execute")
	defer span.End()

	totalTimer := time.Now()

	var msg entity.SyncRequestMessage
	if err := json.Unmarshal(rawMsg, &msg); err != nil {
		uc.logger.Error("failed to unmarshal message", zap.Error(err), zap.ByteString("body", rawMsg))
		_ = uc.dlq.PublishToDLQ(ctx, rawMsg, "unmarshal_error: "+err.Error())
		return nil
	}

	span.SetAttributes(
		attribute.String("job.id", msg.JobID.String()),
		attribute.String("job.video_key", msg.VideoKey),
		attribute.String("job.deck_key", msg.DeckKey),
	)

	log := uc.logger.With(
		zap.String("job_id", msg.JobID.String()),
		zap.String("video_key", msg.VideoKey),
		zap.String("deck_key", msg.DeckKey),
	)

	job, err := uc.repo.FindByID(ctx, msg.JobID)
	switch {
	case errors.Is(err, entity.ErrJobNotFound):
		job = entity.NewSyncJob(msg.UserID, msg.VideoKey, msg.DeckKey, msg.VideoSize, msg.DeckSize, uc.cfg.MaxRetries)
		job.ID = msg.JobID
		if err := uc.repo.Create(ctx, job); err != nil {
			log.Error("failed to create job record", zap.Error(err))
			return fmt.Errorf("create job: %w", err)
		}
	case err != nil:
		// A failing lookup is not a missing row: creating here would
		// collide with the existing job once the database recovers.
		log.Error("failed to load job record", zap.Error(err))
		return fmt.Errorf("find job: %w", err)
	}

	if !job.CanRetry() {
		log.Warn("job exhausted retries, sending to DLQ")
		_ = uc.handlePermanentFailure(ctx, job, msg, rawMsg, "max retries exceeded")
		return nil
	}

	job.MarkProcessing()
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to PROCESSING", zap.Error(err))
		return fmt.Errorf("update job: %w", err)
	}

	metrics.ActiveWorkers.Inc()
	defer metrics.ActiveWorkers.Dec()

	if err := uc.runSyncPipeline(ctx, job, msg, rawMsg, log); err != nil {
		return err
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	metrics.JobProcessingDuration.WithLabelValues("total").Observe(time.Since(totalTimer).Seconds())

	return nil
}

func (uc *SyncDeckUseCase) runSyncPipeline(
	ctx context.Context,
	job *entity.SyncJob,
	msg entity.SyncRequestMessage,
	rawMsg []byte,
	log *zap.Logger,
) error {
	tracer := otel.Tracer("usecase")

	workDir := filepath.Join(uc.cfg.TempDir, job.ID.String())
	if err := os.MkdirAll(workDir, 0755); err != nil {
		return fmt.Errorf("create workdir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Download both inputs from MinIO
	dlStart := time.Now()
	ctxDl, spanDl := tracer.Start(ctx, "download_media")
	videoPath := filepath.Join(workDir, "input"+filepath.Ext(msg.VideoKey))
	deckPath := filepath.Join(workDir, "deck.pdf")
	if err := uc.storage.DownloadMedia(ctxDl, msg.VideoKey, videoPath); err != nil {
		spanDl.End()
		log.Error("failed to download video", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_video: "+err.Error(), log)
	}
	if err := uc.storage.DownloadMedia(ctxDl, msg.DeckKey, deckPath); err != nil {
		spanDl.End()
		log.Error("failed to download deck", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "download_deck: "+err.Error(), log)
	}
	spanDl.End()
	metrics.JobProcessingDuration.WithLabelValues("download").Observe(time.Since(dlStart).Seconds())

	// Route each input by its actual on-disk size
	videoSize := fileSize(videoPath)
	deckSize := fileSize(deckPath)
	log.Info("media downloaded",
		zap.Int64("video_bytes", videoSize),
		zap.Int64("deck_bytes", deckSize),
		zap.Bool("sample_video", videoSize > uc.cfg.VideoInlineMaxBytes),
		zap.Bool("rasterize_deck", deckSize > uc.cfg.DeckInlineMaxBytes),
	)

	var in payload.AssembleInput
	var duration float64
	var interval int

	// Video branch: sample large files, submit small ones inline
	if videoSize > uc.cfg.VideoInlineMaxBytes {
		sampleStart := time.Now()
		ctxSample, spanSample := tracer.Start(ctx, "sample_frames")
		result, err := uc.sampler.SampleFrames(ctxSample, videoPath, workDir, func(current, total float64) {
			log.Debug("sampling progress",
				zap.Float64("current_seconds", current),
				zap.Float64("total_seconds", total),
			)
		})
		spanSample.End()
		if err != nil {
			log.Error("frame sampling failed", zap.Error(err))
			if isDeterministic(err) {
				return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "video cannot be processed: "+err.Error())
			}
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "sample_frames: "+err.Error(), log)
		}
		metrics.JobProcessingDuration.WithLabelValues("sample").Observe(time.Since(sampleStart).Seconds())
		metrics.FramesSampledTotal.Add(float64(len(result.Frames)))

		in.Frames = result.Frames
		in.SamplingInterval = result.Interval
		interval = result.Interval
		duration = result.Duration
	} else {
		data, err := os.ReadFile(videoPath)
		if err != nil {
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "read_video: "+err.Error(), log)
		}
		in.VideoInline = data
		in.VideoMIMEType = payload.VideoMIMEType(msg.VideoKey)

		// Duration is informational on the inline path; the model saw the
		// continuous stream and no correction will run.
		if probed, err := uc.sampler.ProbeDuration(ctx, videoPath); err == nil {
			duration = probed
		} else {
			log.Warn("could not probe inline video duration", zap.Error(err))
		}
	}

	// Deck branch: rasterize large decks, submit small ones inline
	if deckSize > uc.cfg.DeckInlineMaxBytes {
		rasterStart := time.Now()
		ctxRaster, spanRaster := tracer.Start(ctx, "rasterize_pages")
		pages, err := uc.rasterizer.RasterizePages(ctxRaster, deckPath, workDir)
		spanRaster.End()
		if err != nil {
			log.Error("page rasterization failed", zap.Error(err))
			if isDeterministic(err) {
				return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "deck cannot be processed: "+err.Error())
			}
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "rasterize_pages: "+err.Error(), log)
		}
		metrics.JobProcessingDuration.WithLabelValues("rasterize").Observe(time.Since(rasterStart).Seconds())
		metrics.PagesRasterizedTotal.Add(float64(len(pages)))
		in.Pages = pages
	} else {
		data, err := os.ReadFile(deckPath)
		if err != nil {
			return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "read_deck: "+err.Error(), log)
		}
		in.DeckInline = data
	}

	// Assemble the ordered payload. A failure here is deterministic: the
	// same inputs produce the same empty or conflicting content.
	parts, err := payload.Assemble(in)
	if err != nil {
		log.Error("payload assembly failed", zap.Error(err))
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, "assemble_payload: "+err.Error())
	}

	// Model call: the one long-latency suspension point of the pipeline
	modelStart := time.Now()
	ctxModel, spanModel := tracer.Start(ctx, "call_model")
	spanModel.SetAttributes(attribute.Int("payload.parts", len(parts)))
	raw, err := uc.model.SyncSlides(ctxModel, parts)
	spanModel.End()
	if err != nil {
		log.Error("model call failed", zap.Error(err))
		if isDeterministic(err) {
			return uc.handlePermanentFailure(ctx, job, msg, rawMsg, describeModelRejection(err, in))
		}
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "call_model: "+err.Error(), log)
	}
	metrics.JobProcessingDuration.WithLabelValues("model").Observe(time.Since(modelStart).Seconds())

	// Midpoint correction; interval is 0 on the inline path, so this is a
	// pure normalization pass there.
	events, repaired := correction.Apply(raw, interval)
	if repaired > 0 {
		log.Warn("repaired malformed model events", zap.Int("repaired", repaired))
		metrics.EventsRepairedTotal.Add(float64(repaired))
	}
	metrics.SlideEventsTotal.Add(float64(len(events)))

	if err := uc.repo.ReplaceEvents(ctx, job.ID, events); err != nil {
		log.Error("failed to store slide events", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "store_events: "+err.Error(), log)
	}

	// Upload the results document
	upStart := time.Now()
	ctxUp, spanUp := tracer.Start(ctx, "upload_results")
	resultsKey := fmt.Sprintf("%s/sync_%s.json", msg.UserID, job.ID.String())
	doc, err := json.Marshal(syncResults{
		JobID:            job.ID,
		VideoKey:         msg.VideoKey,
		DeckKey:          msg.DeckKey,
		SamplingInterval: interval,
		VideoDuration:    duration,
		Events:           events,
	})
	if err != nil {
		spanUp.End()
		return fmt.Errorf("marshal results: %w", err)
	}
	if err := uc.storage.UploadResults(ctxUp, resultsKey, bytes.NewReader(doc), int64(len(doc))); err != nil {
		spanUp.End()
		log.Error("results upload failed", zap.Error(err))
		return uc.handleRetryableFailure(ctx, job, msg, rawMsg, "upload_results: "+err.Error(), log)
	}
	spanUp.End()
	metrics.JobProcessingDuration.WithLabelValues("upload").Observe(time.Since(upStart).Seconds())

	job.MarkCompleted(resultsKey, len(events), duration, interval)
	if err := uc.repo.Update(ctx, job); err != nil {
		log.Error("failed to update job to COMPLETED", zap.Error(err))
		return fmt.Errorf("update job completed: %w", err)
	}

	uc.publishStatus(ctx, job, log)

	log.Info("sync job completed",
		zap.Int("slide_events", len(events)),
		zap.Int("repaired_events", repaired),
		zap.Float64("duration_secs", duration),
		zap.Int("sampling_interval_secs", interval),
		zap.String("results_key", resultsKey),
	)

	return nil
}

func (uc *SyncDeckUseCase) handleRetryableFailure(
	ctx context.Context,
	job *entity.SyncJob,
	msg entity.SyncRequestMessage,
	rawMsg []byte,
	errMsg string,
	log *zap.Logger,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	if !job.CanRetry() {
		return uc.handlePermanentFailure(ctx, job, msg, rawMsg, errMsg)
	}

	metrics.RetryTotal.WithLabelValues(strconv.Itoa(job.Attempt)).Inc()
	uc.publishStatus(ctx, job, log)

	return fmt.Errorf("retryable failure (attempt %d/%d): %s", job.Attempt, job.MaxAttempts, errMsg)
}

func (uc *SyncDeckUseCase) handlePermanentFailure(
	ctx context.Context,
	job *entity.SyncJob,
	msg entity.SyncRequestMessage,
	rawMsg []byte,
	errMsg string,
) error {
	job.MarkFailed(errMsg)
	_ = uc.repo.Update(ctx, job)

	_ = uc.dlq.PublishToDLQ(ctx, rawMsg, errMsg)

	uc.publishStatus(ctx, job, uc.logger)

	metrics.JobsProcessedTotal.WithLabelValues("dlq").Inc()

	if msg.UserEmail != "" {
		_ = uc.notifier.NotifyFailure(ctx, msg.UserEmail, job.ID.String(), msg.VideoKey, msg.DeckKey, errMsg)
	}

	return nil
}

func (uc *SyncDeckUseCase) publishStatus(ctx context.Context, job *entity.SyncJob, log *zap.Logger) {
	statusMsg := entity.SyncStatusMessage{
		JobID:            job.ID,
		UserID:           job.UserID,
		Status:           job.Status,
		VideoKey:         job.VideoKey,
		DeckKey:          job.DeckKey,
		ResultsKey:       job.ResultsKey,
		SlideCount:       job.SlideCount,
		VideoDuration:    job.VideoDuration,
		SamplingInterval: job.SamplingInterval,
		ErrorMessage:     job.ErrorMessage,
		Attempt:          job.Attempt,
		MaxAttempts:      job.MaxAttempts,
	}
	data, _ := json.Marshal(statusMsg)
	if err := uc.publisher.PublishStatus(ctx, data); err != nil {
		log.Error("failed to publish status", zap.Error(err))
	}
}

// isDeterministic reports whether a retry of the same inputs would fail the
// same way: unusable media, an undecodable deck, or a model-side verdict on
// the request itself. Network, storage and database failures stay retryable.
func isDeterministic(err error) bool {
	var invalidDuration *entity.InvalidDurationError
	var decodeErr *entity.DocumentDecodeError
	var tooLarge *entity.PayloadTooLargeError
	var rejected *entity.RequestRejectedError
	return errors.As(err, &invalidDuration) ||
		errors.As(err, &decodeErr) ||
		errors.As(err, &tooLarge) ||
		errors.As(err, &rejected)
}

// describeModelRejection turns a deterministic model-boundary failure into a
// user-facing message. Size rejections blame whichever input contributed the
// most bytes, so the remedy names the right file.
func describeModelRejection(err error, in payload.AssembleInput) string {
	var tooLarge *entity.PayloadTooLargeError
	if errors.As(err, &tooLarge) {
		if videoBytes(in) >= deckBytes(in) {
			return fmt.Sprintf("request too large for the model (%s): shorten the video or lower the frame budget", tooLarge.Message)
		}
		return fmt.Sprintf("request too large for the model (%s): reduce the deck size or page quality", tooLarge.Message)
	}

	var rejected *entity.RequestRejectedError
	if errors.As(err, &rejected) {
		return "model rejected the request: " + rejected.Message
	}
	return err.Error()
}

func videoBytes(in payload.AssembleInput) int64 {
	if len(in.VideoInline) > 0 {
		return int64(len(in.VideoInline))
	}
	var total int64
	for _, frame := range in.Frames {
		total += int64(len(frame.Image))
	}
	return total
}

func deckBytes(in payload.AssembleInput) int64 {
	if len(in.DeckInline) > 0 {
		return int64(len(in.DeckInline))
	}
	var total int64
	for _, page := range in.Pages {
		total += int64(len(page.Image))
	}
	return total
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
