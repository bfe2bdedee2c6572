package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/port"
)

type fakeRepo struct {
	jobs    map[uuid.UUID]*entity.SyncJob
	events  map[uuid.UUID][]entity.SlideEvent
	findErr error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		jobs:   map[uuid.UUID]*entity.SyncJob{},
		events: map[uuid.UUID][]entity.SlideEvent{},
	}
}

func (f *fakeRepo) Create(_ context.Context, job *entity.SyncJob) error {
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeRepo) Update(_ context.Context, job *entity.SyncJob) error {
	f.jobs[job.ID] = job
	return nil
}

func (f *fakeRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	job, ok := f.jobs[id]
	if !ok {
		return nil, entity.ErrJobNotFound
	}
	return job, nil
}

func (f *fakeRepo) ReplaceEvents(_ context.Context, jobID uuid.UUID, events []entity.SlideEvent) error {
	f.events[jobID] = events
	return nil
}

func (f *fakeRepo) ListEvents(_ context.Context, jobID uuid.UUID) ([]entity.SlideEvent, error) {
	return f.events[jobID], nil
}

type fakeStorage struct {
	files       map[string][]byte
	downloadErr map[string]error
	uploadedKey string
	uploaded    []byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: map[string][]byte{}, downloadErr: map[string]error{}}
}

func (f *fakeStorage) DownloadMedia(_ context.Context, objectKey string, destPath string) error {
	if err := f.downloadErr[objectKey]; err != nil {
		return err
	}
	data, ok := f.files[objectKey]
	if !ok {
		return fmt.Errorf("no such object %s", objectKey)
	}
	return os.WriteFile(destPath, data, 0644)
}

func (f *fakeStorage) UploadResults(_ context.Context, objectKey string, reader io.Reader, _ int64) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return err
	}
	f.uploadedKey = objectKey
	f.uploaded = data
	return nil
}

type fakeSampler struct {
	result *port.FrameSampleResult
	err    error
	called bool
	probed float64
}

func (f *fakeSampler) SampleFrames(_ context.Context, _, _ string, progress port.SampleProgressFunc) (*port.FrameSampleResult, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	if progress != nil {
		for _, frame := range f.result.Frames {
			progress(float64(frame.Seconds), f.result.Duration)
		}
	}
	return f.result, nil
}

func (f *fakeSampler) ProbeDuration(_ context.Context, _ string) (float64, error) {
	return f.probed, nil
}

type fakeRasterizer struct {
	pages  []entity.PagePart
	err    error
	called bool
}

func (f *fakeRasterizer) RasterizePages(_ context.Context, _, _ string) ([]entity.PagePart, error) {
	f.called = true
	if f.err != nil {
		return nil, f.err
	}
	return f.pages, nil
}

type fakeModel struct {
	parts  []entity.Part
	events []entity.RawSlideEvent
	err    error
}

func (f *fakeModel) SyncSlides(_ context.Context, parts []entity.Part) ([]entity.RawSlideEvent, error) {
	f.parts = parts
	if f.err != nil {
		return nil, f.err
	}
	return f.events, nil
}

type fakeStatusPublisher struct {
	messages [][]byte
}

func (f *fakeStatusPublisher) PublishStatus(_ context.Context, msg []byte) error {
	f.messages = append(f.messages, msg)
	return nil
}

type fakeDLQPublisher struct {
	bodies  [][]byte
	reasons []string
}

func (f *fakeDLQPublisher) PublishToDLQ(_ context.Context, msg []byte, reason string) error {
	f.bodies = append(f.bodies, msg)
	f.reasons = append(f.reasons, reason)
	return nil
}

type fakeNotifier struct {
	emails   []string
	messages []string
}

func (f *fakeNotifier) NotifyFailure(_ context.Context, userEmail, _, _, _, errorMsg string) error {
	f.emails = append(f.emails, userEmail)
	f.messages = append(f.messages, errorMsg)
	return nil
}

type harness struct {
	repo       *fakeRepo
	storage    *fakeStorage
	sampler    *fakeSampler
	rasterizer *fakeRasterizer
	model      *fakeModel
	status     *fakeStatusPublisher
	dlq        *fakeDLQPublisher
	notifier   *fakeNotifier
	uc         *SyncDeckUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		repo:       newFakeRepo(),
		storage:    newFakeStorage(),
		sampler:    &fakeSampler{},
		rasterizer: &fakeRasterizer{},
		model:      &fakeModel{},
		status:     &fakeStatusPublisher{},
		dlq:        &fakeDLQPublisher{},
		notifier:   &fakeNotifier{},
	}
	h.uc = NewSyncDeckUseCase(
		h.repo, h.storage, h.sampler, h.rasterizer, h.model,
		h.status, h.dlq, h.notifier,
		zap.NewNop(),
		SyncDeckConfig{
			TempDir:             t.TempDir(),
			MaxRetries:          3,
			VideoInlineMaxBytes: 100,
			DeckInlineMaxBytes:  100,
		},
	)
	return h
}

func requestBody(t *testing.T, msg entity.SyncRequestMessage) []byte {
	t.Helper()
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	return data
}

func sampleResult(frameCount, interval int, duration float64, frameBytes int) *port.FrameSampleResult {
	frames := make([]entity.FramePart, 0, frameCount)
	for i := 0; i < frameCount; i++ {
		frames = append(frames, entity.FramePart{
			Timestamp: fmt.Sprintf("00:%02d", i*interval),
			Seconds:   i * interval,
			Image:     bytes.Repeat([]byte{0xAB}, frameBytes),
			MIMEType:  "image/jpeg",
		})
	}
	return &port.FrameSampleResult{Frames: frames, Interval: interval, Duration: duration}
}

func seconds(v float64) *float64 { return &v }

func TestExecuteSampledVideoInlineDeck(t *testing.T) {
	h := newHarness(t)
	msg := entity.SyncRequestMessage{
		JobID:    uuid.New(),
		UserID:   "u1",
		VideoKey: "u1/lecture.mp4",
		DeckKey:  "u1/slides.pdf",
	}

	// Video over the 100-byte threshold routes through sampling; the deck
	// stays under it and goes inline.
	h.storage.files[msg.VideoKey] = bytes.Repeat([]byte{0x01}, 200)
	h.storage.files[msg.DeckKey] = bytes.Repeat([]byte{0x02}, 50)
	h.sampler.result = sampleResult(3, 2, 5.0, 10)
	h.model.events = []entity.RawSlideEvent{
		{Timestamp: "00:42", Seconds: seconds(42), PageNumber: 1, SlideTitle: "Intro", Reasoning: "Title visible."},
	}

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.NoError(t, err)

	assert.True(t, h.sampler.called)
	assert.False(t, h.rasterizer.called)

	// 3 marker/image pairs + inline deck + trailing instruction.
	require.Len(t, h.model.parts, 8)

	job := h.repo.jobs[msg.JobID]
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 1, job.SlideCount)
	assert.Equal(t, 2, job.SamplingInterval)
	assert.Equal(t, 5.0, job.VideoDuration)

	// Midpoint correction: 42 - 2/2 = 41.
	stored := h.repo.events[msg.JobID]
	require.Len(t, stored, 1)
	assert.Equal(t, 41.0, stored[0].Seconds)
	assert.Equal(t, "00:41", stored[0].Timestamp)
	assert.Contains(t, stored[0].Reasoning, "automatically adjusted")

	var results struct {
		SamplingInterval int     `json:"sampling_interval"`
		VideoDuration    float64 `json:"video_duration"`
		Events           []entity.SlideEvent
	}
	require.NoError(t, json.Unmarshal(h.storage.uploaded, &results))
	assert.Equal(t, 2, results.SamplingInterval)
	assert.Equal(t, 5.0, results.VideoDuration)
	require.Len(t, results.Events, 1)
	assert.Equal(t, h.storage.uploadedKey, job.ResultsKey)

	require.NotEmpty(t, h.status.messages)
	var status entity.SyncStatusMessage
	require.NoError(t, json.Unmarshal(h.status.messages[len(h.status.messages)-1], &status))
	assert.Equal(t, entity.JobStatusCompleted, status.Status)
	assert.Empty(t, h.dlq.bodies)
}

func TestExecuteInlineVideoAndDeck(t *testing.T) {
	h := newHarness(t)
	msg := entity.SyncRequestMessage{
		JobID:    uuid.New(),
		UserID:   "u1",
		VideoKey: "u1/short.mp4",
		DeckKey:  "u1/slides.pdf",
	}

	h.storage.files[msg.VideoKey] = bytes.Repeat([]byte{0x01}, 40)
	h.storage.files[msg.DeckKey] = bytes.Repeat([]byte{0x02}, 40)
	h.sampler.probed = 7.5
	h.model.events = []entity.RawSlideEvent{
		{Timestamp: "00:42", Seconds: seconds(42), PageNumber: 2, SlideTitle: "Agenda", Reasoning: "Agenda list."},
	}

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.NoError(t, err)

	assert.False(t, h.sampler.called)
	assert.False(t, h.rasterizer.called)

	// Inline video + inline deck + instruction.
	require.Len(t, h.model.parts, 3)
	video, ok := h.model.parts[0].(entity.BlobPart)
	require.True(t, ok)
	assert.Equal(t, "video/mp4", video.MIMEType)

	// No sampling means no correction: seconds pass through.
	stored := h.repo.events[msg.JobID]
	require.Len(t, stored, 1)
	assert.Equal(t, 42.0, stored[0].Seconds)
	assert.NotContains(t, stored[0].Reasoning, "adjusted")

	job := h.repo.jobs[msg.JobID]
	assert.Equal(t, entity.JobStatusCompleted, job.Status)
	assert.Equal(t, 0, job.SamplingInterval)
	assert.Equal(t, 7.5, job.VideoDuration)
}

func TestExecuteMalformedMessageGoesToDLQ(t *testing.T) {
	h := newHarness(t)

	err := h.uc.Execute(context.Background(), []byte("not json at all"))
	require.NoError(t, err)

	require.Len(t, h.dlq.reasons, 1)
	assert.Contains(t, h.dlq.reasons[0], "unmarshal_error")
	assert.Empty(t, h.repo.jobs)
}

func TestExecutePayloadTooLargeIsPermanent(t *testing.T) {
	h := newHarness(t)
	msg := entity.SyncRequestMessage{
		JobID:     uuid.New(),
		UserID:    "u1",
		VideoKey:  "u1/lecture.mp4",
		DeckKey:   "u1/slides.pdf",
		UserEmail: "user@example.com",
	}

	h.storage.files[msg.VideoKey] = bytes.Repeat([]byte{0x01}, 200)
	h.storage.files[msg.DeckKey] = bytes.Repeat([]byte{0x02}, 50)
	// Frame images dominate the payload, so the advice names the video.
	h.sampler.result = sampleResult(3, 2, 5.0, 100)
	h.model.err = &entity.PayloadTooLargeError{Status: 413, Message: "too big"}

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.NoError(t, err)

	job := h.repo.jobs[msg.JobID]
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "shorten the video")

	require.Len(t, h.dlq.bodies, 1)
	require.Len(t, h.notifier.emails, 1)
	assert.Equal(t, "user@example.com", h.notifier.emails[0])
	assert.Contains(t, h.notifier.messages[0], "shorten the video")
}

func TestExecuteDeterministicDeckFailureIsPermanent(t *testing.T) {
	h := newHarness(t)
	msg := entity.SyncRequestMessage{
		JobID:    uuid.New(),
		UserID:   "u1",
		VideoKey: "u1/short.mp4",
		DeckKey:  "u1/broken.pdf",
	}

	h.storage.files[msg.VideoKey] = bytes.Repeat([]byte{0x01}, 40)
	h.storage.files[msg.DeckKey] = bytes.Repeat([]byte{0x02}, 200)
	h.rasterizer.err = &entity.DocumentDecodeError{Path: "broken.pdf", Err: errors.New("corrupt xref")}

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.NoError(t, err)

	job := h.repo.jobs[msg.JobID]
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Contains(t, job.ErrorMessage, "deck cannot be processed")
	assert.Len(t, h.dlq.bodies, 1)
}

func TestExecuteTransientDownloadFailureRetries(t *testing.T) {
	h := newHarness(t)
	msg := entity.SyncRequestMessage{
		JobID:    uuid.New(),
		UserID:   "u1",
		VideoKey: "u1/lecture.mp4",
		DeckKey:  "u1/slides.pdf",
	}

	h.storage.downloadErr[msg.VideoKey] = errors.New("connection refused")

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "download_video")

	job := h.repo.jobs[msg.JobID]
	require.NotNil(t, job)
	assert.Equal(t, entity.JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.Attempt)

	// Still retryable: nothing parked on the DLQ yet.
	assert.Empty(t, h.dlq.bodies)
	assert.NotEmpty(t, h.status.messages)
}

func TestExecuteJobLookupFailureRetriesWithoutCreating(t *testing.T) {
	h := newHarness(t)
	msg := entity.SyncRequestMessage{
		JobID:    uuid.New(),
		UserID:   "u1",
		VideoKey: "u1/lecture.mp4",
		DeckKey:  "u1/slides.pdf",
	}

	// A database outage is not a missing row: no job row may be created,
	// the message nacks and retries once the database is back.
	h.repo.findErr = errors.New("connection refused")

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "find job")

	assert.Empty(t, h.repo.jobs)
	assert.Empty(t, h.dlq.bodies)
	assert.Empty(t, h.status.messages)
}

func TestExecuteExhaustedRetriesGoToDLQ(t *testing.T) {
	h := newHarness(t)
	msg := entity.SyncRequestMessage{
		JobID:     uuid.New(),
		UserID:    "u1",
		VideoKey:  "u1/lecture.mp4",
		DeckKey:   "u1/slides.pdf",
		UserEmail: "user@example.com",
	}

	job := entity.NewSyncJob(msg.UserID, msg.VideoKey, msg.DeckKey, 0, 0, 3)
	job.ID = msg.JobID
	job.Attempt = 3
	h.repo.jobs[job.ID] = job

	err := h.uc.Execute(context.Background(), requestBody(t, msg))
	require.NoError(t, err)

	assert.Equal(t, entity.JobStatusFailed, h.repo.jobs[msg.JobID].Status)
	require.Len(t, h.dlq.reasons, 1)
	assert.Contains(t, h.dlq.reasons[0], "max retries exceeded")
	require.Len(t, h.notifier.emails, 1)
}
