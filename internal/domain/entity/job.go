package entity

import (
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "PENDING"
	JobStatusProcessing JobStatus = "PROCESSING"
	JobStatusCompleted  JobStatus = "COMPLETED"
	JobStatusFailed     JobStatus = "FAILED"
)

// SyncJob tracks one video/deck pair through the pipeline. SamplingInterval
// is 0 when the video was small enough to submit inline (no sampling, and
// therefore no timestamp correction downstream).
type SyncJob struct {
	ID               uuid.UUID
	UserID           string
	VideoKey         string
	DeckKey          string
	ResultsKey       string
	Status           JobStatus
	SlideCount       int
	VideoSize        int64
	DeckSize         int64
	VideoDuration    float64
	SamplingInterval int
	Attempt          int
	MaxAttempts      int
	ErrorMessage     string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	CompletedAt      *time.Time
}

func NewSyncJob(userID, videoKey, deckKey string, videoSize, deckSize int64, maxAttempts int) *SyncJob {
	now := time.Now().UTC()
	return &SyncJob{
		ID:          uuid.New(),
		UserID:      userID,
		VideoKey:    videoKey,
		DeckKey:     deckKey,
		VideoSize:   videoSize,
		DeckSize:    deckSize,
		Status:      JobStatusPending,
		Attempt:     0,
		MaxAttempts: maxAttempts,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (j *SyncJob) MarkProcessing() {
	j.Status = JobStatusProcessing
	j.Attempt++
	j.UpdatedAt = time.Now().UTC()
}

func (j *SyncJob) MarkCompleted(resultsKey string, slideCount int, duration float64, interval int) {
	now := time.Now().UTC()
	j.Status = JobStatusCompleted
	j.ResultsKey = resultsKey
	j.SlideCount = slideCount
	j.VideoDuration = duration
	j.SamplingInterval = interval
	j.UpdatedAt = now
	j.CompletedAt = &now
}

func (j *SyncJob) MarkFailed(errMsg string) {
	j.Status = JobStatusFailed
	j.ErrorMessage = errMsg
	j.UpdatedAt = time.Now().UTC()
}

func (j *SyncJob) CanRetry() bool {
	return j.Attempt < j.MaxAttempts
}
