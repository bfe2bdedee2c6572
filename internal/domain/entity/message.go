package entity

import "github.com/google/uuid"

// SyncRequestMessage is the inbound message from the deck.sync queue.
// Sizes are advisory; the worker routes on the downloaded files' actual sizes.
type SyncRequestMessage struct {
	JobID     uuid.UUID `json:"job_id"`
	UserID    string    `json:"user_id"`
	VideoKey  string    `json:"video_key"`
	DeckKey   string    `json:"deck_key"`
	VideoSize int64     `json:"video_size"`
	DeckSize  int64     `json:"deck_size"`
	UserEmail string    `json:"user_email"`
}

// SyncStatusMessage is the outbound message published to the deck.status queue.
type SyncStatusMessage struct {
	JobID            uuid.UUID `json:"job_id"`
	UserID           string    `json:"user_id"`
	Status           JobStatus `json:"status"`
	VideoKey         string    `json:"video_key"`
	DeckKey          string    `json:"deck_key"`
	ResultsKey       string    `json:"results_key,omitempty"`
	SlideCount       int       `json:"slide_count,omitempty"`
	VideoDuration    float64   `json:"video_duration_seconds,omitempty"`
	SamplingInterval int       `json:"sampling_interval_seconds,omitempty"`
	ErrorMessage     string    `json:"error_message,omitempty"`
	Attempt          int       `json:"attempt"`
	MaxAttempts      int       `json:"max_attempts"`
}
