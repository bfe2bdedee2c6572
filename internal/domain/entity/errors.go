package entity

import (
	"errors"
	"fmt"
)

// ErrJobNotFound distinguishes a missing job row from a failing database:
// the first means the worker creates the row, the second must retry.
var ErrJobNotFound = errors.New("sync job not found")

// InvalidDurationError reports an unusable media length. The video branch
// aborts before any frame work: a zero or non-finite duration would plan a
// degenerate interval and loop forever downstream.
type InvalidDurationError struct {
	Duration float64
}

func (e *InvalidDurationError) Error() string {
	return fmt.Sprintf("invalid media duration %v: need a finite positive number of seconds", e.Duration)
}

// FrameExtractionError reports a seek, capture or encode failure at a
// specific timestamp. Fatal for the video branch: skipping a frame would
// silently desynchronize the timestamp/content correspondence.
type FrameExtractionError struct {
	Seconds int
	Err     error
}

func (e *FrameExtractionError) Error() string {
	return fmt.Sprintf("frame extraction failed at %ds: %v", e.Seconds, e.Err)
}

func (e *FrameExtractionError) Unwrap() error { return e.Err }

// DocumentDecodeError reports an unopenable deck or a page that failed to
// rasterize (Page is 0 when the document itself cannot be opened). A partial
// page set is useless to the model, so any page failure aborts the branch.
type DocumentDecodeError struct {
	Path string
	Page int
	Err  error
}

func (e *DocumentDecodeError) Error() string {
	if e.Page > 0 {
		return fmt.Sprintf("rasterizing page %d of %s: %v", e.Page, e.Path, e.Err)
	}
	return fmt.Sprintf("decoding document %s: %v", e.Path, e.Err)
}

func (e *DocumentDecodeError) Unwrap() error { return e.Err }

// PayloadTooLargeError is raised when the model boundary reports the
// assembled payload exceeds its request limit.
type PayloadTooLargeError struct {
	Status  int
	Message string
}

func (e *PayloadTooLargeError) Error() string {
	return fmt.Sprintf("model rejected payload as too large (status %d): %s", e.Status, e.Message)
}

// RequestRejectedError is raised when the model boundary refuses the request
// for reasons other than size (malformed input, auth, safety block).
type RequestRejectedError struct {
	Status  int
	Message string
}

func (e *RequestRejectedError) Error() string {
	return fmt.Sprintf("model rejected request (status %d): %s", e.Status, e.Message)
}

// MalformedEventError marks a returned event carrying no usable time. The
// corrector repairs such events in place (0 s fallback) instead of failing
// the batch; the error only surfaces through the repair count.
type MalformedEventError struct {
	Index     int
	Timestamp string
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("event %d has no usable time (seconds absent, timestamp %q)", e.Index, e.Timestamp)
}
