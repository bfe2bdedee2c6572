package port

import "context"

// FailureNotifier tells the job owner their sync permanently failed. Both
// source files are named so the user knows which pair to fix and resubmit.
type FailureNotifier interface {
	NotifyFailure(ctx context.Context, userEmail string, jobID string, videoKey string, deckKey string, errorMsg string) error
}
