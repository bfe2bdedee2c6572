package port

import "context"

// StatusPublisher fans job lifecycle updates out to the status queue, where
// the upload API layer consumes them. Failed attempts publish too, so
// consumers see every retry.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, msg []byte) error
}

// DLQPublisher parks messages that must not be retried. The reason travels
// as a header so the original body stays replayable as-is.
type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, msg []byte, reason string) error
}
