package port

import (
	"context"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

// SlideSyncModel is the single external inference boundary: an ordered
// multimodal payload in, a structured event list out. The pipeline treats
// it as opaque and imposes no timeout of its own; callers bound it via ctx.
type SlideSyncModel interface {
	SyncSlides(ctx context.Context, parts []entity.Part) ([]entity.RawSlideEvent, error)
}
