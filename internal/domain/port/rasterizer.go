package port

import (
	"context"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

type PageRasterizer interface {
	// RasterizePages renders every page of the deck into an encoded image,
	// strictly in page order 1..N. A failure on any page aborts the whole
	// extraction: the model needs the complete page index space.
	RasterizePages(ctx context.Context, deckPath, workDir string) ([]entity.PagePart, error)
}
