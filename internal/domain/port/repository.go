package port

import (
	"context"

	"github.com/google/uuid"
	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

type JobRepository interface {
	Create(ctx context.Context, job *entity.SyncJob) error
	Update(ctx context.Context, job *entity.SyncJob) error

	// FindByID returns entity.ErrJobNotFound when no row exists for id;
	// any other error means the lookup itself failed.
	FindByID(ctx context.Context, id uuid.UUID) (*entity.SyncJob, error)

	// ReplaceEvents atomically swaps the job's stored event list for the
	// given one, preserving slice order in the position column.
	ReplaceEvents(ctx context.Context, jobID uuid.UUID, events []entity.SlideEvent) error
	ListEvents(ctx context.Context, jobID uuid.UUID) ([]entity.SlideEvent, error)
}
