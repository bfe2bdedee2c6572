package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trico109748007/Slide-Sync-AI-One-Deck/internal/domain/entity"
)

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

func (r *JobRepository) Create(ctx context.Context, job *entity.SyncJob) error {
	query := `
		INSERT INTO sync_jobs (
			id, user_id, video_key, deck_key, results_key, status, slide_count,
			video_size, deck_size, video_duration, sampling_interval,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17)`

	_, err := r.pool.Exec(ctx, query,
		job.ID, job.UserID, job.VideoKey, job.DeckKey, job.ResultsKey, string(job.Status),
		job.SlideCount, job.VideoSize, job.DeckSize, job.VideoDuration, job.SamplingInterval,
		job.Attempt, job.MaxAttempts, job.ErrorMessage,
		job.CreatedAt, job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

func (r *JobRepository) Update(ctx context.Context, job *entity.SyncJob) error {
	query := `
		UPDATE sync_jobs SET
			status=$2, results_key=$3, slide_count=$4, video_duration=$5,
			sampling_interval=$6, attempt=$7, error_message=$8,
			updated_at=$9, completed_at=$10
		WHERE id=$1`

	_, err := r.pool.Exec(ctx, query,
		job.ID, string(job.Status), job.ResultsKey, job.SlideCount,
		job.VideoDuration, job.SamplingInterval, job.Attempt, job.ErrorMessage,
		job.UpdatedAt, job.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

func (r *JobRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.SyncJob, error) {
	query := `
		SELECT id, user_id, video_key, deck_key, results_key, status, slide_count,
			video_size, deck_size, video_duration, sampling_interval,
			attempt, max_attempts, error_message, created_at, updated_at, completed_at
		FROM sync_jobs WHERE id=$1`

	job := &entity.SyncJob{}
	var status string
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID, &job.UserID, &job.VideoKey, &job.DeckKey, &job.ResultsKey, &status,
		&job.SlideCount, &job.VideoSize, &job.DeckSize, &job.VideoDuration, &job.SamplingInterval,
		&job.Attempt, &job.MaxAttempts, &job.ErrorMessage,
		&job.CreatedAt, &job.UpdatedAt, &job.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, entity.ErrJobNotFound
		}
		return nil, fmt.Errorf("find job by id: %w", err)
	}
	job.Status = entity.JobStatus(status)
	return job, nil
}

// ReplaceEvents swaps the job's stored event list inside one transaction so a
// reprocessed job never exposes a mix of old and new events. The position
// column preserves model order.
func (r *JobRepository) ReplaceEvents(ctx context.Context, jobID uuid.UUID, events []entity.SlideEvent) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace events: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM slide_events WHERE job_id=$1`, jobID); err != nil {
		return fmt.Errorf("delete stale events: %w", err)
	}

	query := `
		INSERT INTO slide_events (
			job_id, position, timestamp, seconds, pdf_page_number, slide_title, reasoning
		) VALUES ($1,$2,$3,$4,$5,$6,$7)`

	for position, event := range events {
		if _, err := tx.Exec(ctx, query,
			jobID, position, event.Timestamp, event.Seconds,
			event.PageNumber, event.SlideTitle, event.Reasoning,
		); err != nil {
			return fmt.Errorf("insert event %d: %w", position, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace events: %w", err)
	}
	return nil
}

func (r *JobRepository) ListEvents(ctx context.Context, jobID uuid.UUID) ([]entity.SlideEvent, error) {
	query := `
		SELECT timestamp, seconds, pdf_page_number, slide_title, reasoning
		FROM slide_events WHERE job_id=$1 ORDER BY position`

	rows, err := r.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (entity.SlideEvent, error) {
		var event entity.SlideEvent
		err := row.Scan(&event.Timestamp, &event.Seconds, &event.PageNumber, &event.SlideTitle, &event.Reasoning)
		return event, err
	})
	if err != nil {
		return nil, fmt.Errorf("scan events: %w", err)
	}
	return events, nil
}
