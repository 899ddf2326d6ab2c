package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sp-hack/server/internal/metrics"
	"github.com/sp-hack/server/internal/storage"
)

type FeedbackRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const feedbackColumns = `id, created_at, updated_at, answered, fingerprint, name, email, command_name, message`

func scanFeedback(row pgx.Row) (storage.Feedback, error) {
	var f storage.Feedback
	err := row.Scan(
		&f.ID,
		&f.CreatedAt,
		&f.UpdatedAt,
		&f.Answered,
		&f.Fingerprint,
		&f.Name,
		&f.Email,
		&f.CommandName,
		&f.Message,
	)
	return f, err
}

func (r *FeedbackRepository) Create(ctx context.Context, params storage.FeedbackCreateParams) (fb storage.Feedback, err error) {
	defer metrics.RecordQuery("feedback_create", time.Now(), &err)

	query := `
		INSERT INTO feedback (fingerprint, name, email, command_name, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + feedbackColumns
	fb, err = scanFeedback(pick(r.pool, r.tx).QueryRow(ctx, query,
		params.Fingerprint, params.Name, params.Email, params.CommandName, params.Message))
	if err != nil {
		return storage.Feedback{}, fmt.Errorf("create feedback: %w", mapError(err))
	}
	return fb, nil
}

func (r *FeedbackRepository) List(ctx context.Context) (items []storage.Feedback, err error) {
	defer metrics.RecordQuery("feedback_list", time.Now(), &err)

	rows, err := pick(r.pool, r.tx).Query(ctx, `SELECT `+feedbackColumns+` FROM feedback ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list feedback: %w", err)
	}
	defer rows.Close()

	items = []storage.Feedback{}
	for rows.Next() {
		fb, err := scanFeedback(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feedback: %w", err)
		}
		items = append(items, fb)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feedback: %w", err)
	}
	return items, nil
}

func (r *FeedbackRepository) GetByID(ctx context.Context, id int64) (fb storage.Feedback, err error) {
	defer metrics.RecordQuery("feedback_get", time.Now(), &err)

	fb, err = scanFeedback(pick(r.pool, r.tx).QueryRow(ctx, `SELECT `+feedbackColumns+` FROM feedback WHERE id = $1`, id))
	if err != nil {
		return storage.Feedback{}, fmt.Errorf("get feedback: %w", mapError(err))
	}
	return fb, nil
}

func (r *FeedbackRepository) Delete(ctx context.Context, id int64) (err error) {
	defer metrics.RecordQuery("feedback_delete", time.Now(), &err)

	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM feedback WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	if err = requireAffected(tag); err != nil {
		return fmt.Errorf("delete feedback: %w", err)
	}
	return nil
}

func (r *FeedbackRepository) MarkAnswered(ctx context.Context, id int64) (err error) {
	defer metrics.RecordQuery("feedback_mark_answered", time.Now(), &err)

	tag, err := pick(r.pool, r.tx).Exec(ctx,
		`UPDATE feedback SET answered = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark feedback answered: %w", err)
	}
	if err = requireAffected(tag); err != nil {
		return fmt.Errorf("mark feedback answered: %w", err)
	}
	return nil
}
