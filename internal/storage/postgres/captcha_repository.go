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

type CaptchaRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *CaptchaRepository) Put(ctx context.Context, id string, expiresAt time.Time) (err error) {
	defer metrics.RecordQuery("captcha_put", time.Now(), &err)

	_, err = pick(r.pool, r.tx).Exec(ctx,
		`INSERT INTO captcha_challenges (id, expires_at) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET expires_at = EXCLUDED.expires_at`,
		id, expiresAt,
	)
	if err != nil {
		return fmt.Errorf("store captcha challenge: %w", err)
	}
	return nil
}

// Consume deletes the challenge in the same statement that reads it, so two
// concurrent verifications cannot both succeed.
func (r *CaptchaRepository) Consume(ctx context.Context, id string, now time.Time) (ok bool, err error) {
	defer metrics.RecordQuery("captcha_consume", time.Now(), &err)

	var expiresAt time.Time
	err = pick(r.pool, r.tx).QueryRow(ctx,
		`DELETE FROM captcha_challenges WHERE id = $1 RETURNING expires_at`, id,
	).Scan(&expiresAt)
	if err != nil {
		if mapError(err) == storage.ErrNotFound {
			return false, nil
		}
		return false, fmt.Errorf("consume captcha challenge: %w", err)
	}
	return now.Before(expiresAt), nil
}

func (r *CaptchaRepository) Purge(ctx context.Context, now time.Time) (n int64, err error) {
	defer metrics.RecordQuery("captcha_purge", time.Now(), &err)

	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM captcha_challenges WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("purge captcha challenges: %w", err)
	}
	return tag.RowsAffected(), nil
}
