package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sp-hack/server/internal/storage"
)

// Repository implements storage.Repository on PostgreSQL.
type Repository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func NewRepository(pool *pgxpool.Pool) (*Repository, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return &Repository{pool: pool}, nil
}

func (r *Repository) Admins() storage.AdminRepository {
	return &AdminRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Info() storage.InfoRepository {
	return &InfoRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Feedback() storage.FeedbackRepository {
	return &FeedbackRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Applications() storage.ApplicationRepository {
	return &ApplicationRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Captcha() storage.CaptchaRepository {
	return &CaptchaRepository{pool: r.pool, tx: r.tx}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// SchemaVersion reads the state golang-migrate keeps in schema_migrations.
func (r *Repository) SchemaVersion(ctx context.Context) (int64, bool, error) {
	var (
		version int64
		dirty   bool
	)
	err := r.pool.QueryRow(ctx, `SELECT version, dirty FROM schema_migrations LIMIT 1`).Scan(&version, &dirty)
	if err != nil {
		return 0, false, fmt.Errorf("read schema version: %w", mapError(err))
	}
	return version, dirty, nil
}

// WithTx executes fn within a database transaction. Nested calls reuse the
// outer transaction.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, storage.Repository) error) error {
	if r.tx != nil {
		return fn(ctx, r)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	txRepo := &Repository{pool: r.pool, tx: tx}
	if err := fn(ctx, txRepo); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback after error %v: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

type queryer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pick(pool *pgxpool.Pool, tx pgx.Tx) queryer {
	if tx != nil {
		return tx
	}
	return pool
}

// atomically runs fn in tx when one is open, or in a fresh transaction.
func atomically(ctx context.Context, pool *pgxpool.Pool, tx pgx.Tx, fn func(queryer) error) error {
	if tx != nil {
		return fn(tx)
	}
	return pgx.BeginFunc(ctx, pool, func(tx pgx.Tx) error {
		return fn(tx)
	})
}
