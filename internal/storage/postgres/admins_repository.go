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

type AdminRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *AdminRepository) Create(ctx context.Context, login, passwordHash string) (admin storage.Admin, err error) {
	defer metrics.RecordQuery("admin_create", time.Now(), &err)

	const query = `
		INSERT INTO admins (login, password)
		VALUES ($1, $2)
		RETURNING id, login, password, created_at
	`
	err = pick(r.pool, r.tx).QueryRow(ctx, query, login, passwordHash).
		Scan(&admin.ID, &admin.Login, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		return storage.Admin{}, fmt.Errorf("create admin: %w", mapError(err))
	}
	return admin, nil
}

func (r *AdminRepository) GetByLogin(ctx context.Context, login string) (admin storage.Admin, err error) {
	defer metrics.RecordQuery("admin_get_by_login", time.Now(), &err)

	const query = `SELECT id, login, password, created_at FROM admins WHERE login = $1`
	err = pick(r.pool, r.tx).QueryRow(ctx, query, login).
		Scan(&admin.ID, &admin.Login, &admin.PasswordHash, &admin.CreatedAt)
	if err != nil {
		return storage.Admin{}, fmt.Errorf("get admin: %w", mapError(err))
	}
	return admin, nil
}
