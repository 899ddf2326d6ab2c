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

type ApplicationRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

const (
	registerColumns    = `id, created_at, updated_at, answered, fingerprint, command_name, format`
	participantColumns = `id, register_id, first_name, last_name, middle_name, organization,
		date_of_birth, email, phone_number, specialization, stack`
)

func scanRegister(row pgx.Row) (storage.Register, error) {
	var reg storage.Register
	err := row.Scan(
		&reg.ID,
		&reg.CreatedAt,
		&reg.UpdatedAt,
		&reg.Answered,
		&reg.Fingerprint,
		&reg.CommandName,
		&reg.Format,
	)
	reg.Participants = []storage.Participant{}
	return reg, err
}

func (r *ApplicationRepository) Create(ctx context.Context, params storage.RegisterCreateParams) (reg storage.Register, err error) {
	defer metrics.RecordQuery("application_create", time.Now(), &err)

	err = atomically(ctx, r.pool, r.tx, func(q queryer) error {
		var err error
		reg, err = scanRegister(q.QueryRow(ctx, `
			INSERT INTO registers (fingerprint, command_name, format)
			VALUES ($1, $2, $3)
			RETURNING `+registerColumns,
			params.Fingerprint, params.CommandName, params.Format,
		))
		if err != nil {
			return fmt.Errorf("insert register: %w", mapError(err))
		}

		for _, p := range params.Participants {
			err := q.QueryRow(ctx, `
				INSERT INTO participants (register_id, first_name, last_name, middle_name, organization,
					date_of_birth, email, phone_number, specialization, stack)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
				RETURNING id`,
				reg.ID, p.FirstName, p.LastName, p.MiddleName, p.Organization,
				p.DateOfBirth, p.Email, p.PhoneNumber, p.Specialization, p.Stack,
			).Scan(&p.ID)
			if err != nil {
				return fmt.Errorf("insert participant: %w", mapError(err))
			}
			reg.Participants = append(reg.Participants, p)
		}
		return nil
	})
	if err != nil {
		return storage.Register{}, fmt.Errorf("create application: %w", err)
	}
	return reg, nil
}

func (r *ApplicationRepository) List(ctx context.Context) (items []storage.Register, err error) {
	defer metrics.RecordQuery("application_list", time.Now(), &err)

	q := pick(r.pool, r.tx)
	rows, err := q.Query(ctx, `SELECT `+registerColumns+` FROM registers ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	items = []storage.Register{}
	index := map[int64]int{}
	for rows.Next() {
		reg, err := scanRegister(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		index[reg.ID] = len(items)
		items = append(items, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate applications: %w", err)
	}
	rows.Close()

	if len(items) == 0 {
		return items, nil
	}

	err = r.eachParticipant(ctx, q, `SELECT `+participantColumns+` FROM participants ORDER BY register_id, id`, nil,
		func(registerID int64, p storage.Participant) {
			if i, ok := index[registerID]; ok {
				items[i].Participants = append(items[i].Participants, p)
			}
		})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id int64) (reg storage.Register, err error) {
	defer metrics.RecordQuery("application_get", time.Now(), &err)

	q := pick(r.pool, r.tx)
	reg, err = scanRegister(q.QueryRow(ctx, `SELECT `+registerColumns+` FROM registers WHERE id = $1`, id))
	if err != nil {
		return storage.Register{}, fmt.Errorf("get application: %w", mapError(err))
	}

	err = r.eachParticipant(ctx, q, `SELECT `+participantColumns+` FROM participants WHERE register_id = $1 ORDER BY id`, []any{id},
		func(_ int64, p storage.Participant) {
			reg.Participants = append(reg.Participants, p)
		})
	if err != nil {
		return storage.Register{}, err
	}
	return reg, nil
}

func (r *ApplicationRepository) eachParticipant(ctx context.Context, q queryer, query string, args []any, fn func(int64, storage.Participant)) error {
	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("list participants: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			p          storage.Participant
			registerID int64
		)
		if err := rows.Scan(
			&p.ID,
			&registerID,
			&p.FirstName,
			&p.LastName,
			&p.MiddleName,
			&p.Organization,
			&p.DateOfBirth,
			&p.Email,
			&p.PhoneNumber,
			&p.Specialization,
			&p.Stack,
		); err != nil {
			return fmt.Errorf("scan participant: %w", err)
		}
		fn(registerID, p)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate participants: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id int64) (err error) {
	defer metrics.RecordQuery("application_delete", time.Now(), &err)

	tag, err := pick(r.pool, r.tx).Exec(ctx, `DELETE FROM registers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	if err = requireAffected(tag); err != nil {
		return fmt.Errorf("delete application: %w", err)
	}
	return nil
}

func (r *ApplicationRepository) MarkAnswered(ctx context.Context, id int64) (err error) {
	defer metrics.RecordQuery("application_mark_answered", time.Now(), &err)

	tag, err := pick(r.pool, r.tx).Exec(ctx,
		`UPDATE registers SET answered = true, updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark application answered: %w", err)
	}
	if err = requireAffected(tag); err != nil {
		return fmt.Errorf("mark application answered: %w", err)
	}
	return nil
}
