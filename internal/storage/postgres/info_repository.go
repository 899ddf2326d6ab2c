package postgres

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sp-hack/server/internal/metrics"
	"github.com/sp-hack/server/internal/storage"
)

type InfoRepository struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func (r *InfoRepository) Get(ctx context.Context) (info storage.Info, err error) {
	defer metrics.RecordQuery("info_get", time.Now(), &err)

	const query = `
		SELECT address, city, latitude, longitude, date_start, date_end
		FROM info
		WHERE id = $1
	`
	err = pick(r.pool, r.tx).QueryRow(ctx, query, storage.InfoID).Scan(
		&info.Address,
		&info.City,
		&info.Latitude,
		&info.Longitude,
		&info.DateStart,
		&info.DateEnd,
	)
	if err != nil {
		return storage.Info{}, fmt.Errorf("get info: %w", mapError(err))
	}
	return info, nil
}

func (r *InfoRepository) Upsert(ctx context.Context, info storage.Info) (err error) {
	defer metrics.RecordQuery("info_upsert", time.Now(), &err)

	const query = `
		INSERT INTO info (id, address, city, latitude, longitude, date_start, date_end)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			address = EXCLUDED.address,
			city = EXCLUDED.city,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			date_start = EXCLUDED.date_start,
			date_end = EXCLUDED.date_end
	`
	_, err = pick(r.pool, r.tx).Exec(ctx, query, storage.InfoID,
		info.Address, info.City, info.Latitude, info.Longitude, info.DateStart, info.DateEnd)
	if err != nil {
		return fmt.Errorf("upsert info: %w", err)
	}
	return nil
}

// Update applies the non-nil fields of patch to the info row.
func (r *InfoRepository) Update(ctx context.Context, patch storage.InfoPatch) (err error) {
	defer metrics.RecordQuery("info_update", time.Now(), &err)

	var (
		sets []string
		args = []any{storage.InfoID}
	)
	add := func(column string, value any) {
		args = append(args, value)
		sets = append(sets, column+" = $"+strconv.Itoa(len(args)))
	}
	if patch.Address != nil {
		add("address", *patch.Address)
	}
	if patch.City != nil {
		add("city", *patch.City)
	}
	if patch.Latitude != nil {
		add("latitude", *patch.Latitude)
	}
	if patch.Longitude != nil {
		add("longitude", *patch.Longitude)
	}
	if patch.DateStart != nil {
		add("date_start", *patch.DateStart)
	}
	if patch.DateEnd != nil {
		add("date_end", *patch.DateEnd)
	}

	q := pick(r.pool, r.tx)
	if len(sets) == 0 {
		var exists bool
		if err = q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM info WHERE id = $1)`, storage.InfoID).Scan(&exists); err != nil {
			return fmt.Errorf("update info: %w", err)
		}
		if !exists {
			return fmt.Errorf("update info: %w", storage.ErrNotFound)
		}
		return nil
	}

	tag, err := q.Exec(ctx, "UPDATE info SET "+strings.Join(sets, ", ")+" WHERE id = $1", args...)
	if err != nil {
		return fmt.Errorf("update info: %w", err)
	}
	if err = requireAffected(tag); err != nil {
		return fmt.Errorf("update info: %w", err)
	}
	return nil
}

// Schedule returns the days in chronological order, each with its sections
// ordered by time.
func (r *InfoRepository) Schedule(ctx context.Context) (days []storage.ScheduleDay, err error) {
	defer metrics.RecordQuery("schedule_get", time.Now(), &err)

	const query = `
		SELECT d.id, d.day, s.id, s.name, s.time
		FROM schedule_days d
		LEFT JOIN schedule_day_sections s ON s.schedule_day_id = d.id
		WHERE d.info_id = $1
		ORDER BY d.day, d.id, s.time, s.id
	`
	rows, err := pick(r.pool, r.tx).Query(ctx, query, storage.InfoID)
	if err != nil {
		return nil, fmt.Errorf("get schedule: %w", err)
	}
	defer rows.Close()

	days = []storage.ScheduleDay{}
	for rows.Next() {
		var (
			dayID       string
			day         time.Time
			sectionID   *string
			sectionName *string
			sectionTime *time.Time
		)
		if err = rows.Scan(&dayID, &day, &sectionID, &sectionName, &sectionTime); err != nil {
			return nil, fmt.Errorf("scan schedule: %w", err)
		}
		if len(days) == 0 || days[len(days)-1].ID != dayID {
			days = append(days, storage.ScheduleDay{ID: dayID, Day: day, Sections: []storage.ScheduleSection{}})
		}
		if sectionID != nil {
			current := &days[len(days)-1]
			current.Sections = append(current.Sections, storage.ScheduleSection{
				ID:   *sectionID,
				Name: derefString(sectionName),
				Time: *sectionTime,
			})
		}
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule: %w", err)
	}
	return days, nil
}

// ReplaceSchedule swaps the whole schedule in one transaction so readers
// never observe a partially written schedule.
func (r *InfoRepository) ReplaceSchedule(ctx context.Context, days []storage.ScheduleDay) (err error) {
	defer metrics.RecordQuery("schedule_replace", time.Now(), &err)

	return atomically(ctx, r.pool, r.tx, func(q queryer) error {
		if _, err := q.Exec(ctx, `DELETE FROM schedule_days WHERE info_id = $1`, storage.InfoID); err != nil {
			return fmt.Errorf("clear schedule: %w", err)
		}
		for _, day := range days {
			_, err := q.Exec(ctx,
				`INSERT INTO schedule_days (id, day, info_id) VALUES ($1, $2, $3)`,
				day.ID, day.Day, storage.InfoID,
			)
			if err != nil {
				return fmt.Errorf("insert schedule day: %w", mapError(err))
			}
			for _, section := range day.Sections {
				_, err := q.Exec(ctx,
					`INSERT INTO schedule_day_sections (id, schedule_day_id, name, time) VALUES ($1, $2, $3, $4)`,
					section.ID, day.ID, section.Name, section.Time,
				)
				if err != nil {
					return fmt.Errorf("insert schedule section: %w", mapError(err))
				}
			}
		}
		return nil
	})
}

func derefString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
