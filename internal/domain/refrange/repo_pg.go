package refrange

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/db"
)

var (
	ErrNotFound         = errors.New("reference interval not found")
	ErrPropertyNotFound = errors.New("property not found")
)

type intervalRepoPG struct{ pool *pgxpool.Pool }

func NewIntervalRepoPG(pool *pgxpool.Pool) IntervalRepository {
	return &intervalRepoPG{pool: pool}
}

const intervalCols = `id, seq, property_id, age_cohort, sex, min_value, max_value, created_at`

func (r *intervalRepoPG) scanRow(row pgx.Row) (*Interval, error) {
	var iv Interval
	err := row.Scan(&iv.ID, &iv.Seq, &iv.PropertyID, &iv.AgeCohort, &iv.Sex,
		&iv.Min, &iv.Max, &iv.CreatedAt)
	return &iv, err
}

func (r *intervalRepoPG) Create(ctx context.Context, iv *Interval) error {
	iv.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO reference_interval (id, property_id, age_cohort, sex, min_value, max_value)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq, created_at`,
		iv.ID, iv.PropertyID, iv.AgeCohort, iv.Sex, iv.Min, iv.Max,
	).Scan(&iv.Seq, &iv.CreatedAt)
	return db.MapError(err, nil, nil, ErrPropertyNotFound)
}

func (r *intervalRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Interval, error) {
	iv, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+intervalCols+` FROM reference_interval WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return iv, nil
}

func (r *intervalRepoPG) Update(ctx context.Context, iv *Interval) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE reference_interval SET age_cohort = $2, sex = $3, min_value = $4, max_value = $5
		WHERE id = $1`,
		iv.ID, iv.AgeCohort, iv.Sex, iv.Min, iv.Max)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *intervalRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM reference_interval WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *intervalRepoPG) ListByProperty(ctx context.Context, propertyID uuid.UUID) ([]*Interval, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+intervalCols+` FROM reference_interval WHERE property_id = $1 ORDER BY seq`, propertyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Interval
	for rows.Next() {
		iv, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, iv)
	}
	return items, rows.Err()
}

func (r *intervalRepoPG) ListByProperties(ctx context.Context, propertyIDs []uuid.UUID) (map[uuid.UUID][]*Interval, error) {
	out := make(map[uuid.UUID][]*Interval, len(propertyIDs))
	if len(propertyIDs) == 0 {
		return out, nil
	}
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+intervalCols+` FROM reference_interval WHERE property_id = ANY($1) ORDER BY property_id, seq`,
		propertyIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		iv, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out[iv.PropertyID] = append(out[iv.PropertyID], iv)
	}
	return out, rows.Err()
}
