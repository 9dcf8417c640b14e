package terminology

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/db"
)

var (
	ErrNotFound  = errors.New("loinc code not found")
	ErrDuplicate = errors.New("loinc number already registered")
	ErrInUse     = errors.New("loinc code is referenced by template properties or results")
)

type loincRepoPG struct{ pool *pgxpool.Pool }

func NewLoincRepoPG(pool *pgxpool.Pool) LoincRepository { return &loincRepoPG{pool: pool} }

const loincCols = `id, loinc_num, short_name, component, property, system, scale_type, created_at`

func (r *loincRepoPG) scanRow(row pgx.Row) (*LoincCode, error) {
	var c LoincCode
	err := row.Scan(&c.ID, &c.LoincNum, &c.ShortName, &c.Component, &c.Property, &c.System,
		&c.ScaleType, &c.CreatedAt)
	return &c, err
}

func (r *loincRepoPG) Create(ctx context.Context, c *LoincCode) error {
	c.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO loinc_code (id, loinc_num, short_name, component, property, system, scale_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at`,
		c.ID, c.LoincNum, c.ShortName, c.Component, c.Property, c.System, c.ScaleType,
	).Scan(&c.CreatedAt)
	return db.MapError(err, nil, ErrDuplicate, nil)
}

func (r *loincRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*LoincCode, error) {
	c, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+loincCols+` FROM loinc_code WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return c, nil
}

func (r *loincRepoPG) GetByNum(ctx context.Context, num string) (*LoincCode, error) {
	c, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+loincCols+` FROM loinc_code WHERE loinc_num = $1`, num))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return c, nil
}

func (r *loincRepoPG) Update(ctx context.Context, c *LoincCode) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE loinc_code SET loinc_num = $2, short_name = $3, component = $4, property = $5,
			system = $6, scale_type = $7
		WHERE id = $1
		RETURNING created_at`,
		c.ID, c.LoincNum, c.ShortName, c.Component, c.Property, c.System, c.ScaleType,
	).Scan(&c.CreatedAt)
	return db.MapError(err, ErrNotFound, ErrDuplicate, nil)
}

func (r *loincRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM loinc_code WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err, nil, nil, ErrInUse)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *loincRepoPG) Search(ctx context.Context, query string, limit, offset int) ([]*LoincCode, int, error) {
	where := ``
	var args []interface{}
	if query != "" {
		where = ` WHERE loinc_num ILIKE $1 OR short_name ILIKE $1 OR component ILIKE $1 OR property ILIKE $1`
		args = append(args, "%"+query+"%")
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM loinc_code`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("loinc count: %w", err)
	}

	n := len(args)
	q := `SELECT ` + loincCols + ` FROM loinc_code` + where +
		fmt.Sprintf(` ORDER BY loinc_num LIMIT $%d OFFSET $%d`, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, q, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("loinc search: %w", err)
	}
	defer rows.Close()
	var results []*LoincCode
	for rows.Next() {
		c, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		results = append(results, c)
	}
	return results, total, rows.Err()
}
