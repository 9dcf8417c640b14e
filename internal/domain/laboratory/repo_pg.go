package laboratory

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
	ErrNotFound        = errors.New("laboratory not found")
	ErrNoLogo          = errors.New("laboratory has no logo")
	ErrLogoTooLarge    = errors.New("logo exceeds 5 MiB")
	ErrUnsupportedLogo = errors.New("logo must be a PNG, JPEG, GIF or WebP image")
)

type laboratoryRepoPG struct{ pool *pgxpool.Pool }

func NewLaboratoryRepoPG(pool *pgxpool.Pool) LaboratoryRepository {
	return &laboratoryRepoPG{pool: pool}
}

const laboratoryCols = `id, name, city, state, postal_code, country, logo_key, created_at, updated_at`

func (r *laboratoryRepoPG) scanRow(row pgx.Row) (*Laboratory, error) {
	var l Laboratory
	err := row.Scan(&l.ID, &l.Name, &l.City, &l.State, &l.PostalCode, &l.Country, &l.LogoKey,
		&l.CreatedAt, &l.UpdatedAt)
	return &l, err
}

func (r *laboratoryRepoPG) Create(ctx context.Context, l *Laboratory) error {
	l.ID = uuid.New()
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO laboratory (id, name, city, state, postal_code, country)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		l.ID, l.Name, l.City, l.State, l.PostalCode, l.Country,
	).Scan(&l.CreatedAt, &l.UpdatedAt)
}

func (r *laboratoryRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Laboratory, error) {
	l, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+laboratoryCols+` FROM laboratory WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return l, nil
}

func (r *laboratoryRepoPG) Update(ctx context.Context, l *Laboratory) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE laboratory SET name = $2, city = $3, state = $4, postal_code = $5, country = $6,
			updated_at = NOW()
		WHERE id = $1
		RETURNING logo_key, created_at, updated_at`,
		l.ID, l.Name, l.City, l.State, l.PostalCode, l.Country,
	).Scan(&l.LogoKey, &l.CreatedAt, &l.UpdatedAt)
	return db.MapError(err, ErrNotFound, nil, nil)
}

func (r *laboratoryRepoPG) SetLogo(ctx context.Context, id uuid.UUID, key *string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE laboratory SET logo_key = $2, updated_at = NOW() WHERE id = $1`, id, key)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *laboratoryRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM laboratory WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *laboratoryRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Laboratory, int, error) {
	query := `SELECT ` + laboratoryCols + ` FROM laboratory WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM laboratory WHERE 1=1`
	var args []interface{}
	idx := 1

	for _, col := range []string{"name", "city", "state", "country"} {
		p, ok := params[col]
		if !ok {
			continue
		}
		query += fmt.Sprintf(` AND %s ILIKE $%d`, col, idx)
		countQuery += fmt.Sprintf(` AND %s ILIKE $%d`, col, idx)
		args = append(args, "%"+p+"%")
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Laboratory
	for rows.Next() {
		l, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, l)
	}
	return items, total, rows.Err()
}
