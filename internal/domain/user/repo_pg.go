package user

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
	ErrNotFound           = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrUnknownLaboratory  = errors.New("laboratory does not exist")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInactive           = errors.New("user account is inactive")
)

type userRepoPG struct{ pool *pgxpool.Pool }

func NewUserRepoPG(pool *pgxpool.Pool) UserRepository {
	return &userRepoPG{pool: pool}
}

const userCols = `u.id, u.name, u.email, u.phone, u.is_active, u.role, COALESCE(u.password_hash, ''),
	ARRAY(SELECT ul.laboratory_id FROM user_laboratory ul WHERE ul.user_id = u.id ORDER BY ul.laboratory_id),
	u.created_at, u.updated_at`

func (r *userRepoPG) scanRow(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.IsActive, &u.Role, &u.PasswordHash,
		&u.LaboratoryIDs, &u.CreatedAt, &u.UpdatedAt)
	return &u, err
}

func (r *userRepoPG) Create(ctx context.Context, u *User) error {
	u.ID = uuid.New()
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		err := db.Conn(ctx, r.pool).QueryRow(ctx, `
			INSERT INTO lab_user (id, name, email, phone, is_active, role, password_hash)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at`,
			u.ID, u.Name, u.Email, u.Phone, u.IsActive, u.Role, u.PasswordHash,
		).Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return db.MapError(err, nil, ErrDuplicateEmail, nil)
		}
		return r.linkLaboratories(ctx, u)
	})
}

func (r *userRepoPG) linkLaboratories(ctx context.Context, u *User) error {
	if _, err := db.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM user_laboratory WHERE user_id = $1`, u.ID); err != nil {
		return err
	}
	if len(u.LaboratoryIDs) == 0 {
		return nil
	}
	_, err := db.Conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO user_laboratory (user_id, laboratory_id)
		SELECT $1, unnest($2::uuid[])
		ON CONFLICT DO NOTHING`, u.ID, u.LaboratoryIDs)
	return db.MapError(err, nil, nil, ErrUnknownLaboratory)
}

func (r *userRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	u, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM lab_user u WHERE u.id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return u, nil
}

func (r *userRepoPG) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+userCols+` FROM lab_user u WHERE lower(u.email) = lower($1)`, email))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return u, nil
}

func (r *userRepoPG) Update(ctx context.Context, u *User) error {
	return db.WithTx(ctx, r.pool, func(ctx context.Context) error {
		err := db.Conn(ctx, r.pool).QueryRow(ctx, `
			UPDATE lab_user SET name = $2, email = $3, phone = $4, is_active = $5, role = $6,
				updated_at = NOW()
			WHERE id = $1
			RETURNING created_at, updated_at`,
			u.ID, u.Name, u.Email, u.Phone, u.IsActive, u.Role,
		).Scan(&u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return db.MapError(err, ErrNotFound, ErrDuplicateEmail, nil)
		}
		return r.linkLaboratories(ctx, u)
	})
}

func (r *userRepoPG) SetPasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE lab_user SET password_hash = $2, updated_at = NOW() WHERE id = $1`, id, hash)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM lab_user WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *userRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*User, int, error) {
	query := `SELECT ` + userCols + ` FROM lab_user u WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM lab_user u WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND u.name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND u.name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["email"]; ok {
		query += fmt.Sprintf(` AND u.email ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND u.email ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["role"]; ok {
		query += fmt.Sprintf(` AND u.role = $%d`, idx)
		countQuery += fmt.Sprintf(` AND u.role = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["laboratory"]; ok {
		clause := fmt.Sprintf(` AND EXISTS (SELECT 1 FROM user_laboratory ul WHERE ul.user_id = u.id AND ul.laboratory_id = $%d)`, idx)
		query += clause
		countQuery += clause
		args = append(args, p)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY u.name LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*User
	for rows.Next() {
		u, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, u)
	}
	return items, total, rows.Err()
}
