package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/db"
)

var (
	ErrNotFound    = errors.New("payment not found")
	ErrUnknownUser = errors.New("user does not exist")
)

type paymentRepoPG struct{ pool *pgxpool.Pool }

func NewPaymentRepoPG(pool *pgxpool.Pool) PaymentRepository {
	return &paymentRepoPG{pool: pool}
}

const paymentCols = `id, user_id, paid_on, due_on, status, created_at, updated_at`

func (r *paymentRepoPG) scanRow(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.UserID, &p.PaidOn, &p.DueOn, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *paymentRepoPG) Create(ctx context.Context, p *Payment) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO payment (id, user_id, paid_on, due_on, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.PaidOn, p.DueOn, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, nil, nil, ErrUnknownUser)
}

func (r *paymentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Payment, error) {
	p, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+paymentCols+` FROM payment WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return p, nil
}

func (r *paymentRepoPG) Update(ctx context.Context, p *Payment) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE payment SET user_id = $2, paid_on = $3, due_on = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.UserID, p.PaidOn, p.DueOn, p.Status,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, ErrNotFound, nil, ErrUnknownUser)
}

func (r *paymentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM payment WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *paymentRepoPG) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `
		UPDATE payment SET status = 'OVERDUE', updated_at = NOW()
		WHERE status = 'PENDING' AND due_on < $1`, truncateDay(today))
	if err != nil {
		return 0, fmt.Errorf("mark overdue payments: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *paymentRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Payment, int, error) {
	query := `SELECT ` + paymentCols + ` FROM payment WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM payment WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["user"]; ok {
		query += fmt.Sprintf(` AND user_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND user_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["status"]; ok {
		query += fmt.Sprintf(` AND status = $%d`, idx)
		countQuery += fmt.Sprintf(` AND status = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY due_on DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Payment
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
