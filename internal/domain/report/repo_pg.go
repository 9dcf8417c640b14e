package report

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
	ErrNotFound         = errors.New("report not found")
	ErrUnknownReference = errors.New("analysis or user does not exist")
)

type reportRepoPG struct{ pool *pgxpool.Pool }

func NewReportRepoPG(pool *pgxpool.Pool) ReportRepository {
	return &reportRepoPG{pool: pool}
}

const reportCols = `id, analysis_id, generated_by, generated_at`

func (r *reportRepoPG) scanRow(row pgx.Row) (*Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.AnalysisID, &rep.GeneratedBy, &rep.GeneratedAt)
	return &rep, err
}

func (r *reportRepoPG) Create(ctx context.Context, rep *Report) error {
	rep.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO report (id, analysis_id, generated_by)
		VALUES ($1, $2, $3)
		RETURNING generated_at`,
		rep.ID, rep.AnalysisID, rep.GeneratedBy,
	).Scan(&rep.GeneratedAt)
	return db.MapError(err, nil, nil, ErrUnknownReference)
}

func (r *reportRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Report, error) {
	rep, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+reportCols+` FROM report WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return rep, nil
}

func (r *reportRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM report WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *reportRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Report, int, error) {
	query := `SELECT ` + reportCols + ` FROM report WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM report WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["analysis"]; ok {
		query += fmt.Sprintf(` AND analysis_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND analysis_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["generated_by"]; ok {
		query += fmt.Sprintf(` AND generated_by = $%d`, idx)
		countQuery += fmt.Sprintf(` AND generated_by = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY generated_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Report
	for rows.Next() {
		rep, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rep)
	}
	return items, total, rows.Err()
}
