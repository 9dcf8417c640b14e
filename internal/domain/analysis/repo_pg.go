package analysis

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
	ErrNotFound         = errors.New("analysis not found")
	ErrResultNotFound   = errors.New("result not found")
	ErrDuplicateResult  = errors.New("analysis already has a result for this property")
	ErrUnknownReference = errors.New("patient, template or loinc code does not exist")
	ErrPatientNotFound  = errors.New("patient not found")
)

type analysisRepoPG struct{ pool *pgxpool.Pool }

func NewAnalysisRepoPG(pool *pgxpool.Pool) AnalysisRepository {
	return &analysisRepoPG{pool: pool}
}

const analysisCols = `id, patient_id, template_id, collected_at, printed_at, created_at`

func (r *analysisRepoPG) scanRow(row pgx.Row) (*Analysis, error) {
	var a Analysis
	err := row.Scan(&a.ID, &a.PatientID, &a.TemplateID, &a.CollectedAt, &a.PrintedAt, &a.CreatedAt)
	return &a, err
}

func (r *analysisRepoPG) Create(ctx context.Context, a *Analysis) error {
	a.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO analysis (id, patient_id, template_id, collected_at, printed_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`,
		a.ID, a.PatientID, a.TemplateID, a.CollectedAt, a.PrintedAt,
	).Scan(&a.CreatedAt)
	return db.MapError(err, nil, nil, ErrUnknownReference)
}

func (r *analysisRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Analysis, error) {
	a, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+analysisCols+` FROM analysis WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return a, nil
}

func (r *analysisRepoPG) UpdateDates(ctx context.Context, a *Analysis) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE analysis SET collected_at = $2, printed_at = $3
		WHERE id = $1
		RETURNING patient_id, template_id, created_at`,
		a.ID, a.CollectedAt, a.PrintedAt,
	).Scan(&a.PatientID, &a.TemplateID, &a.CreatedAt)
	return db.MapError(err, ErrNotFound, nil, nil)
}

func (r *analysisRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM analysis WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *analysisRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Analysis, int, error) {
	query := `SELECT ` + analysisCols + ` FROM analysis WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM analysis WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["patient"]; ok {
		query += fmt.Sprintf(` AND patient_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND patient_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["template"]; ok {
		query += fmt.Sprintf(` AND template_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND template_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["laboratory"]; ok {
		clause := fmt.Sprintf(` AND patient_id IN (SELECT id FROM patient WHERE laboratory_id = $%d)`, idx)
		query += clause
		countQuery += clause
		args = append(args, p)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Analysis
	for rows.Next() {
		a, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

type resultRepoPG struct{ pool *pgxpool.Pool }

func NewResultRepoPG(pool *pgxpool.Pool) ResultRepository {
	return &resultRepoPG{pool: pool}
}

const resultCols = `id, analysis_id, property_name, loinc_code_id, unit, value, created_at, updated_at`

func (r *resultRepoPG) scanRow(row pgx.Row) (*Result, error) {
	var res Result
	err := row.Scan(&res.ID, &res.AnalysisID, &res.PropertyName, &res.LoincCodeID, &res.Unit,
		&res.Value, &res.CreatedAt, &res.UpdatedAt)
	return &res, err
}

func (r *resultRepoPG) Create(ctx context.Context, res *Result) error {
	res.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO analysis_result (id, analysis_id, property_name, loinc_code_id, unit, value)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`,
		res.ID, res.AnalysisID, res.PropertyName, res.LoincCodeID, res.Unit, res.Value,
	).Scan(&res.CreatedAt, &res.UpdatedAt)
	return db.MapError(err, nil, ErrDuplicateResult, ErrUnknownReference)
}

func (r *resultRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Result, error) {
	res, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+resultCols+` FROM analysis_result WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrResultNotFound, nil, nil)
	}
	return res, nil
}

func (r *resultRepoPG) UpdateValue(ctx context.Context, id uuid.UUID, value string) (*Result, error) {
	res, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE analysis_result SET value = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING `+resultCols, id, value))
	if err != nil {
		return nil, db.MapError(err, ErrResultNotFound, nil, nil)
	}
	return res, nil
}

func (r *resultRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM analysis_result WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrResultNotFound
	}
	return nil
}

func (r *resultRepoPG) ListByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]*Result, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+resultCols+` FROM analysis_result WHERE analysis_id = $1 ORDER BY created_at, property_name`,
		analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Result
	for rows.Next() {
		res, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, res)
	}
	return items, rows.Err()
}

func (r *resultRepoPG) ExistingNames(ctx context.Context, analysisID uuid.UUID) (map[string]bool, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT property_name FROM analysis_result WHERE analysis_id = $1`, analysisID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names[name] = true
	}
	return names, rows.Err()
}

func (r *resultRepoPG) BulkCreate(ctx context.Context, results []*Result) ([]*Result, error) {
	if len(results) == 0 {
		return nil, nil
	}
	b := &pgx.Batch{}
	for _, res := range results {
		res.ID = uuid.New()
		b.Queue(`
			INSERT INTO analysis_result (id, analysis_id, property_name, loinc_code_id, unit, value)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT ON CONSTRAINT uq_analysis_result_property DO NOTHING
			RETURNING created_at, updated_at`,
			res.ID, res.AnalysisID, res.PropertyName, res.LoincCodeID, res.Unit, res.Value)
	}

	br := db.Conn(ctx, r.pool).SendBatch(ctx, b)
	defer br.Close()

	created := make([]*Result, 0, len(results))
	for _, res := range results {
		err := br.QueryRow().Scan(&res.CreatedAt, &res.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			continue
		}
		if err != nil {
			return nil, db.MapError(err, nil, nil, ErrUnknownReference)
		}
		created = append(created, res)
	}
	if err := br.Close(); err != nil {
		return nil, err
	}
	return created, nil
}
