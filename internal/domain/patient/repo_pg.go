package patient

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
	ErrNotFound           = errors.New("patient not found")
	ErrUnknownLaboratory  = errors.New("laboratory does not exist")
	ErrDemographicsLocked = errors.New("age and sex cannot change once the patient has analyses")
)

type patientRepoPG struct{ pool *pgxpool.Pool }

func NewPatientRepoPG(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

const patientCols = `id, laboratory_id, name, age, sex, phone, email, created_at, updated_at`

func (r *patientRepoPG) scanRow(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.LaboratoryID, &p.Name, &p.Age, &p.Sex, &p.Phone, &p.Email,
		&p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO patient (id, laboratory_id, name, age, sex, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		p.ID, p.LaboratoryID, p.Name, p.Age, p.Sex, p.Phone, p.Email,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, nil, nil, ErrUnknownLaboratory)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE patient SET laboratory_id = $2, name = $3, age = $4, sex = $5, phone = $6, email = $7,
			updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		p.ID, p.LaboratoryID, p.Name, p.Age, p.Sex, p.Phone, p.Email,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.MapError(err, ErrNotFound, nil, ErrUnknownLaboratory)
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *patientRepoPG) HasAnalyses(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM analysis WHERE patient_id = $1)`, id).Scan(&exists)
	return exists, err
}

func (r *patientRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Patient, int, error) {
	query := `SELECT ` + patientCols + ` FROM patient WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM patient WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["name"]; ok {
		query += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND name ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["laboratory"]; ok {
		query += fmt.Sprintf(` AND laboratory_id = $%d`, idx)
		countQuery += fmt.Sprintf(` AND laboratory_id = $%d`, idx)
		args = append(args, p)
		idx++
	}
	if p, ok := params["sex"]; ok {
		query += fmt.Sprintf(` AND sex = $%d`, idx)
		countQuery += fmt.Sprintf(` AND sex = $%d`, idx)
		args = append(args, p)
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
	var items []*Patient
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}
