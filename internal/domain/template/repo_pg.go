package template

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
	ErrNotFound          = errors.New("template not found")
	ErrDuplicateTitle    = errors.New("a template with this title already exists")
	ErrInUse             = errors.New("template is referenced by analyses")
	ErrPropertyNotFound  = errors.New("property not found")
	ErrDuplicateProperty = errors.New("template already has a property with this name")
	ErrUnknownReference  = errors.New("template or loinc code does not exist")
)

type templateRepoPG struct{ pool *pgxpool.Pool }

func NewTemplateRepoPG(pool *pgxpool.Pool) TemplateRepository {
	return &templateRepoPG{pool: pool}
}

const templateCols = `id, title, format, default_justified_text, created_at, updated_at`

func (r *templateRepoPG) scanRow(row pgx.Row) (*Template, error) {
	var t Template
	err := row.Scan(&t.ID, &t.Title, &t.Format, &t.DefaultJustifiedText, &t.CreatedAt, &t.UpdatedAt)
	return &t, err
}

func (r *templateRepoPG) Create(ctx context.Context, t *Template) error {
	t.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO template (id, title, format, default_justified_text)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`,
		t.ID, t.Title, t.Format, t.DefaultJustifiedText,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return db.MapError(err, nil, ErrDuplicateTitle, nil)
}

func (r *templateRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	t, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+templateCols+` FROM template WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrNotFound, nil, nil)
	}
	return t, nil
}

func (r *templateRepoPG) Update(ctx context.Context, t *Template) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE template SET title = $2, format = $3, default_justified_text = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING created_at, updated_at`,
		t.ID, t.Title, t.Format, t.DefaultJustifiedText,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	return db.MapError(err, ErrNotFound, ErrDuplicateTitle, nil)
}

func (r *templateRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM template WHERE id = $1`, id)
	if err != nil {
		return db.MapError(err, nil, nil, ErrInUse)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *templateRepoPG) Search(ctx context.Context, params map[string]string, limit, offset int) ([]*Template, int, error) {
	query := `SELECT ` + templateCols + ` FROM template WHERE 1=1`
	countQuery := `SELECT COUNT(*) FROM template WHERE 1=1`
	var args []interface{}
	idx := 1

	if p, ok := params["title"]; ok {
		query += fmt.Sprintf(` AND title ILIKE $%d`, idx)
		countQuery += fmt.Sprintf(` AND title ILIKE $%d`, idx)
		args = append(args, "%"+p+"%")
		idx++
	}
	if p, ok := params["format"]; ok {
		query += fmt.Sprintf(` AND format = $%d`, idx)
		countQuery += fmt.Sprintf(` AND format = $%d`, idx)
		args = append(args, p)
		idx++
	}

	var total int
	if err := db.Conn(ctx, r.pool).QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query += fmt.Sprintf(` ORDER BY title LIMIT $%d OFFSET $%d`, idx, idx+1)
	args = append(args, limit, offset)

	rows, err := db.Conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Template
	for rows.Next() {
		t, err := r.scanRow(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

type propertyRepoPG struct{ pool *pgxpool.Pool }

func NewPropertyRepoPG(pool *pgxpool.Pool) PropertyRepository {
	return &propertyRepoPG{pool: pool}
}

const propertyCols = `id, seq, template_id, name, loinc_code_id, unit, created_at`

func (r *propertyRepoPG) scanRow(row pgx.Row) (*Property, error) {
	var p Property
	err := row.Scan(&p.ID, &p.Seq, &p.TemplateID, &p.Name, &p.LoincCodeID, &p.Unit, &p.CreatedAt)
	return &p, err
}

func (r *propertyRepoPG) Create(ctx context.Context, p *Property) error {
	p.ID = uuid.New()
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO template_property (id, template_id, name, loinc_code_id, unit)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq, created_at`,
		p.ID, p.TemplateID, p.Name, p.LoincCodeID, p.Unit,
	).Scan(&p.Seq, &p.CreatedAt)
	return db.MapError(err, nil, ErrDuplicateProperty, ErrUnknownReference)
}

func (r *propertyRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Property, error) {
	p, err := r.scanRow(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+propertyCols+` FROM template_property WHERE id = $1`, id))
	if err != nil {
		return nil, db.MapError(err, ErrPropertyNotFound, nil, nil)
	}
	return p, nil
}

func (r *propertyRepoPG) Update(ctx context.Context, p *Property) error {
	err := db.Conn(ctx, r.pool).QueryRow(ctx, `
		UPDATE template_property SET name = $2, loinc_code_id = $3, unit = $4
		WHERE id = $1
		RETURNING seq, template_id, created_at`,
		p.ID, p.Name, p.LoincCodeID, p.Unit,
	).Scan(&p.Seq, &p.TemplateID, &p.CreatedAt)
	return db.MapError(err, ErrPropertyNotFound, ErrDuplicateProperty, ErrUnknownReference)
}

func (r *propertyRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := db.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM template_property WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPropertyNotFound
	}
	return nil
}

func (r *propertyRepoPG) ListByTemplate(ctx context.Context, templateID uuid.UUID) ([]*Property, error) {
	rows, err := db.Conn(ctx, r.pool).Query(ctx,
		`SELECT `+propertyCols+` FROM template_property WHERE template_id = $1 ORDER BY seq`, templateID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*Property
	for rows.Next() {
		p, err := r.scanRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
