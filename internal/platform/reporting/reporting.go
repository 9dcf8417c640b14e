package reporting

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/auth"
)

// MeasureDefinition defines a dashboard measure with its SQL query. SQL
// placeholders follow the order of Parameters; an absent parameter is bound
// as NULL, which every query treats as "no filter".
type MeasureDefinition struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	SQL         string   `json:"-"`
	Parameters  []string `json:"parameters"`
}

// MeasureReport holds the results of evaluating a measure.
type MeasureReport struct {
	MeasureID   string                   `json:"measure_id"`
	MeasureName string                   `json:"measure_name"`
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []map[string]interface{} `json:"results"`
	Parameters  map[string]string        `json:"parameters,omitempty"`
}

// PredefinedMeasures is the list of available dashboard measures.
var PredefinedMeasures = []MeasureDefinition{
	{
		ID:          "patients-by-sex",
		Name:        "Patients by Sex",
		Description: "Number of registered patients grouped by sex",
		SQL: `SELECT sex, COUNT(*) AS total FROM patient
			WHERE ($1::uuid IS NULL OR laboratory_id = $1)
			GROUP BY sex ORDER BY sex`,
		Parameters: []string{"laboratory"},
	},
	{
		ID:          "analyses-by-template",
		Name:        "Analyses by Template",
		Description: "Number of analyses grouped by template title",
		SQL: `SELECT COALESCE(t.title, '(no template)') AS template, COUNT(*) AS total
			FROM analysis a
			JOIN patient p ON p.id = a.patient_id
			LEFT JOIN template t ON t.id = a.template_id
			WHERE ($1::uuid IS NULL OR p.laboratory_id = $1)
			GROUP BY t.title ORDER BY total DESC`,
		Parameters: []string{"laboratory"},
	},
	{
		ID:          "pending-results",
		Name:        "Pending Results",
		Description: "Results still waiting for a value, grouped by analysis",
		SQL: `SELECT r.analysis_id, p.name AS patient, COUNT(*) AS pending
			FROM analysis_result r
			JOIN analysis a ON a.id = r.analysis_id
			JOIN patient p ON p.id = a.patient_id
			WHERE r.value = '' AND ($1::uuid IS NULL OR p.laboratory_id = $1)
			GROUP BY r.analysis_id, p.name ORDER BY pending DESC`,
		Parameters: []string{"laboratory"},
	},
	{
		ID:          "payments-by-status",
		Name:        "Payments by Status",
		Description: "Number of staff payments grouped by status",
		SQL: `SELECT pay.status, COUNT(*) AS total FROM payment pay
			WHERE ($1::uuid IS NULL OR EXISTS (
				SELECT 1 FROM user_laboratory ul WHERE ul.user_id = pay.user_id AND ul.laboratory_id = $1))
			GROUP BY pay.status ORDER BY pay.status`,
		Parameters: []string{"laboratory"},
	},
}

// Querier is satisfied by *pgxpool.Pool.
type Querier interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

// Handler provides HTTP handlers for the measures API.
type Handler struct {
	db Querier
}

// NewHandler creates a new reporting handler.
func NewHandler(db Querier) *Handler {
	return &Handler{db: db}
}

// RegisterRoutes registers the measures API routes.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/measures", auth.RequireRole("admin"))
	g.GET("", h.ListMeasures)
	g.GET("/:id/evaluate", h.EvaluateMeasure)
}

// ListMeasures returns all available measure definitions.
func (h *Handler) ListMeasures(c echo.Context) error {
	return c.JSON(http.StatusOK, PredefinedMeasures)
}

// EvaluateMeasure executes a measure's SQL and returns the results.
func (h *Handler) EvaluateMeasure(c echo.Context) error {
	measure := FindMeasure(c.Param("id"))
	if measure == nil {
		return echo.NewHTTPError(http.StatusNotFound, "measure not found")
	}

	params := map[string]string{}
	for _, p := range measure.Parameters {
		if v := c.QueryParam(p); v != "" {
			params[p] = v
		}
	}
	args, err := measureArgs(measure, params)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	results, err := h.executeSQL(c.Request().Context(), measure.SQL, args)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, fmt.Sprintf("query failed: %v", err))
	}

	return c.JSON(http.StatusOK, MeasureReport{
		MeasureID:   measure.ID,
		MeasureName: measure.Name,
		GeneratedAt: time.Now().UTC(),
		Results:     results,
		Parameters:  params,
	})
}

// measureArgs binds params in declaration order. Every parameter currently
// names a laboratory, so values must be UUIDs.
func measureArgs(m *MeasureDefinition, params map[string]string) ([]interface{}, error) {
	args := make([]interface{}, len(m.Parameters))
	for i, name := range m.Parameters {
		v, ok := params[name]
		if !ok {
			continue
		}
		id, err := uuid.Parse(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %s", name, v)
		}
		args[i] = id
	}
	return args, nil
}

// executeSQL runs a SQL query and returns results as a slice of maps.
func (h *Handler) executeSQL(ctx context.Context, sql string, args []interface{}) ([]map[string]interface{}, error) {
	rows, err := h.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fieldDescs := rows.FieldDescriptions()
	results := []map[string]interface{}{}

	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(map[string]interface{}, len(fieldDescs))
		for i, fd := range fieldDescs {
			row[fd.Name] = values[i]
		}
		results = append(results, row)
	}
	return results, rows.Err()
}

// FindMeasure looks up a measure by ID.
func FindMeasure(id string) *MeasureDefinition {
	for i := range PredefinedMeasures {
		if PredefinedMeasures[i].ID == id {
			return &PredefinedMeasures[i]
		}
	}
	return nil
}
