package analysis

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/auth"
	"github.com/MarcoCnrqz/labconriquez/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "operator"))
	g.GET("/analyses", h.ListAnalyses)
	g.GET("/analyses/:id", h.GetAnalysis)
	g.POST("/analyses", h.CreateAnalysis)
	g.PUT("/analyses/:id", h.UpdateAnalysis)
	g.GET("/analyses/:id/results", h.ListResults)
	g.POST("/analyses/:id/results", h.AddResult)
	g.GET("/results/:id", h.GetResult)
	g.PUT("/results/:id", h.UpdateResultValue)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.DELETE("/analyses/:id", h.DeleteAnalysis)
	admin.POST("/analyses/:id/generate", h.GenerateResults)
	admin.DELETE("/results/:id", h.DeleteResult)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrResultNotFound), errors.Is(err, ErrPatientNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateResult):
		return http.StatusConflict
	case errors.Is(err, ErrUnknownReference):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadRequest
	}
}

type createResponse struct {
	Analysis *Analysis `json:"analysis"`
	Results  []*Result `json:"results"`
}

type resultsResponse struct {
	Analysis *Analysis           `json:"analysis"`
	Results  []*ClassifiedResult `json:"results"`
}

type valueRequest struct {
	Value string `json:"value"`
}

func (h *Handler) CreateAnalysis(c echo.Context) error {
	var a Analysis
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	created, err := h.svc.CreateAnalysis(c.Request().Context(), &a)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	if created == nil {
		created = []*Result{}
	}
	return c.JSON(http.StatusCreated, createResponse{Analysis: &a, Results: created})
}

func (h *Handler) GetAnalysis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAnalysis(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "analysis not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAnalyses(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"patient", "template", "laboratory"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchAnalyses(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateAnalysis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var a Analysis
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a.ID = id
	if err := h.svc.UpdateAnalysisDates(c.Request().Context(), &a); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) DeleteAnalysis(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteAnalysis(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GenerateResults(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	created, err := h.svc.GenerateMissingResults(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	if created == nil {
		created = []*Result{}
	}
	return c.JSON(http.StatusOK, created)
}

func (h *Handler) ListResults(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, results, err := h.svc.ListClassifiedResults(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, resultsResponse{Analysis: a, Results: results})
}

func (h *Handler) AddResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var r Result
	if err := c.Bind(&r); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r.AnalysisID = id
	if err := h.svc.AddResult(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) GetResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cr, err := h.svc.ClassifyResult(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, cr)
}

func (h *Handler) UpdateResultValue(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req valueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	cr, err := h.svc.UpdateResultValue(c.Request().Context(), id, req.Value)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, cr)
}

func (h *Handler) DeleteResult(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteResult(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
