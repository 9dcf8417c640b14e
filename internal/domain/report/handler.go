package report

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MarcoCnrqz/labconriquez/internal/domain/analysis"
	"github.com/MarcoCnrqz/labconriquez/internal/platform/auth"
	"github.com/MarcoCnrqz/labconriquez/pkg/pagination"
)

const mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("", auth.RequireRole("admin", "operator"))
	g.GET("/reports", h.ListReports)
	g.GET("/reports/:id", h.GetReport)
	g.GET("/reports/:id/export", h.ExportReport)
	g.POST("/analyses/:id/reports", h.GenerateReport)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.DELETE("/reports/:id", h.DeleteReport)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, analysis.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrUnknownReference):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) GenerateReport(c echo.Context) error {
	analysisID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid analysis id")
	}
	var generatedBy *uuid.UUID
	if uid, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context())); err == nil {
		generatedBy = &uid
	}
	rep, err := h.svc.GenerateReport(c.Request().Context(), analysisID, generatedBy)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, rep)
}

func (h *Handler) GetReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rep, err := h.svc.GetReport(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, rep)
}

func (h *Handler) ListReports(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"analysis", "generated_by"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchReports(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) ExportReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	out, err := h.svc.Export(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="report-%s.xlsx"`, id))
	return c.Blob(http.StatusOK, mimeXLSX, out)
}

func (h *Handler) DeleteReport(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteReport(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
