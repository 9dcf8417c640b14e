package terminology

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/auth"
	"github.com/MarcoCnrqz/labconriquez/pkg/pagination"
)

// Handler provides REST endpoints for the LOINC catalogue.
type Handler struct {
	svc *Service
}

// NewHandler creates a new terminology handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers terminology routes. Reading is open to every
// staff role; editing the catalogue is reserved to admins.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "operator"))
	read.GET("/loinc-codes", h.SearchCodes)
	read.GET("/loinc-codes/lookup/:num", h.LookupCode)
	read.GET("/loinc-codes/:id", h.GetCode)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/loinc-codes", h.CreateCode)
	admin.PUT("/loinc-codes/:id", h.UpdateCode)
	admin.DELETE("/loinc-codes/:id", h.DeleteCode)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicate), errors.Is(err, ErrInUse):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

// SearchCodes handles GET /api/v1/loinc-codes?q=...
func (h *Handler) SearchCodes(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.SearchCodes(c.Request().Context(), c.QueryParam("q"), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) LookupCode(c echo.Context) error {
	code, err := h.svc.LookupCode(c.Request().Context(), c.Param("num"))
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, code)
}

func (h *Handler) GetCode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	code, err := h.svc.GetCode(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "loinc code not found")
	}
	return c.JSON(http.StatusOK, code)
}

func (h *Handler) CreateCode(c echo.Context) error {
	var code LoincCode
	if err := c.Bind(&code); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateCode(c.Request().Context(), &code); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, code)
}

func (h *Handler) UpdateCode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var code LoincCode
	if err := c.Bind(&code); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	code.ID = id
	if err := h.svc.UpdateCode(c.Request().Context(), &code); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, code)
}

func (h *Handler) DeleteCode(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteCode(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
