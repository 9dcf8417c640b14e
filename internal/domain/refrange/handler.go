package refrange

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/MarcoCnrqz/labconriquez/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	read := api.Group("", auth.RequireRole("admin", "operator"))
	read.GET("/properties/:id/intervals", h.ListIntervals)
	read.GET("/properties/:id/intervals/resolve", h.ResolveInterval)
	read.GET("/intervals/:id", h.GetInterval)

	write := api.Group("", auth.RequireRole("admin"))
	write.POST("/properties/:id/intervals", h.CreateInterval)
	write.PUT("/intervals/:id", h.UpdateInterval)
	write.DELETE("/intervals/:id", h.DeleteInterval)
}

type resolveResponse struct {
	Cohort   Cohort    `json:"cohort"`
	Interval *Interval `json:"interval"`
}

func (h *Handler) CreateInterval(c echo.Context) error {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}
	var iv Interval
	if err := c.Bind(&iv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	iv.PropertyID = propertyID
	if err := h.svc.CreateInterval(c.Request().Context(), &iv); err != nil {
		if errors.Is(err, ErrPropertyNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, iv)
}

func (h *Handler) ListIntervals(c echo.Context) error {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}
	items, err := h.svc.ListIntervals(c.Request().Context(), propertyID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if items == nil {
		items = []*Interval{}
	}
	return c.JSON(http.StatusOK, items)
}

func (h *Handler) ResolveInterval(c echo.Context) error {
	propertyID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid property id")
	}
	age, err := strconv.Atoi(c.QueryParam("age"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "age must be an integer")
	}
	sex := Sex(c.QueryParam("sex"))
	iv, err := h.svc.ResolveFor(c.Request().Context(), propertyID, age, sex)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, resolveResponse{Cohort: Classify(age), Interval: iv})
}

func (h *Handler) GetInterval(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	iv, err := h.svc.GetInterval(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "reference interval not found")
	}
	return c.JSON(http.StatusOK, iv)
}

func (h *Handler) UpdateInterval(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var iv Interval
	if err := c.Bind(&iv); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	iv.ID = id
	if err := h.svc.UpdateInterval(c.Request().Context(), &iv); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, iv)
}

func (h *Handler) DeleteInterval(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteInterval(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
