package laboratory

import (
	"errors"
	"fmt"
	"net/http"
	"path"

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
	read := api.Group("", auth.RequireRole("admin", "operator"))
	read.GET("/laboratories", h.ListLaboratories)
	read.GET("/laboratories/:id", h.GetLaboratory)
	read.GET("/laboratories/:id/logo", h.DownloadLogo)

	admin := api.Group("", auth.RequireRole("admin"))
	admin.POST("/laboratories", h.CreateLaboratory)
	admin.PUT("/laboratories/:id", h.UpdateLaboratory)
	admin.DELETE("/laboratories/:id", h.DeleteLaboratory)
	admin.PUT("/laboratories/:id/logo", h.UploadLogo)
	admin.DELETE("/laboratories/:id/logo", h.DeleteLogo)
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrNoLogo):
		return http.StatusNotFound
	case errors.Is(err, ErrLogoTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, ErrUnsupportedLogo):
		return http.StatusUnsupportedMediaType
	default:
		return http.StatusBadRequest
	}
}

func (h *Handler) CreateLaboratory(c echo.Context) error {
	var l Laboratory
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateLaboratory(c.Request().Context(), &l); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, l)
}

func (h *Handler) GetLaboratory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	l, err := h.svc.GetLaboratory(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "laboratory not found")
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) ListLaboratories(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{"name", "city", "state", "country"} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchLaboratories(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateLaboratory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var l Laboratory
	if err := c.Bind(&l); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	l.ID = id
	if err := h.svc.UpdateLaboratory(c.Request().Context(), &l); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DeleteLaboratory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteLaboratory(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadLogo handles a multipart form with a "logo" file field.
func (h *Handler) UploadLogo(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	file, err := c.FormFile("logo")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "logo file is required")
	}
	if file.Size > MaxLogoSize {
		return echo.NewHTTPError(http.StatusRequestEntityTooLarge, ErrLogoTooLarge.Error())
	}
	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to open uploaded file")
	}
	defer src.Close()

	l, err := h.svc.UploadLogo(c.Request().Context(), id, src)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, l)
}

func (h *Handler) DownloadLogo(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rc, obj, err := h.svc.DownloadLogo(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	defer rc.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`inline; filename="%s"`, path.Base(obj.Key)))
	return c.Stream(http.StatusOK, obj.ContentType, rc)
}

func (h *Handler) DeleteLogo(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteLogo(c.Request().Context(), id); err != nil {
		return echo.NewHTTPError(errorStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
