package refrange

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *echo.Echo) {
	return NewHandler(newTestService()), echo.New()
}

func TestHandler_CreateInterval(t *testing.T) {
	h, e := newTestHandler()
	prop := uuid.New()
	body := `{"age_cohort":"ADULT","sex":"MALE","min_value":10,"max_value":20}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(prop.String())

	if err := h.CreateInterval(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
	var got Interval
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.PropertyID != prop || got.Min != 10 || got.Max != 20 {
		t.Errorf("unexpected interval: %+v", got)
	}
}

func TestHandler_CreateInterval_Invalid(t *testing.T) {
	h, e := newTestHandler()
	body := `{"age_cohort":"ADULT","min_value":30,"max_value":20}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	err := h.CreateInterval(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %v", err)
	}
}

func TestHandler_ResolveInterval(t *testing.T) {
	h, e := newTestHandler()
	prop := uuid.New()
	ctx := context.Background()
	_ = h.svc.CreateInterval(ctx, &Interval{PropertyID: prop, AgeCohort: CohortSenior, Sex: SexBoth, Min: 10, Max: 16})
	_ = h.svc.CreateInterval(ctx, &Interval{PropertyID: prop, AgeCohort: CohortSenior, Sex: SexFemale, Min: 11, Max: 15})

	req := httptest.NewRequest(http.MethodGet, "/?age=70&sex=FEMALE", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(prop.String())

	if err := h.ResolveInterval(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got resolveResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Cohort != CohortSenior {
		t.Errorf("expected SENIOR, got %s", got.Cohort)
	}
	if got.Interval == nil || got.Interval.Min != 11 || got.Interval.Max != 15 {
		t.Errorf("expected [11,15], got %+v", got.Interval)
	}
}

func TestHandler_ResolveInterval_BadAge(t *testing.T) {
	h, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/?age=old&sex=MALE", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if err := h.ResolveInterval(c); err == nil {
		t.Error("expected error")
	}
}

func TestHandler_GetInterval_NotFound(t *testing.T) {
	h, e := newTestHandler()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	err := h.GetInterval(c)
	if he, ok := err.(*echo.HTTPError); !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %v", err)
	}
}

func TestHandler_DeleteInterval(t *testing.T) {
	h, e := newTestHandler()
	iv := &Interval{PropertyID: uuid.New(), AgeCohort: CohortChild, Min: 0, Max: 1}
	_ = h.svc.CreateInterval(context.Background(), iv)

	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodDelete, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(iv.ID.String())
	if err := h.DeleteInterval(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_ListIntervals_Empty(t *testing.T) {
	h, e := newTestHandler()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())
	if err := h.ListIntervals(c); err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("expected empty array, got %s", rec.Body.String())
	}
}
