package physio

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

func newTestHandler() (*Handler, *mockPlanRepo, *echo.Echo) {
	svc, _, plans := newTestService()
	return NewHandler(svc), plans, echo.New()
}

func httpCode(t *testing.T, err error) int {
	t.Helper()
	var he *echo.HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected *echo.HTTPError, got %T: %v", err, err)
	}
	return he.Code
}

func TestHandler_CreateEvaluation(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patient_id":"` + uuid.New().String() + `","therapist_id":"` + uuid.New().String() + `",
		"vas_score":6,"strength_grade":[{"muscle_group":"gluteus medius","left":3,"right":4}],
		"informed_consent_signed":true}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.CreateEvaluation(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", rec.Code)
	}
}

func TestHandler_CreateEvaluation_OutOfRange(t *testing.T) {
	h, _, e := newTestHandler()
	body := `{"patient_id":"` + uuid.New().String() + `","therapist_id":"` + uuid.New().String() + `","roland_morris_score":30}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if code := httpCode(t, h.CreateEvaluation(c)); code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", code)
	}
}

func TestHandler_GetEvaluation_NotFound(t *testing.T) {
	h, _, e := newTestHandler()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(uuid.New().String())

	if code := httpCode(t, h.GetEvaluation(c)); code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", code)
	}
}

func TestHandler_StartPlan(t *testing.T) {
	h, plans, e := newTestHandler()
	p := seedPlan(plans, PlanIndicated)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if err := h.StartPlan(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"status":"active"`) {
		t.Errorf("expected active plan, got %s", rec.Body.String())
	}
}

func TestHandler_DiscontinuePlan_Closed(t *testing.T) {
	h, plans, e := newTestHandler()
	p := seedPlan(plans, PlanCompleted)

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"reason":"late"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	if code := httpCode(t, h.DiscontinuePlan(c)); code != http.StatusConflict {
		t.Errorf("expected 409, got %d", code)
	}
}

func TestHandler_ListPlans(t *testing.T) {
	h, plans, e := newTestHandler()
	seedPlan(plans, PlanActive)

	req := httptest.NewRequest(http.MethodGet, "/?status=active", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ListPlans(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(rec.Body.String(), `"total":1`) {
		t.Errorf("expected one plan, got %s", rec.Body.String())
	}
}

func TestHandler_UpdateEvaluation_BadIfMatch(t *testing.T) {
	h, _, e := newTestHandler()
	m := &MedicalRecord{PatientID: uuid.New(), TherapistID: uuid.New()}
	h.svc.CreateEvaluation(context.Background(), m)

	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("If-Match", "banana")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(m.ID.String())

	if code := httpCode(t, h.UpdateEvaluation(c)); code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", code)
	}
}
