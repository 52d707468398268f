package physio

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicflow/internal/platform/apierror"
	"github.com/ehr/clinicflow/internal/platform/auth"
	"github.com/ehr/clinicflow/internal/platform/versioning"
	"github.com/ehr/clinicflow/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(auth.RolePhysiotherapist, auth.RolePhysician, auth.RoleNurse, auth.RoleRegistrar))
	readGroup.GET("/evaluations", h.ListEvaluations)
	readGroup.GET("/evaluations/:id", h.GetEvaluation)
	readGroup.GET("/treatment-plans", h.ListPlans)
	readGroup.GET("/treatment-plans/:id", h.GetPlan)

	writeGroup := api.Group("", auth.RequireRole(auth.RolePhysiotherapist, auth.RolePhysician))
	writeGroup.POST("/evaluations", h.CreateEvaluation)
	writeGroup.PUT("/evaluations/:id", h.UpdateEvaluation)
	writeGroup.POST("/evaluations/:id/close", h.CloseEvaluation)
	writeGroup.POST("/treatment-plans/:id/start", h.StartPlan)
	writeGroup.POST("/treatment-plans/:id/discontinue", h.DiscontinuePlan)
}

// -- Evaluation Handlers --

func (h *Handler) CreateEvaluation(c echo.Context) error {
	var m MedicalRecord
	if err := c.Bind(&m); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateEvaluation(c.Request().Context(), &m); err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, &m, m.UpdatedAt)
	return c.JSON(http.StatusCreated, m)
}

func (h *Handler) GetEvaluation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.GetEvaluation(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, m, m.UpdatedAt)
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) ListEvaluations(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := queryParams(c, "patient_id", "therapist_id", "status")
	items, total, err := h.svc.SearchEvaluations(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return apierror.From(err)
	}
	if items == nil {
		items = []*MedicalRecord{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateEvaluation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	expected, err := versioning.ExpectedVersion(c)
	if err != nil {
		return err
	}
	var in MedicalRecord
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	m, err := h.svc.UpdateEvaluation(c.Request().Context(), id, &in, expected)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, m, m.UpdatedAt)
	return c.JSON(http.StatusOK, m)
}

func (h *Handler) CloseEvaluation(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	m, err := h.svc.CloseEvaluation(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, m)
}

// -- Treatment Plan Handlers --

func (h *Handler) GetPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetPlan(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, p, p.UpdatedAt)
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPlans(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := queryParams(c, "patient_id", "medical_record_id", "status")
	items, total, err := h.svc.SearchPlans(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return apierror.From(err)
	}
	if items == nil {
		items = []*TreatmentPlan{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) StartPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.StartPlan(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, p)
}

type discontinueRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) DiscontinuePlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req discontinueRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.DiscontinuePlan(c.Request().Context(), id, req.Reason)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, p)
}

func queryParams(c echo.Context, keys ...string) map[string]string {
	params := map[string]string{}
	for _, k := range keys {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	return params
}
