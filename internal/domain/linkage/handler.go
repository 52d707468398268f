package linkage

import (
	"context"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicflow/internal/domain/physio"
	"github.com/ehr/clinicflow/internal/platform/apierror"
	"github.com/ehr/clinicflow/internal/platform/auth"
	"github.com/ehr/clinicflow/internal/platform/db"
	"github.com/ehr/clinicflow/internal/platform/versioning"
)

type Handler struct {
	svc           *Service
	retryAttempts int
}

// NewHandler builds the handler. retryAttempts bounds how often a completion
// is retried after a version conflict.
func NewHandler(svc *Service, retryAttempts int) *Handler {
	return &Handler{svc: svc, retryAttempts: retryAttempts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	clinical := api.Group("", auth.RequireRole(auth.RolePhysician, auth.RolePhysiotherapist, auth.RoleNurse,
		auth.RoleLabTechnician, auth.RoleRadiologist))
	clinical.POST("/appointments/:id/complete", h.CompleteAppointment)

	readGroup := api.Group("", auth.RequireRole(auth.RolePhysiotherapist, auth.RolePhysician, auth.RoleNurse, auth.RoleRegistrar))
	readGroup.GET("/treatment-plans/:id/next-session", h.NextSession)

	planWrite := api.Group("", auth.RequireRole(auth.RolePhysiotherapist, auth.RolePhysician))
	planWrite.POST("/evaluations/:id/treatment-plan", h.ActivateTreatmentPlan)

	booking := api.Group("", auth.RequireRole(auth.RolePhysiotherapist, auth.RolePhysician, auth.RoleRegistrar))
	booking.POST("/treatment-plans/:id/sessions", h.ScheduleSession)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var out *Completion
	err = db.RetryOnConflict(c.Request().Context(), h.retryAttempts, func(ctx context.Context) error {
		var err error
		out, err = h.svc.CompleteAppointment(ctx, id)
		return err
	})
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, out.Appointment, out.Appointment.UpdatedAt)
	return c.JSON(http.StatusOK, out)
}

func (h *Handler) ActivateTreatmentPlan(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req physio.PlanRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, err := h.svc.ActivateTreatmentPlan(c.Request().Context(), id, &req)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, p, p.UpdatedAt)
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) NextSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	next, err := h.svc.NextSession(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, next)
}

func (h *Handler) ScheduleSession(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in SessionInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	out, err := h.svc.ScheduleSession(c.Request().Context(), id, &in)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, out.Appointment, out.Appointment.UpdatedAt)
	return c.JSON(http.StatusCreated, out)
}
