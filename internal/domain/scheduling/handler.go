package scheduling

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/clinicflow/internal/domain/department"
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

var (
	readRoles = []string{
		auth.RolePhysician, auth.RolePhysiotherapist, auth.RoleNurse, auth.RoleRegistrar,
		auth.RoleLabTechnician, auth.RoleRadiologist,
	}
	writeRoles = []string{
		auth.RolePhysician, auth.RolePhysiotherapist, auth.RoleNurse, auth.RoleRegistrar,
	}
)

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole(readRoles...))
	readGroup.GET("/appointments", h.ListAppointments)
	readGroup.GET("/appointments/:id", h.GetAppointment)
	readGroup.POST("/department-payloads/resolve", h.ResolvePayload)

	// Clinical staff of every department move their own appointments along.
	transitionGroup := api.Group("", auth.RequireRole(readRoles...))
	transitionGroup.POST("/appointments/:id/transition", h.TransitionAppointment)
	transitionGroup.POST("/appointments/:id/workflow", h.AdvanceWorkflow)

	writeGroup := api.Group("", auth.RequireRole(writeRoles...))
	writeGroup.POST("/appointments", h.CreateAppointment)
	writeGroup.PUT("/appointments/:id", h.UpdateAppointment)

	deleteGroup := api.Group("", auth.RequireRole(auth.RoleRegistrar))
	deleteGroup.DELETE("/appointments/:id", h.DeleteAppointment)
}

func (h *Handler) CreateAppointment(c echo.Context) error {
	var in ScheduleInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.ScheduleAppointment(c.Request().Context(), &in)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, res.Appointment, res.Appointment.UpdatedAt)
	return c.JSON(http.StatusCreated, res)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, a, a.UpdatedAt)
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	params := map[string]string{}
	for _, k := range []string{ParamPatient, ParamDoctor, ParamDepartment, ParamDepartmentCode, ParamStatus, ParamFrom, ParamTo} {
		if v := c.QueryParam(k); v != "" {
			params[k] = v
		}
	}
	items, total, err := h.svc.SearchAppointments(c.Request().Context(), params, pg.Limit, pg.Offset)
	if err != nil {
		return apierror.From(err)
	}
	if items == nil {
		items = []*Appointment{}
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdateAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	expected, err := versioning.ExpectedVersion(c)
	if err != nil {
		return err
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.UpdateAppointment(c.Request().Context(), id, &in, expected)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, res.Appointment, res.Appointment.UpdatedAt)
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) DeleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	override := false
	if v := c.QueryParam("override"); v != "" {
		override, err = strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid override flag")
		}
	}
	if err := h.svc.DeleteAppointment(c.Request().Context(), id, override); err != nil {
		return apierror.From(err)
	}
	return c.NoContent(http.StatusNoContent)
}

type transitionRequest struct {
	Status Status `json:"status"`
}

func (h *Handler) TransitionAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req transitionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Status == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "status is required")
	}
	a, err := h.svc.TransitionAppointment(c.Request().Context(), id, req.Status)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, a, a.UpdatedAt)
	return c.JSON(http.StatusOK, a)
}

type workflowRequest struct {
	Step WorkflowStatus `json:"step"`
}

func (h *Handler) AdvanceWorkflow(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req workflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Step == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "step is required")
	}
	a, err := h.svc.AdvanceWorkflow(c.Request().Context(), id, req.Step)
	if err != nil {
		return apierror.From(err)
	}
	versioning.SetHeaders(c, a, a.UpdatedAt)
	return c.JSON(http.StatusOK, a)
}

type resolveRequest struct {
	AppointmentType string              `json:"appointment_type"`
	DepartmentCode  string              `json:"department_code,omitempty"`
	Data            json.RawMessage     `json:"department_specific_data,omitempty"`
	Existing        *department.Payload `json:"existing,omitempty"`
}

func (h *Handler) ResolvePayload(c echo.Context) error {
	var req resolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	res, err := h.svc.ResolvePayload(req.AppointmentType, req.DepartmentCode, req.Data, req.Existing)
	if err != nil {
		return apierror.From(err)
	}
	return c.JSON(http.StatusOK, res)
}
