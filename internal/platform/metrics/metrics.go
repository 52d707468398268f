package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ehr/clinicflow/internal/domain/department"
)

// ClinicMetrics exposes counters for department resolution, appointment
// transitions and treatment plan progress.
type ClinicMetrics struct {
	fallbackTotal   *prometheus.CounterVec
	rejectedTotal   *prometheus.CounterVec
	transitionTotal *prometheus.CounterVec
	planSessions    *prometheus.CounterVec
	conflictTotal   *prometheus.CounterVec
}

func NewClinicMetrics(reg prometheus.Registerer) *ClinicMetrics {
	m := &ClinicMetrics{
		fallbackTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "department",
			Name:      "fallback_total",
			Help:      "Appointments resolved to the general department because their type or code had no mapping",
		}, []string{"appointment_type", "department_code"}),
		rejectedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "department",
			Name:      "payload_rejected_total",
			Help:      "Department payloads rejected by validation",
		}, []string{"variant", "field"}),
		transitionTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "appointment",
			Name:      "transitions_total",
			Help:      "Appointment status transitions by outcome",
		}, []string{"from", "to", "outcome"}),
		planSessions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "treatment_plan",
			Name:      "sessions_total",
			Help:      "Completed physiotherapy sessions applied to treatment plans",
		}, []string{"result"}),
		conflictTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "clinicflow",
			Subsystem: "store",
			Name:      "concurrent_modification_total",
			Help:      "Versioned writes rejected because the row changed",
		}, []string{"aggregate"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.fallbackTotal, m.rejectedTotal, m.transitionTotal, m.planSessions, m.conflictTotal)
	return m
}

func (m *ClinicMetrics) DepartmentFallback(appointmentType, code string) {
	if m == nil {
		return
	}
	m.fallbackTotal.WithLabelValues(appointmentType, code).Inc()
}

func (m *ClinicMetrics) PayloadRejected(variant department.Variant, field string) {
	if m == nil {
		return
	}
	m.rejectedTotal.WithLabelValues(string(variant), field).Inc()
}

// ObserveTransition records a transition attempt. outcome is "applied",
// "noop" or "rejected".
func (m *ClinicMetrics) ObserveTransition(from, to, outcome string) {
	if m == nil {
		return
	}
	m.transitionTotal.WithLabelValues(from, to, outcome).Inc()
}

// ObservePlanSession records how a completed session affected its plan:
// "counted", "plan_completed" or "skipped".
func (m *ClinicMetrics) ObservePlanSession(result string) {
	if m == nil {
		return
	}
	m.planSessions.WithLabelValues(result).Inc()
}

func (m *ClinicMetrics) ObserveConflict(aggregate string) {
	if m == nil {
		return
	}
	m.conflictTotal.WithLabelValues(aggregate).Inc()
}
