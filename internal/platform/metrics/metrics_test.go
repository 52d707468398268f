package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/ehr/clinicflow/internal/domain/department"
)

func TestClinicMetricsCustomRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewClinicMetrics(reg)

	m.DepartmentFallback("dermatology", "MG")
	m.DepartmentFallback("dermatology", "MG")
	m.PayloadRejected(department.VariantImaging, "contrastDose")
	m.ObserveTransition("scheduled", "in_progress", "applied")
	m.ObservePlanSession("counted")
	m.ObserveConflict("treatment_plan")

	if got := testutil.ToFloat64(m.fallbackTotal.WithLabelValues("dermatology", "MG")); got != 2 {
		t.Errorf("expected 2 fallbacks, got %v", got)
	}
	if got := testutil.ToFloat64(m.rejectedTotal.WithLabelValues("imaging", "contrastDose")); got != 1 {
		t.Errorf("expected 1 rejection, got %v", got)
	}
	if n := testutil.CollectAndCount(m.transitionTotal); n != 1 {
		t.Errorf("expected 1 transition series, got %d", n)
	}
}

func TestClinicMetricsImplementsObserver(t *testing.T) {
	var _ department.Observer = NewClinicMetrics(prometheus.NewRegistry())
}

func TestClinicMetricsNilSafe(t *testing.T) {
	var m *ClinicMetrics
	m.DepartmentFallback("x", "MG")
	m.PayloadRejected(department.VariantGeneral, "priority")
	m.ObserveTransition("a", "b", "rejected")
	m.ObservePlanSession("skipped")
	m.ObserveConflict("appointment")
}
