package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogPublisher writes each event as a structured log line.
type LogPublisher struct {
	logger zerolog.Logger
}

func NewLogPublisher(logger zerolog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.With().Str("component", "events").Logger()}
}

func (p *LogPublisher) Publish(_ context.Context, evts ...Event) error {
	for _, e := range evts {
		evt := p.logger.Info()
		if e.Type == DeletionWarning {
			evt = p.logger.Warn()
		}
		d := zerolog.Dict()
		for k, v := range e.Attributes {
			d = d.Str(k, v)
		}
		evt.
			Str("event_id", e.ID.String()).
			Str("event_type", string(e.Type)).
			Str("appointment_id", e.AppointmentID.String()).
			Str("department_code", e.DepartmentCode).
			Dict("attributes", d).
			Time("occurred_at", e.OccurredAt).
			Msg("appointment event")
	}
	return nil
}
