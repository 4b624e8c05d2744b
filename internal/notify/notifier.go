// Package notify delivers appointment transition events to external
// channels. The scheduling engine guarantees at-least-once invocation
// per transition and does not retry on failure.
package notify

import (
	"context"
	"log/slog"

	"petwiz/internal/domain"
)

type Event string

const (
	EventConfirmed   Event = "appointment.confirmed"
	EventRejected    Event = "appointment.rejected"
	EventCancelled   Event = "appointment.cancelled"
	EventCompleted   Event = "appointment.completed"
	EventRescheduled Event = "appointment.rescheduled"
)

type Notifier interface {
	Notify(ctx context.Context, appt domain.Appointment, event Event) error
}

// LogNotifier writes transition events to the log. It is the default
// when no delivery channel is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	if log == nil {
		log = slog.Default()
	}
	return &LogNotifier{log: log.With(slog.String("component", "notify.log"))}
}

func (n *LogNotifier) Notify(ctx context.Context, appt domain.Appointment, event Event) error {
	n.log.Info("appointment event",
		slog.String("event", string(event)),
		slog.String("appointment_id", appt.ID.String()),
		slog.String("owner_id", appt.OwnerID),
		slog.String("veterinarian_id", appt.VeterinarianID),
		slog.String("status", string(appt.Status)),
		slog.Time("scheduled_at", appt.ScheduledAt),
	)
	return nil
}
