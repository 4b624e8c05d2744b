package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"

	"petwiz/internal/domain"
)

// KafkaNotifier publishes transition events to a Kafka topic, keyed by
// appointment id so all events for one appointment land on one partition.
type KafkaNotifier struct {
	writer *kafka.Writer
}

func NewKafkaNotifier(brokers []string, topic string) *KafkaNotifier {
	return &KafkaNotifier{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:  brokers,
			Topic:    topic,
			Balancer: &kafka.Hash{},
		}),
	}
}

type eventPayload struct {
	Event                 string    `json:"event"`
	AppointmentID         string    `json:"appointment_id"`
	OwnerID               string    `json:"owner_id"`
	PetID                 string    `json:"pet_id"`
	VeterinarianID        string    `json:"veterinarian_id"`
	ScheduledAt           time.Time `json:"scheduled_at"`
	Status                string    `json:"status"`
	OriginalAppointmentID *string   `json:"original_appointment_id,omitempty"`
	OccurredAt            time.Time `json:"occurred_at"`
}

func (n *KafkaNotifier) Notify(ctx context.Context, appt domain.Appointment, event Event) error {
	payload := eventPayload{
		Event:          string(event),
		AppointmentID:  appt.ID.String(),
		OwnerID:        appt.OwnerID,
		PetID:          appt.PetID,
		VeterinarianID: appt.VeterinarianID,
		ScheduledAt:    appt.ScheduledAt,
		Status:         string(appt.Status),
		OccurredAt:     time.Now().UTC(),
	}
	if appt.OriginalAppointmentID != nil {
		s := appt.OriginalAppointmentID.String()
		payload.OriginalAppointmentID = &s
	}

	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	return n.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(appt.ID.String()),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event)},
		},
	})
}

func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}
