package model

import "time"

// EventAppointmentCompleted — тип события о выполненной записи.
const EventAppointmentCompleted = "appointment.completed"

// OutboxEvent — событие, записанное в той же транзакции, что и изменение данных,
// и ожидающее отправки в брокер.
type OutboxEvent struct {
	ID          int64
	EventID     string
	PartitionID int64
	EventType   string
	AggregateID string
	Payload     []byte
	CreatedAt   time.Time
}

// AppointmentCompleted — полезная нагрузка события EventAppointmentCompleted.
type AppointmentCompleted struct {
	EventID       string `json:"event_id"`
	PartitionID   int64  `json:"partition_id"`
	AppointmentID int64  `json:"appointment_id"`
	EntryID       int64  `json:"entry_id"`
	ClientName    string `json:"client_name"`
	ServiceName   string `json:"service_name"`
	AmountCents   int64  `json:"amount_cents"`
	CompletedOn   string `json:"completed_on"`
}
