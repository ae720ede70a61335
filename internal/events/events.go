// Package events publishes pickup lifecycle events to Kafka.
package events

import (
	"encoding/json"
	"time"
)

const (
	EventPickupSubmitted     = "PickupSubmitted"
	EventPickupStatusChanged = "PickupStatusChanged"
	EventTrackAppended       = "TrackAppended"
	EventPointsSettled       = "PointsSettled"
	EventExchangeSubmitted   = "ExchangeSubmitted"
)

// Envelope wraps every event payload.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

type PickupSubmittedPayload struct {
	PickupID    string    `json:"pickup_id"`
	UserID      string    `json:"user_id"`
	QueueNumber int       `json:"queue_number"`
	PickUpDate  time.Time `json:"pick_up_date"`
	ItemCount   int       `json:"item_count"`
}

type PickupStatusChangedPayload struct {
	PickupID string `json:"pickup_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

type TrackAppendedPayload struct {
	PickupID string    `json:"pickup_id"`
	Status   string    `json:"status"`
	At       time.Time `json:"at"`
}

type PointsSettledPayload struct {
	PickupID string `json:"pickup_id"`
	UserID   string `json:"user_id"`
	Points   int    `json:"points"`
}

type ExchangeSubmittedPayload struct {
	TransactionID string `json:"transaction_id"`
	UserID        string `json:"user_id"`
	Nominal       int64  `json:"nominal"`
	PointUsed     int    `json:"point_used"`
}

// Decode unwraps an envelope payload into T.
func Decode[T any](env Envelope) (T, error) {
	var t T
	err := json.Unmarshal(env.Payload, &t)
	return t, err
}
