package order

import (
	"time"
)

// Object is the topic tag under which order events are appended.
const Object = "order"

// Event types appended alongside order mutations.
const (
	EventCreated   = "order.created"
	EventCancelled = "order.cancelled"
)

type Order struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Status      string    `json:"status"`
	TotalAmount float64   `json:"total_amount"`
	Currency    string    `json:"currency"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
