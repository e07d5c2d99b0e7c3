package domain

import "github.com/google/uuid"

type DispenseItem struct {
	ID       string `json:"id"`
	Quantity int64  `json:"quantity"`
}

// QueueEntry is a command waiting for the hardware poller. Exactly one of
// Order or Store is set, depending on the queue it was placed on.
type QueueEntry struct {
	ID        uuid.UUID      `json:"id"`
	Order     []DispenseItem `json:"order,omitempty"`
	Store     *Medicine      `json:"store,omitempty"`
	Timestamp int64          `json:"timestamp"`
}
