package models

import "time"

// QueueStatus is the state of an outbound queue item.
//
//	pending -> in_flight -> synced
//	pending -> in_flight -> pending   (retryable failure, attempts+1)
//	pending -> in_flight -> failed    (attempts reached the ceiling)
type QueueStatus string

const (
	QueuePending  QueueStatus = "pending"
	QueueInFlight QueueStatus = "in_flight"
	QueueSynced   QueueStatus = "synced"
	QueueFailed   QueueStatus = "failed"
)

// QueueItem tracks delivery of one passage, by client id.
type QueueItem struct {
	ClientID      string
	Status        QueueStatus
	Attempts      int
	LastAttemptAt *time.Time
	LastError     string
	SMSSent       bool
	CreatedAt     time.Time
}
