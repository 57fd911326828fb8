package models

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskCompleted TaskStatus = "Completed"
)

// Task belongs to exactly one user. Status only moves Pending -> Completed.
type Task struct {
	ID        string     `db:"id"`
	Text      string     `db:"text"`
	Status    TaskStatus `db:"status"`
	OwnerID   string     `db:"owner_id"`
	CreatedAt time.Time  `db:"created_at"`
}
