// Package models holds the client-side view of API resources.
package models

import (
	"fmt"
	"time"
)

type Task struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Status    string    `json:"status"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *Task) Completed() bool {
	return t.Status == "Completed"
}

// String renders one listing line: a checkbox, the id and the text.
func (t *Task) String() string {
	mark := " "
	if t.Completed() {
		mark = "x"
	}
	return fmt.Sprintf("[%s] %s  %s", mark, t.ID, t.Text)
}
