// Package models defines server-side records persisted in the database.
package models

import "time"

// User is a registered account. PasswordHash holds bcrypt output only and
// is never serialized to clients.
type User struct {
	ID           string    `db:"id"`
	Name         string    `db:"name"`
	UserName     string    `db:"username"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}
