package dbx

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsUniqueViolation_Postgres(t *testing.T) {
	dup := &pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"}
	fk := &pgconn.PgError{Code: "23503", ConstraintName: "tasks_owner_id_fkey"}

	assert.True(t, IsUniqueViolation(dup))
	assert.True(t, IsUniqueViolation(fmt.Errorf("db error: %w", dup)))
	assert.Equal(t, "users_email_key", ConstraintName(fmt.Errorf("wrapped: %w", dup)))

	assert.False(t, IsUniqueViolation(fk))
	assert.False(t, IsUniqueViolation(errors.New("duplicate key value violates unique constraint")))
	assert.False(t, IsUniqueViolation(nil))
	assert.Equal(t, "", ConstraintName(errors.New("x")))
}

func TestIsUniqueViolation_SQLite(t *testing.T) {
	db := setupDB(t)
	_, err := db.Exec(`CREATE TABLE labels (v TEXT UNIQUE)`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO labels(v) VALUES ('same')`)
	require.NoError(t, err)

	_, err = db.Exec(`INSERT INTO labels(v) VALUES ('same')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(fmt.Errorf("db error: %w", err)))

	_, err = db.Exec(`INSERT INTO tasks(id, text) VALUES ('a', 'x')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO tasks(id, text) VALUES ('a', 'y')`)
	require.Error(t, err)
	assert.True(t, IsUniqueViolation(err))

	_, err = db.Exec(`INSERT INTO missing_table(v) VALUES ('x')`)
	require.Error(t, err)
	assert.False(t, IsUniqueViolation(err))
}
