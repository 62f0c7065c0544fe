package database

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRewritePlaceholdersToNumbered(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected string
	}{
		{
			name:     "no placeholders",
			query:    "SELECT 1",
			expected: "SELECT 1",
		},
		{
			name:     "single placeholder",
			query:    "SELECT * FROM attempts WHERE id = ?",
			expected: "SELECT * FROM attempts WHERE id = $1",
		},
		{
			name:     "multiple placeholders",
			query:    "INSERT INTO session_attributes (session_token, name, value) VALUES (?, ?, ?)",
			expected: "INSERT INTO session_attributes (session_token, name, value) VALUES ($1, $2, $3)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, rewritePlaceholdersToNumbered(tt.query))
		})
	}
}

func TestDialectQueryRewriting(t *testing.T) {
	query := "UPDATE attempts SET status = ? WHERE id = ? AND status = ?"

	assert.Equal(t, query, NewSQLiteDialect().RewriteQuery(query))
	assert.Equal(t, query, NewMySQLDialect().RewriteQuery(query))
	assert.Equal(t,
		"UPDATE attempts SET status = $1 WHERE id = $2 AND status = $3",
		NewPostgresDialect().RewriteQuery(query))
}

func TestMigrationsSubdirs(t *testing.T) {
	assert.Equal(t, "sqlite", NewSQLiteDialect().MigrationsSubdir())
	assert.Equal(t, "postgres", NewPostgresDialect().MigrationsSubdir())
	assert.Equal(t, "mysql", NewMySQLDialect().MigrationsSubdir())
}

func TestIsUniqueViolationIgnoresOtherErrors(t *testing.T) {
	for _, d := range []Dialect{NewSQLiteDialect(), NewPostgresDialect(), NewMySQLDialect()} {
		assert.False(t, d.IsUniqueViolation(nil))
		assert.False(t, d.IsUniqueViolation(assert.AnError))
	}
}
