package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveStatementTimeoutMS_ConfigOverride(t *testing.T) {
	resolved, err := resolveStatementTimeoutMS(Config{StatementTimeoutMS: 45000})
	require.NoError(t, err)
	assert.Equal(t, 45000, resolved)
}

func TestResolveStatementTimeoutMS_ConfigInvalidValue(t *testing.T) {
	_, err := resolveStatementTimeoutMS(Config{StatementTimeoutMS: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of allowed range")
}

func TestResolveStatementTimeoutMS_EnvFallback(t *testing.T) {
	t.Setenv("DB_STATEMENT_TIMEOUT_MS", "12000")

	resolved, err := resolveStatementTimeoutMS(Config{})
	require.NoError(t, err)
	assert.Equal(t, 12000, resolved)
}

func TestResolveStatementTimeoutMS_EnvInvalidValue(t *testing.T) {
	t.Setenv("DB_STATEMENT_TIMEOUT_MS", "invalid")

	_, err := resolveStatementTimeoutMS(Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_STATEMENT_TIMEOUT_MS")
}

func TestAppendStatementTimeout(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"postgres://u:p@h/db", "postgres://u:p@h/db?options=-c%20statement_timeout%3D500"},
		{"postgres://u:p@h/db?sslmode=disable", "postgres://u:p@h/db?sslmode=disable&options=-c%20statement_timeout%3D500"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, appendStatementTimeout(tt.url, 500))
	}
}

func TestEmbeddedMigrationsPresent(t *testing.T) {
	raw, err := migrationFS.ReadFile("migrations/001_wallet_kv.up.sql")
	require.NoError(t, err)
	assert.Contains(t, string(raw), "wallet_kv")
}
