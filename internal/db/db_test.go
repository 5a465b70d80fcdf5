package db

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMigrationsAreEmbedded(t *testing.T) {
	content, err := fs.ReadFile(migrationsFS, "migrations/001_init.sql")
	require.NoError(t, err)
	stmts := splitStatements(string(content))
	require.NotEmpty(t, stmts)
	require.True(t, strings.HasPrefix(stmts[0], "CREATE EXTENSION IF NOT EXISTS vector"))
	for _, stmt := range stmts {
		require.NotContains(t, stmt, ";")
	}
}

func TestSplitStatementsSkipsBlanks(t *testing.T) {
	require.Equal(t, []string{"SELECT 1", "SELECT 2"}, splitStatements(" SELECT 1;\n\n;SELECT 2;  "))
}
