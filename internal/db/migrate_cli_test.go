package db

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunMigrateCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	var out bytes.Buffer

	require.NoError(t, RunMigrateCommand(&out, []string{"up"}, path))
	assert.Contains(t, out.String(), "schema version: 3 (dirty: false)")

	out.Reset()
	require.NoError(t, RunMigrateCommand(&out, []string{"down"}, path))
	assert.Contains(t, out.String(), "schema version: 2")

	out.Reset()
	require.NoError(t, RunMigrateCommand(&out, []string{"status"}, path))
	assert.Contains(t, out.String(), "schema version: 2")

	out.Reset()
	require.NoError(t, RunMigrateCommand(&out, []string{"force", "3"}, path))
	assert.Contains(t, out.String(), "schema version: 3")
}

func TestRunMigrateCommand_Errors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.db")
	var out bytes.Buffer

	assert.Error(t, RunMigrateCommand(&out, nil, path))
	assert.Contains(t, out.String(), "Usage: landcover migrate")

	assert.NoError(t, RunMigrateCommand(&out, []string{"help"}, path))
	assert.Error(t, RunMigrateCommand(&out, []string{"sideways"}, path))
	assert.Error(t, RunMigrateCommand(&out, []string{"force"}, path))
	assert.Error(t, RunMigrateCommand(&out, []string{"force", "x"}, path))
}
