package security

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	require.NoError(t, os.MkdirAll(safeDir, 0o755))
	require.NoError(t, os.MkdirAll(unsafeDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(unsafeDir, "secret.csv"), []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(unsafeDir, filepath.Join(safeDir, "evil-symlink")))

	tests := []struct {
		name     string
		filePath string
		wantErr  bool
	}{
		{"file in root", filepath.Join(safeDir, "area_statistics.json"), false},
		{"nested new file", filepath.Join(safeDir, "plots", "run", "temporal_trends.png"), false},
		{"root itself", safeDir, false},
		{"dot dot", filepath.Join(safeDir, "..", "unsafe", "secret.csv"), true},
		{"sibling", filepath.Join(unsafeDir, "secret.csv"), true},
		{"existing file through symlink", filepath.Join(safeDir, "evil-symlink", "secret.csv"), true},
		{"new file through symlink", filepath.Join(safeDir, "evil-symlink", "new.csv"), true},
		{"absolute elsewhere", "/etc/passwd", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, safeDir)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidatePathWithinDirectoryMissingRoot(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	err := ValidatePathWithinDirectory(filepath.Join(missing, "a.json"), missing)
	assert.ErrorContains(t, err, "failed to resolve safe directory symlinks")
}
