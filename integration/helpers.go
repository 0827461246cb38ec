//go:build integration

package integration

import (
	"os"
	"path/filepath"
	"testing"
)

// TempDBPath creates a temporary database path for testing
func TempDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// TempConfigPath creates a temporary config file path for testing
func TempConfigPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "config.toml")
}

// createTestConfig writes a config file whose paths all live under temp dirs,
// so tests never touch the user's real database or catalog.
func createTestConfig(t *testing.T, dbPath string) string {
	t.Helper()
	configPath := TempConfigPath(t)
	dir := filepath.Dir(dbPath)

	config := `[general]
database_path = "` + dbPath + `"
models_path = "` + filepath.Join(dir, "models.yaml") + `"
export_dir = "` + filepath.Join(dir, "exports") + `"

[benchmark]
temperature = 0.7
max_tokens = 2048

[judge]
model = "xiaomi/mimo-v2-flash:free"
`

	if err := os.WriteFile(configPath, []byte(config), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return configPath
}
