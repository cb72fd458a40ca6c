package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("missing.json", nil)
	require.NoError(t, err)
	assert.Equal(t, def(), cfg)
}

func TestLoad_Layers(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"),
		[]byte(`{"port":"9000","dslDir":"schemas","dbSchema":"from_json","envFile":"local.env"}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.env"),
		[]byte("JUNCTION_DB_URL=postgres://from-dotenv\nJUNCTION_DB_SCHEMA=from_dotenv\n"), 0o644))
	t.Setenv("JUNCTION_DB_SCHEMA", "from_env")
	t.Cleanup(func() { _ = os.Unsetenv("JUNCTION_DB_URL") }) // выставляется из .env

	cfg, err := Load("config.json", []string{"-auto-migrate", "yes", "-dsl", " plugins "})
	require.NoError(t, err)
	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, "plugins", cfg.DSLDir)
	assert.Equal(t, "postgres://from-dotenv", cfg.DBURL)
	assert.Equal(t, "from_env", cfg.DBSchema)
	assert.True(t, cfg.AutoMigrate)
}

func TestLoad_ConfigFlag(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`{"port":"7000"}`), 0o644))

	cfg, err := Load("config.json", []string{"-config", "other.json"})
	require.NoError(t, err)
	assert.Equal(t, "7000", cfg.Port)
}

func TestLoad_BadJSON(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.json"), []byte(`{`), 0o644))

	_, err := Load("config.json", nil)
	require.Error(t, err)
}
