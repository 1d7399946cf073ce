package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadJSONConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"app": {"SecretKey": "from-json", "PostsPerPage": 5, "AllowedOrigins": ["https://a.example"]},
		"database": {"Driver": "mysql", "DBName": "blog"},
		"media": {"Root": "/srv/media", "UploadMaxMB": 2},
		"session": {"CSRFEnabled": true}
	}`), 0o644))

	var c AppConfig
	require.NoError(t, loadJSONConfig(path, &c))
	assert.Equal(t, "from-json", c.SecretKey)
	assert.Equal(t, 5, c.PostsPerPage)
	assert.Equal(t, []string{"https://a.example"}, c.AllowedOrigins)
	assert.Equal(t, "mysql", c.DBDriver)
	assert.Equal(t, "blog", c.DBName)
	assert.Equal(t, "/srv/media", c.MediaRoot)
	assert.Equal(t, 2, c.UploadMaxMB)
	assert.True(t, c.CSRFEnabled)

	var missing AppConfig
	assert.NoError(t, loadJSONConfig(filepath.Join(t.TempDir(), "nope.json"), &missing))

	bad := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte("{"), 0o644))
	assert.Error(t, loadJSONConfig(bad, &missing))
}

func TestDefaultsAndEnvOverrides(t *testing.T) {
	t.Setenv("POSTS_PER_PAGE", "7")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, ,https://b.example")
	t.Setenv("CSRF_ENABLED", "true")

	c := AppConfig{}
	applyDefaults(&c)
	assert.Equal(t, 10, c.PostsPerPage)
	assert.Equal(t, 20, c.IndexCacheSeconds)
	assert.Equal(t, "/auth/login/", c.LoginURL)
	assert.Equal(t, "sqlite", c.DBDriver)

	applyEnvOverrides(&c)
	assert.Equal(t, 7, c.PostsPerPage)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, c.AllowedOrigins)
	assert.True(t, c.CSRFEnabled)
}

func TestDSN(t *testing.T) {
	c := AppConfig{SQLitePath: "/tmp/y.sqlite3"}
	applyDefaults(&c)
	assert.Equal(t, "/tmp/y.sqlite3?_foreign_keys=on&_busy_timeout=5000", DSN(c))

	c.DBDriver = "mysql"
	c.DBPassword = "pw"
	assert.Equal(t, "root:pw@tcp(127.0.0.1:3306)/yatube?charset=utf8mb4&parseTime=True&loc=Local", DSN(c))

	c.DatabaseURI = "custom"
	assert.Equal(t, "custom", DSN(c))
}

func TestOpenDatabaseRejectsUnknownDriver(t *testing.T) {
	_, err := OpenDatabase("oracle", "x", "silent")
	assert.Error(t, err)
}
