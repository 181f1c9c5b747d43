package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chdirTemp runs the test from an empty directory so no stray config.yaml or .env is picked up.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	chdirTemp(t)

	result, err := Load()
	require.NoError(t, err)
	assert.Empty(t, result.Source)
	assert.Equal(t, "8080", result.Config.Server.Port)
	assert.Equal(t, "memory", result.Config.Cache.Type)
	assert.Equal(t, "log", result.Config.Contact.Mail.Type)
	assert.Equal(t, DefaultBodySizeLimit, result.Config.Server.BodySizeLimit)
}

func TestLoad_FromEnvironment(t *testing.T) {
	chdirTemp(t)
	t.Setenv("PORT", "9090")

	result, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9090", result.Config.Server.Port)
}

func TestLoad_ConfigFileWithDefaults(t *testing.T) {
	dir := chdirTemp(t)
	content := `
server:
  port: "${TEST_FOLIO_PORT:-9999}"
contact:
  recipient: "${TEST_FOLIO_RECIPIENT:-inbox@example.com}"
  rate_limit:
    max: 10
resume:
  cache_ttl: 60
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o644))

	t.Run("UseDefaultValue", func(t *testing.T) {
		result, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "config.yaml", result.Source)
		assert.Equal(t, "9999", result.Config.Server.Port)
		assert.Equal(t, "inbox@example.com", result.Config.Contact.Recipient)
		assert.Equal(t, 10, result.Config.Contact.RateLimit.Max)
		assert.Equal(t, 60, result.Config.Contact.RateLimit.Window, "unset keys keep defaults")
		assert.Equal(t, 60, result.Config.Resume.CacheTTL)
	})

	t.Run("OverrideDefaultValue", func(t *testing.T) {
		t.Setenv("TEST_FOLIO_PORT", "1111")
		t.Setenv("TEST_FOLIO_RECIPIENT", "me@example.com")

		result, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "1111", result.Config.Server.Port)
		assert.Equal(t, "me@example.com", result.Config.Contact.Recipient)
	})

	t.Run("EnvBeatsFile", func(t *testing.T) {
		t.Setenv("CONTACT_RATE_LIMIT_MAX", "4")

		result, err := Load()
		require.NoError(t, err)
		assert.Equal(t, 4, result.Config.Contact.RateLimit.Max)
	})
}

func TestLoad_DotEnvFile(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("CONTACT_EMAIL=dotenv@example.com\n"), 0o644))
	// godotenv.Load sets process env; make sure the test cleans it up.
	t.Setenv("CONTACT_EMAIL", "")
	require.NoError(t, os.Unsetenv("CONTACT_EMAIL"))

	result, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "dotenv@example.com", result.Config.Contact.Recipient)
}

func TestLoad_EnvOverridesDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("PORT=7070\n"), 0o644))
	t.Setenv("PORT", "9999")

	result, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9999", result.Config.Server.Port)
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"redis without url", map[string]string{"CACHE_TYPE": "redis"}},
		{"unknown cache type", map[string]string{"CACHE_TYPE": "memcached"}},
		{"smtp without host", map[string]string{"MAIL_TYPE": "smtp"}},
		{"unknown mail type", map[string]string{"MAIL_TYPE": "pigeon"}},
		{"failure rate above one", map[string]string{"MAIL_SIMULATED_FAILURE_RATE": "1.5"}},
		{"zero rate limit", map[string]string{"CONTACT_RATE_LIMIT_MAX": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			chdirTemp(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
		})
	}
}

func TestValidateBodySizeLimit(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		expectError bool
	}{
		{"empty string is valid", "", false},
		{"plain number", "1048576", false},
		{"kilobytes lowercase", "100k", false},
		{"kilobytes with B suffix", "100KB", false},
		{"megabytes uppercase", "10M", false},
		{"whitespace trimmed", "  10M  ", false},
		{"minimum valid (1KB)", "1K", false},
		{"maximum valid (100MB)", "100M", false},

		{"invalid format with letters", "abc", true},
		{"invalid unit", "10X", true},
		{"negative number", "-10M", true},
		{"decimal number", "10.5M", true},
		{"empty unit with B", "10B", true},
		{"below minimum", "100", true},
		{"above maximum", "200M", true},
		{"gigabytes unsupported", "1G", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBodySizeLimit(tt.input)
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
