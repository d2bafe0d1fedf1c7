package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnvLine(t *testing.T) {
	tests := []struct {
		line  string
		key   string
		value string
		ok    bool
	}{
		{"KEY=value", "KEY", "value", true},
		{"  KEY = value  ", "KEY", "value", true},
		{`KEY="quoted value"`, "KEY", "quoted value", true},
		{"KEY='single'", "KEY", "single", true},
		{"export KEY=exported", "KEY", "exported", true},
		{"KEY=a=b", "KEY", "a=b", true},
		{"KEY=", "KEY", "", true},
		{"# comment", "", "", false},
		{"", "", "", false},
		{"NOEQUALS", "", "", false},
		{"=value", "", "", false},
	}

	for _, tt := range tests {
		key, value, ok := parseEnvLine(tt.line)
		assert.Equal(t, tt.ok, ok, tt.line)
		assert.Equal(t, tt.key, key, tt.line)
		assert.Equal(t, tt.value, value, tt.line)
	}
}

func TestUnquote(t *testing.T) {
	assert.Equal(t, "x", unquote(`"x"`))
	assert.Equal(t, "x", unquote("'x'"))
	assert.Equal(t, `"x'`, unquote(`"x'`))
	assert.Equal(t, `"`, unquote(`"`))
}

func TestLoadEnvFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"# reminders\nMEDREMINDER_TEST_A=from-file\nMEDREMINDER_TEST_B=\"quoted\"\n"), 0o644))

	t.Setenv("MEDREMINDER_ENV_FILE", path)
	t.Setenv("MEDREMINDER_TEST_A", "from-env")
	t.Setenv("MEDREMINDER_TEST_B", "")
	os.Unsetenv("MEDREMINDER_TEST_B")

	require.NoError(t, LoadEnvFiles())
	assert.Equal(t, "from-env", os.Getenv("MEDREMINDER_TEST_A"), "set variables win")
	assert.Equal(t, "quoted", os.Getenv("MEDREMINDER_TEST_B"))
}

func TestEnvFiles_ExplicitFirst(t *testing.T) {
	t.Setenv("MEDREMINDER_ENV_FILE", "/etc/medreminder.env")
	paths := envFiles()
	require.NotEmpty(t, paths)
	assert.Equal(t, "/etc/medreminder.env", paths[0])
	assert.Contains(t, paths, ".env")
}

func TestResolveEnv(t *testing.T) {
	t.Setenv("MEDREMINDER_SECURITY_JWT_SECRET", "")
	t.Setenv("MEDREMINDER_JWT_SECRET", "")
	t.Setenv("JWT_SECRET", "alias-secret")
	assert.Equal(t, "alias-secret", resolveEnv("MEDREMINDER_SECURITY_JWT_SECRET"))

	t.Setenv("MEDREMINDER_SECURITY_JWT_SECRET", "canonical")
	assert.Equal(t, "canonical", resolveEnv("MEDREMINDER_SECURITY_JWT_SECRET"))

	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("MEDREMINDER_NOTIFY_TELEGRAM_BOT_TOKEN", "")
	assert.Equal(t, "123:abc", resolveEnv("MEDREMINDER_NOTIFY_TELEGRAM_BOT_TOKEN"))

	assert.Equal(t, "", resolveEnv("MEDREMINDER_UNSET_KEY_FOR_TEST"))
}

func TestEnvAliases_CanonicalKeys(t *testing.T) {
	for canonical, aliases := range envAliases {
		assert.Contains(t, canonical, "MEDREMINDER_")
		assert.NotEmpty(t, aliases, canonical)
	}
}
