package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, kv := range os.Environ() {
		key, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(key, Prefix+"_") {
			t.Setenv(key, "")
			os.Unsetenv(key)
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "gemini-3-flash-preview", cfg.Model)
	assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.BaseURL)
	assert.Equal(t, 5, cfg.ChunkSize)
	assert.Equal(t, 500*time.Millisecond, cfg.ChunkDelay)
	assert.Equal(t, 3, cfg.RetryAttempts)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, 5*time.Minute, cfg.Timeout)
	assert.Equal(t, DefaultPrompt, cfg.Prompt)
	assert.Equal(t, DefaultSystemInstructions, cfg.SystemInstructions)
	assert.False(t, cfg.Thinking)
}

func TestLoadFromEnvFile(t *testing.T) {
	clearEnv(t)

	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("IMGTAGGER_CHUNK_SIZE=8\nIMGTAGGER_MODEL=gemini-flash-latest\nIMGTAGGER_SYSTEM_INSTRUCTIONS=\nIMGTAGGER_CHUNK_DELAY=3s\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("IMGTAGGER_CHUNK_SIZE")
		os.Unsetenv("IMGTAGGER_MODEL")
		os.Unsetenv("IMGTAGGER_SYSTEM_INSTRUCTIONS")
	})

	// a variable already in the environment beats the file
	t.Setenv("IMGTAGGER_CHUNK_DELAY", "1s")

	cfg, err := Load(envFile)
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.ChunkSize)
	assert.Equal(t, "gemini-flash-latest", cfg.Model)
	assert.Equal(t, time.Second, cfg.ChunkDelay)
	assert.Empty(t, cfg.SystemInstructions)
}

func TestSystemFile(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "system.txt")
	require.NoError(t, os.WriteFile(path, []byte("  Tag for a dataset.\n"), 0644))
	t.Setenv("IMGTAGGER_SYSTEM_FILE", path)

	cfg, err := Load(filepath.Join(t.TempDir(), "none.env"))
	require.NoError(t, err)
	assert.Equal(t, "Tag for a dataset.", cfg.SystemInstructions)

	t.Setenv("IMGTAGGER_SYSTEM_FILE", filepath.Join(t.TempDir(), "missing.txt"))
	_, err = Load(filepath.Join(t.TempDir(), "none.env"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{Model: "m", Prompt: "p", ChunkSize: 5, RetryAttempts: 3, LogLevel: "info"}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"chunk zero", func(c *Config) { c.ChunkSize = 0 }, true},
		{"chunk too big", func(c *Config) { c.ChunkSize = MaxChunkSize + 1 }, true},
		{"no attempts", func(c *Config) { c.RetryAttempts = 0 }, true},
		{"negative delay", func(c *Config) { c.ChunkDelay = -time.Second }, true},
		{"empty prompt", func(c *Config) { c.Prompt = " " }, true},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	c := valid()
	c.Model = ""
	require.NoError(t, c.Validate())
	assert.Equal(t, "gemini-3-flash-preview", c.Model)
}

func TestUsage(t *testing.T) {
	var buf strings.Builder
	require.NoError(t, Usage(&buf))

	out := buf.String()
	for _, name := range []string{"IMGTAGGER_MODEL", "IMGTAGGER_CHUNK_SIZE", "IMGTAGGER_BASE_URL", "IMGTAGGER_OUTPUT_DIR"} {
		assert.Contains(t, out, name)
	}
}
