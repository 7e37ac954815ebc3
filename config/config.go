// Package config loads settings from the environment (and an optional .env file).
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"imgtagger/gemini"
	"imgtagger/logging"
)

// Prefix for every environment variable, e.g. IMGTAGGER_CHUNK_SIZE
const Prefix = "IMGTAGGER"

const (
	MinChunkSize = 1
	MaxChunkSize = 100
)

// DefaultSystemInstructions asks for a dense, training-ready description
const DefaultSystemInstructions = `You are a visual analysis engine producing captions for image datasets.

Write exactly one continuous paragraph of 150-400 words describing only what is visible.
Order the description as: primary subject and action, then setting and spatial context,
then medium, lighting, color palette and camera qualities.
Be specific ("tabby cat", not "animal"). Use qualifiers such as "appears to be" when unsure.
Transcribe legible text exactly. Do not use meta phrases like "this image shows" and do not
use emotional or aesthetic judgements.`

// DefaultPrompt is sent after the system instructions
const DefaultPrompt = "Describe this image."

// Config holds every runtime setting
type Config struct {
	Model              string        `envconfig:"MODEL" default:"gemini-3-flash-preview"`
	BaseURL            string        `envconfig:"BASE_URL" default:"https://generativelanguage.googleapis.com/v1beta"`
	SystemInstructions string        `envconfig:"SYSTEM_INSTRUCTIONS"`
	SystemFile         string        `envconfig:"SYSTEM_FILE"`
	Prompt             string        `envconfig:"PROMPT" default:"Describe this image."`
	Thinking           bool          `envconfig:"THINKING" default:"false"`
	ChunkSize          int           `envconfig:"CHUNK_SIZE" default:"5"`
	ChunkDelay         time.Duration `envconfig:"CHUNK_DELAY" default:"500ms"`
	RetryAttempts      int           `envconfig:"RETRY_ATTEMPTS" default:"3"`
	RetryDelay         time.Duration `envconfig:"RETRY_DELAY" default:"2s"`
	Timeout            time.Duration `envconfig:"TIMEOUT" default:"5m"`
	OutputDir          string        `envconfig:"OUTPUT_DIR" default:"."`
	LogLevel           string        `envconfig:"LOG_LEVEL" default:"info"`
	LogFile            string        `envconfig:"LOG_FILE"`
	Debug              bool          `envconfig:"DEBUG" default:"false"`
	CredentialsFile    string        `envconfig:"CREDENTIALS_FILE"`
}

// Load reads envFiles (missing files are ignored; none means ".env"), then the environment.
// Already-set variables win over .env entries.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := new(Config)
	if err := envconfig.Process(Prefix, cfg); err != nil {
		return nil, err
	}
	if _, set := os.LookupEnv(Prefix + "_SYSTEM_INSTRUCTIONS"); !set {
		cfg.SystemInstructions = DefaultSystemInstructions
	}
	if err := cfg.ResolveSystemFile(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ResolveSystemFile replaces SystemInstructions with the contents of SystemFile when set
func (c *Config) ResolveSystemFile() error {
	if c.SystemFile == "" {
		return nil
	}
	data, err := os.ReadFile(c.SystemFile)
	if err != nil {
		return fmt.Errorf("failed to read system instructions: %w", err)
	}
	c.SystemInstructions = strings.TrimSpace(string(data))
	return nil
}

// Validate checks ranges and names
func (c *Config) Validate() error {
	if c.ChunkSize < MinChunkSize || c.ChunkSize > MaxChunkSize {
		return fmt.Errorf("chunk size must be between %d and %d, got %d", MinChunkSize, MaxChunkSize, c.ChunkSize)
	}
	if c.RetryAttempts < 1 {
		return fmt.Errorf("retry attempts must be at least 1, got %d", c.RetryAttempts)
	}
	if c.ChunkDelay < 0 || c.RetryDelay < 0 {
		return fmt.Errorf("delays must not be negative")
	}
	if strings.TrimSpace(c.Prompt) == "" {
		return fmt.Errorf("prompt must not be empty")
	}
	if strings.TrimSpace(c.Model) == "" {
		c.Model = gemini.DefaultModel
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Usage writes a table of the recognised environment variables to out
func Usage(out io.Writer) error {
	return envconfig.Usagef(Prefix, new(Config), out, envconfig.DefaultTableFormat)
}
