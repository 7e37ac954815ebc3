// Package credential keeps the Gemini API key on the local machine.
//
// The key is XOR-obfuscated and base64-encoded so it is not stored as plain
// text. This is obfuscation, not encryption.
package credential

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const obfuscationKey = "ImageTaggerPro2024SecureKey"

// EnvVars are checked in order before the stored key
var EnvVars = []string{"GEMINI_API_KEY", "GOOGLE_API_KEY"}

// ErrNotFound is returned when no key has been stored
var ErrNotFound = errors.New("no API key stored")

// Store reads and writes the key file
type Store struct {
	path string
}

// New returns a store backed by path. An empty path uses DefaultPath.
func New(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	return &Store{path: path}, nil
}

// DefaultPath is <user config dir>/imgtagger/credentials
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "imgtagger", "credentials"), nil
}

// Path returns the key file location
func (s *Store) Path() string { return s.path }

// Get returns the stored key, or ErrNotFound
func (s *Store) Get() (string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credentials: %w", err)
	}

	key, err := reveal(strings.TrimSpace(string(data)))
	if err != nil {
		return "", fmt.Errorf("credentials file is corrupt: %w", err)
	}
	if key == "" {
		return "", ErrNotFound
	}
	return key, nil
}

// Set stores key, replacing any previous one
func (s *Store) Set(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("API key is empty")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(s.path, []byte(obscure(key)), 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	return nil
}

// Clear removes the stored key. Clearing an absent key is not an error.
func (s *Store) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove credentials: %w", err)
	}
	return nil
}

// Source says where a resolved key came from
type Source string

const (
	SourceNone Source = ""
	SourceFile Source = "credentials file"
)

// Resolve returns the key from the environment if set, otherwise from the store.
// A missing key is not an error; callers check for "".
func (s *Store) Resolve() (string, Source, error) {
	for _, env := range EnvVars {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v, Source(env), nil
		}
	}
	key, err := s.Get()
	if errors.Is(err, ErrNotFound) {
		return "", SourceNone, nil
	}
	if err != nil {
		return "", SourceNone, err
	}
	return key, SourceFile, nil
}

// Mask hides all but the last four characters of a key
func Mask(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("•", len(key))
	}
	return strings.Repeat("•", 8) + key[len(key)-4:]
}

func xor(data []byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ obfuscationKey[i%len(obfuscationKey)]
	}
	return out
}

func obscure(plain string) string {
	return base64.StdEncoding.EncodeToString(xor([]byte(plain)))
}

func reveal(encoded string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(xor(raw)), nil
}
