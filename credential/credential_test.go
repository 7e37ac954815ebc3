package credential

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(filepath.Join(t.TempDir(), "nested", "credentials"))
	require.NoError(t, err)
	return s
}

func TestSetGetClear(t *testing.T) {
	s := newStore(t)

	_, err := s.Get()
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Set("  AIzaSyExampleKey123  "))
	key, err := s.Get()
	require.NoError(t, err)
	assert.Equal(t, "AIzaSyExampleKey123", key)

	raw, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "AIzaSy"), "key stored in plain text")

	require.NoError(t, s.Clear())
	_, err = s.Get()
	assert.ErrorIs(t, err, ErrNotFound)

	// clearing twice is fine
	assert.NoError(t, s.Clear())
}

func TestSetRejectsEmpty(t *testing.T) {
	assert.Error(t, newStore(t).Set("   "))
}

func TestCorruptFile(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(s.Path()), 0700))
	require.NoError(t, os.WriteFile(s.Path(), []byte("not base64!!"), 0600))

	_, err := s.Get()
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestObfuscationRoundTrip(t *testing.T) {
	for _, plain := range []string{"k", "a-much-longer-key-than-the-obfuscation-pad-itself"} {
		got, err := reveal(obscure(plain))
		require.NoError(t, err)
		assert.Equal(t, plain, got)
	}
}

func TestResolvePrecedence(t *testing.T) {
	s := newStore(t)
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("GOOGLE_API_KEY", "")

	key, src, err := s.Resolve()
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Equal(t, SourceNone, src)

	require.NoError(t, s.Set("stored"))
	key, src, _ = s.Resolve()
	assert.Equal(t, "stored", key)
	assert.Equal(t, SourceFile, src)

	t.Setenv("GOOGLE_API_KEY", "google")
	key, src, _ = s.Resolve()
	assert.Equal(t, "google", key)
	assert.Equal(t, Source("GOOGLE_API_KEY"), src)

	t.Setenv("GEMINI_API_KEY", "gemini")
	key, _, _ = s.Resolve()
	assert.Equal(t, "gemini", key)
}

func TestMask(t *testing.T) {
	assert.Equal(t, "••••••••1234", Mask("abcdefgh1234"))
	assert.Equal(t, "•••", Mask("abc"))
}
