package export

import (
	"archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgtagger/store"
)

func captioned(t *testing.T) []store.Item {
	t.Helper()
	s := store.New()
	s.Add(
		store.NewItem{Name: "cat.png", Data: []byte("cat"), Caption: "a cat"},
		store.NewItem{Name: "dog.jpeg", Data: []byte("dog")},
		store.NewItem{Name: "bird.final.webp", Data: []byte("bird"), Caption: "a bird"},
	)
	return s.List()
}

func TestTextName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"cat.png", "cat.txt"},
		{"bird.final.webp", "bird.final.txt"},
		{"noext", "noext.txt"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TextName(tt.in))
	}
}

func TestArchiveName(t *testing.T) {
	day := time.Date(2026, 3, 7, 22, 10, 0, 0, time.UTC)
	assert.Equal(t, "image-tags-2026-03-07.zip", ArchiveName(day))
}

func TestPairsSkipsUncaptioned(t *testing.T) {
	pairs := Pairs(captioned(t))
	require.Len(t, pairs, 2)
	assert.Equal(t, "cat.png", pairs[0].ImageName)
	assert.Equal(t, "cat.txt", pairs[0].TextName)
	assert.Equal(t, "bird.final.txt", pairs[1].TextName)
}

func TestSelect(t *testing.T) {
	items := captioned(t)
	assert.Len(t, Select(items, nil), 3)

	got := Select(items, []string{items[2].ID})
	require.Len(t, got, 1)
	assert.Equal(t, "bird.final.webp", got[0].Name)
}

func TestWriteZip(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteZip(&buf, Pairs(captioned(t))))

	r, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	require.NoError(t, err)

	got := map[string]string{}
	for _, f := range r.File {
		rc, err := f.Open()
		require.NoError(t, err)
		data, _ := io.ReadAll(rc)
		rc.Close()
		got[f.Name] = string(data)
	}
	assert.Equal(t, map[string]string{
		"cat.png":         "cat",
		"cat.txt":         "a cat",
		"bird.final.webp": "bird",
		"bird.final.txt":  "a bird",
	}, got)

	assert.Error(t, WriteZip(&buf, nil))
}

func TestWriteDir(t *testing.T) {
	dir := t.TempDir()
	pairs := Pairs(captioned(t))

	res, err := WriteDir(dir, pairs, false)
	require.NoError(t, err)
	assert.Len(t, res.FilesWritten, 4)
	assert.Empty(t, res.Errors)

	data, err := os.ReadFile(filepath.Join(dir, "cat.txt"))
	require.NoError(t, err)
	assert.Equal(t, "a cat", string(data))

	// second pass refuses to overwrite
	res, err = WriteDir(dir, pairs, false)
	require.NoError(t, err)
	assert.Empty(t, res.FilesWritten)
	assert.Len(t, res.Errors, 4)

	res, err = WriteDir(dir, pairs, true)
	require.NoError(t, err)
	assert.Len(t, res.FilesWritten, 4)
}

func TestWriteCaption(t *testing.T) {
	dir := t.TempDir()
	items := captioned(t)

	path, err := WriteCaption(dir, items[0])
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "cat.txt"), path)

	_, err = WriteCaption(dir, items[1])
	assert.Error(t, err)
}
