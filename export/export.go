// Package export writes captioned images back out as image + .txt pairs, either
// into a ZIP archive or a directory.
package export

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"imgtagger/store"
)

// Pair is one exported image and its caption file
type Pair struct {
	ImageName string
	Data      []byte
	TextName  string
	Caption   string
}

// WriteResult contains information about written files
type WriteResult struct {
	FilesWritten []string
	TotalBytes   int64
	Errors       []error
}

// Pairs keeps the items that have a caption, in the given order
func Pairs(items []store.Item) []Pair {
	var out []Pair
	for _, it := range items {
		caption := it.Result()
		if caption == "" {
			continue
		}
		out = append(out, Pair{
			ImageName: it.Name,
			Data:      it.Data,
			TextName:  TextName(it.Name),
			Caption:   caption,
		})
	}
	return out
}

// Select returns the selected items when the selection is non-empty, otherwise all items
func Select(items []store.Item, selected []string) []store.Item {
	if len(selected) == 0 {
		return items
	}
	want := make(map[string]bool, len(selected))
	for _, id := range selected {
		want[id] = true
	}
	var out []store.Item
	for _, it := range items {
		if want[it.ID] {
			out = append(out, it)
		}
	}
	return out
}

// TextName derives the caption filename: the image name minus its extension, plus .txt
func TextName(imageName string) string {
	return strings.TrimSuffix(imageName, filepath.Ext(imageName)) + ".txt"
}

// ArchiveName returns the default archive filename for a given day
func ArchiveName(now time.Time) string {
	return fmt.Sprintf("image-tags-%s.zip", now.Format("2006-01-02"))
}

// WriteZip writes every pair into a ZIP archive on w
func WriteZip(w io.Writer, pairs []Pair) error {
	if len(pairs) == 0 {
		return fmt.Errorf("no captioned images to export")
	}

	zw := zip.NewWriter(w)
	for _, p := range pairs {
		if err := addEntry(zw, p.ImageName, p.Data); err != nil {
			return err
		}
		if err := addEntry(zw, p.TextName, []byte(p.Caption)); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func addEntry(zw *zip.Writer, name string, data []byte) error {
	f, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to add %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}

// WriteZipFile creates path and writes the archive into it
func WriteZipFile(path string, pairs []Pair) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := WriteZip(f, pairs); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// WriteDir writes each pair as two files in dir. Existing files are skipped
// (and reported in Errors) unless overwrite is set.
func WriteDir(dir string, pairs []Pair, overwrite bool) (*WriteResult, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("no captioned images to export")
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &WriteResult{
		FilesWritten: make([]string, 0, len(pairs)*2),
	}

	for _, p := range pairs {
		result.write(filepath.Join(dir, p.ImageName), p.Data, overwrite)
		result.write(filepath.Join(dir, p.TextName), []byte(p.Caption), overwrite)
	}

	return result, nil
}

func (r *WriteResult) write(path string, data []byte, overwrite bool) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			r.Errors = append(r.Errors, fmt.Errorf("file exists: %s (use --overwrite to replace)", path))
			return
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		r.Errors = append(r.Errors, fmt.Errorf("failed to write %s: %w", path, err))
		return
	}
	r.FilesWritten = append(r.FilesWritten, path)
	r.TotalBytes += int64(len(data))
}

// WriteCaption saves a single item's caption as <name>.txt in dir and returns the path
func WriteCaption(dir string, item store.Item) (string, error) {
	caption := item.Result()
	if caption == "" {
		return "", fmt.Errorf("%s has no caption", item.Name)
	}
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	path := filepath.Join(dir, TextName(item.Name))
	if err := os.WriteFile(path, []byte(caption), 0644); err != nil {
		return "", fmt.Errorf("failed to write %s: %w", path, err)
	}
	return path, nil
}
