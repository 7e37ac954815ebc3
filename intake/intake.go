// Package intake turns user-supplied paths (files, directories, glob patterns and
// ZIP archives) into items ready for the store, pairing each image with a
// matching .txt caption when one sits next to it.
package intake

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"imgtagger/store"
)

// MaxFileSize is the largest image accepted (20MB), matching the inline request limit
const MaxFileSize = 20 * 1024 * 1024

// SupportedImageTypes lists the image extensions picked up from disk and archives
var SupportedImageTypes = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".bmp", ".tif", ".tiff"}

var mimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
	".bmp":  "image/bmp",
	".tif":  "image/tiff",
	".tiff": "image/tiff",
}

// Load reads every image reachable from sources.
// Files are de-duplicated by absolute path; the result is in natural filename order.
func Load(sources []string) ([]store.NewItem, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("no image sources provided")
	}

	var items []store.NewItem
	seen := make(map[string]bool)

	for _, source := range sources {
		paths, err := resolveSource(source)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", source, err)
		}

		for _, p := range paths {
			absPath, err := filepath.Abs(p)
			if err != nil {
				return nil, fmt.Errorf("failed to get absolute path for %s: %w", p, err)
			}
			if seen[absPath] {
				continue
			}
			seen[absPath] = true

			if isZipFile(absPath) {
				zipped, err := LoadZip(absPath)
				if err != nil {
					return nil, fmt.Errorf("source %q: %w", source, err)
				}
				items = append(items, zipped...)
				continue
			}

			item, err := loadFile(absPath)
			if err != nil {
				return nil, err
			}
			items = append(items, item)
		}
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("no valid image files found")
	}

	sort.SliceStable(items, func(i, j int) bool {
		return store.NaturalLess(items[i].Name, items[j].Name)
	})

	return items, nil
}

// resolveSource resolves a source to a list of file paths
func resolveSource(source string) ([]string, error) {
	info, err := os.Stat(source)
	if err == nil {
		if info.IsDir() {
			return loadFromDirectory(source)
		}
		if isImageFile(source) || isZipFile(source) {
			return []string{source}, nil
		}
		return nil, fmt.Errorf("not a supported image file: %s", source)
	}

	matches, err := filepath.Glob(source)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("no files found matching: %s", source)
	}

	var paths []string
	for _, match := range matches {
		info, err := os.Stat(match)
		if err != nil {
			continue
		}
		if info.IsDir() {
			dirImages, err := loadFromDirectory(match)
			if err == nil {
				paths = append(paths, dirImages...)
			}
		} else if isImageFile(match) || isZipFile(match) {
			paths = append(paths, match)
		}
	}

	return paths, nil
}

// loadFromDirectory lists the images directly inside dir
func loadFromDirectory(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	var images []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		p := filepath.Join(dir, entry.Name())
		if isImageFile(p) {
			images = append(images, p)
		}
	}

	if len(images) == 0 {
		return nil, fmt.Errorf("no image files found in directory")
	}

	return images, nil
}

func loadFile(p string) (store.NewItem, error) {
	info, err := os.Stat(p)
	if err != nil {
		return store.NewItem{}, fmt.Errorf("failed to access %s: %w", p, err)
	}
	if info.Size() > MaxFileSize {
		return store.NewItem{}, fmt.Errorf("%s exceeds maximum size of 20MB", p)
	}

	data, err := os.ReadFile(p)
	if err != nil {
		return store.NewItem{}, fmt.Errorf("failed to read %s: %w", p, err)
	}

	caption, err := sidecarCaption(p)
	if err != nil {
		return store.NewItem{}, err
	}

	return store.NewItem{
		Name:    filepath.Base(p),
		MIME:    MIMEType(p),
		Data:    data,
		Preview: Describe(data),
		Caption: caption,
	}, nil
}

// sidecarCaption returns the contents of the .txt next to an image whose base
// name matches case-insensitively, or "" when there is none.
func sidecarCaption(imagePath string) (string, error) {
	dir := filepath.Dir(imagePath)
	want := strings.ToLower(baseName(filepath.Base(imagePath)))

	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", nil
	}
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(name), ".txt") {
			continue
		}
		if strings.ToLower(baseName(name)) != want {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return "", fmt.Errorf("failed to read caption %s: %w", name, err)
		}
		return string(data), nil
	}
	return "", nil
}

// LoadZip extracts every image in a ZIP archive, attaching the contents of a
// .txt entry with the same path minus extension (case-insensitive) as its caption.
// Unreadable entries are skipped.
func LoadZip(zipPath string) ([]store.NewItem, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer r.Close()

	return readZip(&r.Reader)
}

func readZip(r *zip.Reader) ([]store.NewItem, error) {
	captions := make(map[string]string)
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !strings.EqualFold(path.Ext(f.Name), ".txt") {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			continue
		}
		captions[strings.ToLower(baseName(f.Name))] = string(data)
	}

	var items []store.NewItem
	for _, f := range r.File {
		if f.FileInfo().IsDir() || !isImageFile(f.Name) || isMetadataEntry(f.Name) {
			continue
		}
		if f.UncompressedSize64 > MaxFileSize {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			continue
		}
		items = append(items, store.NewItem{
			Name:    path.Base(f.Name),
			MIME:    MIMEType(f.Name),
			Data:    data,
			Preview: Describe(data),
			Caption: captions[strings.ToLower(baseName(f.Name))],
		})
	}

	return items, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(io.LimitReader(rc, MaxFileSize+1))
}

// isMetadataEntry reports macOS resource-fork entries that carry image extensions
func isMetadataEntry(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._")
}

// baseName strips the last extension, keeping any directory part
func baseName(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

// isImageFile checks if a file has a supported image extension
func isImageFile(p string) bool {
	ext := strings.ToLower(filepath.Ext(p))
	for _, supported := range SupportedImageTypes {
		if ext == supported {
			return true
		}
	}
	return false
}

func isZipFile(p string) bool {
	return strings.EqualFold(filepath.Ext(p), ".zip")
}

// MIMEType returns the MIME type for an image filename, defaulting to image/png
func MIMEType(name string) string {
	if m, ok := mimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return m
	}
	return "image/png"
}

// FormatSize formats a byte size as a human-readable string
func FormatSize(bytes int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.2f GB", float64(bytes)/GB)
	case bytes >= MB:
		return fmt.Sprintf("%.2f MB", float64(bytes)/MB)
	case bytes >= KB:
		return fmt.Sprintf("%.2f KB", float64(bytes)/KB)
	default:
		return fmt.Sprintf("%d bytes", bytes)
	}
}
