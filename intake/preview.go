package intake

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Describe returns a short preview label such as "1024×768 png · 212.40 KB".
// Undecodable data still gets its size.
func Describe(data []byte) string {
	size := FormatSize(int64(len(data)))
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return size
	}
	return fmt.Sprintf("%d×%d %s · %s", cfg.Width, cfg.Height, format, size)
}
