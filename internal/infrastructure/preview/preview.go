package preview

import (
	"bytes"
	"fmt"
	"io"
	"sort"

	"github.com/disintegration/imaging"

	"github.com/wekeepgrowing/restoration-backend/internal/domain/provider"
)

const jpegQuality = 85

// Generator renders JPEG previews at fixed widths.
type Generator struct {
	widths []int
}

// NewGenerator creates a preview generator. Non-positive widths are ignored.
func NewGenerator(widths []int) *Generator {
	clean := make([]int, 0, len(widths))
	for _, w := range widths {
		if w > 0 {
			clean = append(clean, w)
		}
	}
	sort.Ints(clean)
	return &Generator{widths: clean}
}

// Generate decodes src once and returns one preview per width, smallest first.
// Images narrower than a width are not upscaled.
func (g *Generator) Generate(src io.Reader) ([]provider.Preview, error) {
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	srcWidth := img.Bounds().Dx()

	previews := make([]provider.Preview, 0, len(g.widths))
	for _, width := range g.widths {
		resized := img
		if srcWidth > width {
			resized = imaging.Resize(img, width, 0, imaging.Lanczos)
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(jpegQuality)); err != nil {
			return nil, fmt.Errorf("failed to encode %dpx preview: %w", width, err)
		}
		previews = append(previews, provider.Preview{
			Width:       width,
			ContentType: "image/jpeg",
			Data:        buf.Bytes(),
		})
	}
	return previews, nil
}
