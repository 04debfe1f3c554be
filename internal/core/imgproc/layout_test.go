package imgproc

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// binaryPage builds an image.Gray with ink (0) rectangles on background (255).
func binaryPage(w, h int, rects ...image.Rectangle) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for _, r := range rects {
		for y := r.Min.Y; y < r.Max.Y; y++ {
			for x := r.Min.X; x < r.Max.X; x++ {
				img.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

func TestAnalyzeLayoutClassifiesByAspectRatio(t *testing.T) {
	// Near-square region -> image block, wide region -> table,
	// moderate region -> text block.
	page := binaryPage(800, 600,
		image.Rect(20, 20, 140, 140),  // 120x120, aspect 1.0
		image.Rect(20, 200, 420, 260), // 400x60, aspect ~6.7
		image.Rect(20, 320, 260, 440), // 240x120, aspect 2.0
	)

	layout := AnalyzeLayout(page)

	require.Len(t, layout.Images, 1)
	assert.Equal(t, Block{X: 20, Y: 20, W: 120, H: 120, Confidence: 0.7}, layout.Images[0])

	require.Len(t, layout.Tables, 1)
	assert.Equal(t, Block{X: 20, Y: 200, W: 400, H: 60, Confidence: 0.6}, layout.Tables[0])

	require.Len(t, layout.TextBlocks, 1)
	assert.Equal(t, Block{X: 20, Y: 320, W: 240, H: 120, Confidence: 0.8}, layout.TextBlocks[0])
}

func TestAnalyzeLayoutIgnoresSmallRegions(t *testing.T) {
	// 50x50 = 2500 px^2, below the minimum block area.
	page := binaryPage(400, 300, image.Rect(10, 10, 60, 60))

	layout := AnalyzeLayout(page)

	assert.Empty(t, layout.Images)
	assert.Empty(t, layout.Tables)
	assert.Empty(t, layout.TextBlocks)
}

func TestAnalyzeLayoutDeterministic(t *testing.T) {
	page := binaryPage(800, 600,
		image.Rect(100, 50, 300, 170),
		image.Rect(350, 50, 480, 180),
		image.Rect(100, 300, 600, 380),
	)

	a := AnalyzeLayout(page)
	b := AnalyzeLayout(page)

	assert.Equal(t, a, b)
}

func TestAnalyzeLayoutBlocksOrderedByPosition(t *testing.T) {
	// Two text blocks; the upper one must come first regardless of extent.
	page := binaryPage(800, 600,
		image.Rect(400, 300, 640, 420),
		image.Rect(20, 20, 260, 140),
	)

	layout := AnalyzeLayout(page)

	require.Len(t, layout.TextBlocks, 2)
	assert.Equal(t, 20, layout.TextBlocks[0].Y)
	assert.Equal(t, 300, layout.TextBlocks[1].Y)
}

func TestAnalyzeLayoutEmptyPage(t *testing.T) {
	page := binaryPage(200, 200)

	layout := AnalyzeLayout(page)

	assert.NotNil(t, layout.Tables)
	assert.NotNil(t, layout.Columns)
	assert.NotNil(t, layout.Images)
	assert.NotNil(t, layout.TextBlocks)
	assert.Empty(t, layout.TextBlocks)
}
