package imgproc

import (
	"image"
	"sort"
)

// Layout classification thresholds. Blocks smaller than minBlockArea are
// ignored; aspect ratio decides the class of the rest.
const (
	minBlockArea      = 10000
	imageAspectLow    = 0.8
	imageAspectHigh   = 1.2
	tableAspect       = 3.0
	imageConfidence   = 0.7
	tableConfidence   = 0.6
	textConfidence    = 0.8
	inkThreshold      = 128
)

// Block is a classified rectangular region of the page.
type Block struct {
	X          int     `json:"x"`
	Y          int     `json:"y"`
	W          int     `json:"w"`
	H          int     `json:"h"`
	Confidence float64 `json:"confidence"`
}

// LayoutInfo groups the classified blocks of a page. It is best-effort
// structural hinting derived from fixed heuristics, not ground truth.
type LayoutInfo struct {
	Tables     []Block `json:"tables"`
	Columns    []Block `json:"columns"`
	Images     []Block `json:"images"`
	TextBlocks []Block `json:"text_blocks"`
}

// AnalyzeLayout finds connected ink regions in a binarized image and
// classifies their bounding boxes by area and aspect ratio. Blocks are
// emitted in (Y, X) order so the output is deterministic for a given input.
func AnalyzeLayout(bin *image.Gray) LayoutInfo {
	layout := LayoutInfo{
		Tables:     []Block{},
		Columns:    []Block{},
		Images:     []Block{},
		TextBlocks: []Block{},
	}

	boxes := findRegions(bin)
	sort.Slice(boxes, func(i, j int) bool {
		if boxes[i].Min.Y != boxes[j].Min.Y {
			return boxes[i].Min.Y < boxes[j].Min.Y
		}
		return boxes[i].Min.X < boxes[j].Min.X
	})

	for _, box := range boxes {
		w := box.Dx()
		h := box.Dy()
		if w*h < minBlockArea || h == 0 {
			continue
		}

		block := Block{X: box.Min.X, Y: box.Min.Y, W: w, H: h}
		aspect := float64(w) / float64(h)

		switch {
		case aspect > imageAspectLow && aspect < imageAspectHigh:
			block.Confidence = imageConfidence
			layout.Images = append(layout.Images, block)
		case aspect > tableAspect:
			block.Confidence = tableConfidence
			layout.Tables = append(layout.Tables, block)
		default:
			block.Confidence = textConfidence
			layout.TextBlocks = append(layout.TextBlocks, block)
		}
	}

	return layout
}

// findRegions labels connected components of ink pixels (4-connectivity)
// and returns their bounding boxes.
func findRegions(bin *image.Gray) []image.Rectangle {
	bounds := bin.Bounds()
	w := bounds.Dx()
	h := bounds.Dy()
	if w == 0 || h == 0 {
		return nil
	}

	visited := make([]bool, w*h)
	var boxes []image.Rectangle

	// Scanning order is fixed, so component discovery order is too.
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if visited[y*w+x] || !isInk(bin, bounds, x, y) {
				continue
			}

			// Flood fill from (x, y) tracking the component's extent.
			box := image.Rect(x, y, x+1, y+1)
			stack := []image.Point{{X: x, Y: y}}
			visited[y*w+x] = true

			for len(stack) > 0 {
				p := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				box = box.Union(image.Rect(p.X, p.Y, p.X+1, p.Y+1))

				for _, n := range [4]image.Point{
					{X: p.X + 1, Y: p.Y},
					{X: p.X - 1, Y: p.Y},
					{X: p.X, Y: p.Y + 1},
					{X: p.X, Y: p.Y - 1},
				} {
					if n.X < 0 || n.Y < 0 || n.X >= w || n.Y >= h {
						continue
					}
					if visited[n.Y*w+n.X] || !isInk(bin, bounds, n.X, n.Y) {
						continue
					}
					visited[n.Y*w+n.X] = true
					stack = append(stack, n)
				}
			}

			boxes = append(boxes, box)
		}
	}

	return boxes
}

func isInk(bin *image.Gray, bounds image.Rectangle, x, y int) bool {
	return bin.GrayAt(bounds.Min.X+x, bounds.Min.Y+y).Y < inkThreshold
}
