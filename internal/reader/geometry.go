package reader

import "math"

// Zoom limits and step, matching the toolbar controls
const (
	MinScale  = 0.5
	MaxScale  = 3.0
	ZoomStep  = 0.2
	fullTurn  = 360
	halfTurn  = 180
	quartTurn = 90
)

// Geometry is the shared page geometry for the virtualized list. Width and
// Height are the first page's intrinsic dimensions; all rows are assumed to
// share them. Recomputed on every scale or rotation change, never persisted.
type Geometry struct {
	Width    float64
	Height   float64
	Scale    float64
	Rotation int
}

// ItemExtent returns the scroll-axis extent of one row. Rotating by an odd
// quarter turn swaps the contributing dimension before the scale multiply.
func (g Geometry) ItemExtent() float64 {
	if g.Rotation%halfTurn != 0 {
		return g.Width * g.Scale
	}
	return g.Height * g.Scale
}

// ItemWidth returns the cross-axis extent of one row under the same
// rotation-parity rule.
func (g Geometry) ItemWidth() float64 {
	if g.Rotation%halfTurn != 0 {
		return g.Height * g.Scale
	}
	return g.Width * g.Scale
}

// PageAt derives the 1-indexed page under the given scroll offset, clamped
// to [1, numPages].
func (g Geometry) PageAt(scrollOffset float64, numPages int) int {
	extent := g.ItemExtent()
	if extent <= 0 || numPages < 1 {
		return 1
	}
	page := int(math.Floor(scrollOffset/extent)) + 1
	return clampPage(page, numPages)
}

// OffsetFor returns the scroll offset that centers the page in a viewport of
// the given height. The page number is clamped first.
func (g Geometry) OffsetFor(page, numPages int, viewportHeight float64) float64 {
	page = clampPage(page, numPages)
	extent := g.ItemExtent()
	offset := float64(page-1)*extent - (viewportHeight-extent)/2
	if offset < 0 {
		return 0
	}
	max := float64(numPages)*extent - viewportHeight
	if max > 0 && offset > max {
		return max
	}
	return offset
}

func clampPage(page, numPages int) int {
	if page < 1 {
		return 1
	}
	if numPages >= 1 && page > numPages {
		return numPages
	}
	return page
}

// clampScale keeps the zoom factor inside the supported range
func clampScale(scale float64) float64 {
	if scale < MinScale {
		return MinScale
	}
	if scale > MaxScale {
		return MaxScale
	}
	return scale
}

// normalizeRotation folds any quarter-turn multiple into [0, 360)
func normalizeRotation(rotation int) int {
	rotation %= fullTurn
	if rotation < 0 {
		rotation += fullTurn
	}
	return rotation
}
