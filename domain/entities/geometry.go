package entities

// Point is a viewport coordinate a pointer action is dispatched to
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a minimum width/height pair used by the locators' size filters
type Size struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Minimum candidate sizes per locator
var (
	MinSearchInput      = Size{Width: 50, Height: 20}
	MinProductContainer = Size{Width: 100, Height: 100}
	MinClickableAction  = Size{Width: 50, Height: 20}
)

// BoundingBox is an element's region in viewport pixels
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the click target of the box
func (b BoundingBox) Center() Point {
	return Point{
		X: b.X + b.Width/2,
		Y: b.Y + b.Height/2,
	}
}

// Pad grows the box by margin on every side. The origin is clamped at 0,
// the size always grows by 2*margin.
func (b BoundingBox) Pad(margin float64) BoundingBox {
	return BoundingBox{
		X:      max(0, b.X-margin),
		Y:      max(0, b.Y-margin),
		Width:  b.Width + margin*2,
		Height: b.Height + margin*2,
	}
}

// Below reports whether the box is narrower or shorter than min
func (b BoundingBox) Below(min Size) bool {
	return b.Width < min.Width || b.Height < min.Height
}
