package cityblocks

import (
	"image"
)

// Outline tells cityblocks what land can be used.
// There is only one question; can I put a new structure at (x,y)?
// Cells that are already occupied are never offered.
type Outline interface {
	// true if we can place a structure on this cell
	CanBuildOn(x, y int) bool
}

// RectOutline allows building anywhere inside the rectangle (Max exclusive,
// like image.Rectangle).
type RectOutline image.Rectangle

// CanBuildOn returns if (x,y) is within the rectangle
func (r RectOutline) CanBuildOn(x, y int) bool {
	return image.Pt(x, y).In(image.Rectangle(r))
}
