package footprint

import (
	"image"
	"math"

	"github.com/boljen/go-bitmap"
)

// MaxBitmapCells is the largest bounding box (in cells, border included) kept
// as a bitmap. Sparser footprints are held in a map.
const MaxBitmapCells = 1 << 22

// Footprint is the set of occupied grid cells.
//
// Compact footprints are stored in a bitmap covering the bounding box of
// everything added plus a one cell border, so direct neighbours of any
// occupied cell can be tested without growing the map. Footprints spread too
// far apart for that (or touching the edge of the int range) use a map.
type Footprint struct {
	bounds image.Rectangle
	bm     bitmap.Bitmap
	cells  map[image.Point]struct{}
	count  int
}

// New returns a Footprint holding all given points.
func New(pts []image.Point) *Footprint {
	bnds, ok := bitmapBounds(pts)
	if !ok {
		f := &Footprint{cells: make(map[image.Point]struct{}, len(pts))}
		for _, p := range pts {
			f.cells[p] = struct{}{}
		}
		f.count = len(f.cells)
		return f
	}

	f := &Footprint{
		bounds: bnds,
		bm:     bitmap.New(bnds.Dx() * bnds.Dy()),
	}
	for _, p := range pts {
		f.set(p)
	}
	return f
}

// Sparse returns if the footprint is held in a map rather than a bitmap
func (f *Footprint) Sparse() bool {
	return f.cells != nil
}

// Bounds returns the area covered by the bitmap (occupied cells + a border
// of 1). Sparse footprints have no bitmap & return an empty rectangle.
func (f *Footprint) Bounds() image.Rectangle {
	return f.bounds
}

// Len returns the number of distinct occupied cells
func (f *Footprint) Len() int {
	return f.count
}

// Has returns if (x,y) is occupied
func (f *Footprint) Has(x, y int) bool {
	if f.cells != nil {
		_, ok := f.cells[image.Pt(x, y)]
		return ok
	}
	i, ok := f.index(x, y)
	if !ok {
		return false
	}
	return f.bm.Get(i)
}

func (f *Footprint) set(p image.Point) {
	i, _ := f.index(p.X, p.Y)
	if f.bm.Get(i) {
		return
	}
	f.bm.Set(i, true)
	f.count++
}

// index of x,y in the bitmap
func (f *Footprint) index(x, y int) (int, bool) {
	if !image.Pt(x, y).In(f.bounds) {
		return 0, false
	}
	return (y-f.bounds.Min.Y)*f.bounds.Dx() + (x - f.bounds.Min.X), true
}

// bitmapBounds returns the bounding box of pts plus a one cell border, or
// false if that box is too large for a bitmap or can't be represented.
func bitmapBounds(pts []image.Point) (image.Rectangle, bool) {
	if len(pts) == 0 {
		return image.Rect(-1, -1, 1, 1), true
	}

	lo, hi := pts[0], pts[0]
	for _, p := range pts[1:] {
		lo.X, hi.X = minint(lo.X, p.X), maxint(hi.X, p.X)
		lo.Y, hi.Y = minint(lo.Y, p.Y), maxint(hi.Y, p.Y)
	}

	// the border needs lo-1 & hi+2 to exist
	if lo.X <= math.MinInt+1 || lo.Y <= math.MinInt+1 || hi.X >= math.MaxInt-2 || hi.Y >= math.MaxInt-2 {
		return image.Rectangle{}, false
	}

	// unsigned spans can't overflow for hi >= lo
	w := uint64(hi.X) - uint64(lo.X) + 3
	h := uint64(hi.Y) - uint64(lo.Y) + 3
	if w > MaxBitmapCells || h > MaxBitmapCells || w*h > MaxBitmapCells {
		return image.Rectangle{}, false
	}

	return image.Rect(lo.X-1, lo.Y-1, hi.X+2, hi.Y+2), true
}

func minint(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxint(a, b int) int {
	if a > b {
		return a
	}
	return b
}
