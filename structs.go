package cityblocks

import (
	"image"
	"math"
)

// Structure is a stack of building blocks on a single grid cell.
type Structure struct {
	X      int
	Y      int
	Height int // number of stacked blocks, >= 1
}

// Point returns the cell the structure sits on
func (s Structure) Point() image.Point {
	return image.Pt(s.X, s.Y)
}

// CityStats holds generic stats about the city
type CityStats struct {
	// Structures is the number of placed structures
	Structures int

	// Blocks is the total number of stacked blocks across all structures
	Blocks int

	// Housed is how many people fit in the city (Blocks * BlockSize)
	Housed int64

	// Maxed is the number of structures at MaxHeight
	Maxed int

	// Tallest is the height of the tallest structure
	Tallest int

	// Bounds covers every occupied cell (empty if nothing is placed).
	// Max saturates at the largest int.
	Bounds image.Rectangle

	// count of structures by height
	ByHeight map[int]int `json:",omitempty"`
}

// newCityStats returns stats for the given structures
func newCityStats(in []Structure) *CityStats {
	st := &CityStats{ByHeight: map[int]int{}}
	if len(in) == 0 {
		return st
	}

	lo, hi := in[0].Point(), in[0].Point()
	for _, s := range in {
		st.add(s)
		lo.X, hi.X = minint(lo.X, s.X), maxint(hi.X, s.X)
		lo.Y, hi.Y = minint(lo.Y, s.Y), maxint(hi.Y, s.Y)
	}
	st.Bounds = image.Rectangle{Min: lo, Max: cellRect(hi).Max}
	return st
}

// add s to the running totals
func (c *CityStats) add(s Structure) {
	c.Structures++
	c.Blocks += s.Height
	c.Housed += int64(s.Height) * BlockSize
	if s.Height >= MaxHeight {
		c.Maxed++
	}
	c.Tallest = maxint(c.Tallest, s.Height)

	c.ByHeight[s.Height]++
}

// cellRect returns the 1x1 rectangle of the cell at p, clipped at the
// largest int
func cellRect(p image.Point) image.Rectangle {
	end := p
	if end.X < math.MaxInt {
		end.X++
	}
	if end.Y < math.MaxInt {
		end.Y++
	}
	return image.Rectangle{Min: p, Max: end}
}
