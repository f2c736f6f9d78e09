package cityblocks

import (
	"image"
	"image/color"

	"github.com/fogleman/gg"
	"github.com/pkg/errors"
	"golang.org/x/image/colornames"
)

const (
	// Spacing is the distance between neighbouring cell centres, in blocks.
	// The gap between structures is left for roads.
	Spacing = 1.6

	// planMargin is the number of empty cells drawn around the city
	planMargin = 2

	// limits on the plan image, in pixels
	maxPlanSide   = 1 << 15
	maxPlanPixels = 1 << 26
)

var (
	// ErrPlanTooLarge implies the plan image would need too many pixels
	ErrPlanTooLarge = errors.New("city plan is too large to draw")
)

// ColourScheme defines how various features of the plan should be coloured.
// Structures are shaded from Low (height 1) to High (MaxHeight - 1);
// structures that can no longer grow use Maxed.
type ColourScheme struct {
	Ground color.Color
	Roads  color.Color
	Low    color.Color
	High   color.Color
	Maxed  color.Color
}

// DefaultScheme returns a reasonable default ColourScheme.
func DefaultScheme() *ColourScheme {
	return &ColourScheme{
		Ground: colornames.Forestgreen,
		Roads:  colornames.Dimgray,
		Low:    colornames.Lavender,
		High:   colornames.Royalblue,
		Maxed:  colornames.Midnightblue,
	}
}

// PlanImage returns a top down plan of the city, each cell drawn cellSize
// pixels wide. Cells are laid out Spacing apart, each structure is a square
// lot surrounded by road.
//
// Returns ErrPlanTooLarge if the structures are spread too far apart to
// draw at this cellSize.
func (c *City) PlanImage(scheme *ColourScheme, cellSize int) (image.Image, error) {
	if scheme == nil {
		scheme = DefaultScheme()
	}
	if cellSize < 1 {
		cellSize = 1
	}

	bnds := c.Stats().Bounds
	pitch := float64(cellSize) * Spacing

	// spans in float64; the difference of two far apart ints may not fit
	fw := (float64(bnds.Max.X) - float64(bnds.Min.X) + 2*planMargin) * pitch
	fh := (float64(bnds.Max.Y) - float64(bnds.Min.Y) + 2*planMargin) * pitch
	if fw > maxPlanSide || fh > maxPlanSide || fw*fh > maxPlanPixels {
		return nil, errors.Wrapf(ErrPlanTooLarge, "%.0fx%.0f pixels for bounds %v", fw, fh, bnds)
	}
	width, height := int(fw), int(fh)

	ctx := gg.NewContext(width, height)
	ctx.SetColor(scheme.Ground)
	ctx.Clear()

	// centre of the cell at (x,y) in pixels
	centre := func(x, y int) (float64, float64) {
		return (float64(x-bnds.Min.X) + planMargin + 0.5) * pitch, (float64(y-bnds.Min.Y) + planMargin + 0.5) * pitch
	}

	// roads first, so lots of neighbouring structures share them
	ctx.SetColor(scheme.Roads)
	for _, s := range c.structures {
		cx, cy := centre(s.X, s.Y)
		ctx.DrawRectangle(cx-pitch/2, cy-pitch/2, pitch, pitch)
	}
	ctx.Fill()

	size := float64(cellSize)
	for _, s := range c.structures {
		cx, cy := centre(s.X, s.Y)
		ctx.SetColor(scheme.colour(s.Height))
		ctx.DrawRectangle(cx-size/2, cy-size/2, size, size)
		ctx.Fill()
	}

	return ctx.Image(), nil
}

// SavePlan writes the city plan to fpath as a PNG
func (c *City) SavePlan(fpath string, scheme *ColourScheme, cellSize int) error {
	im, err := c.PlanImage(scheme, cellSize)
	if err != nil {
		return err
	}
	return gg.NewContextForImage(im).SavePNG(fpath)
}

// colour returns the colour of a structure of the given height
func (s *ColourScheme) colour(height int) color.Color {
	if height >= MaxHeight {
		return s.Maxed
	}
	t := 0.0
	if MaxHeight > 2 {
		t = float64(height-1) / float64(MaxHeight-2)
	}
	return lerp(s.Low, s.High, t)
}

// lerp blends a -> b by t (0 -> 1)
func lerp(a, b color.Color, t float64) color.Color {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	mix := func(x, y uint32) uint8 {
		return uint8((float64(x)*(1-t) + float64(y)*t) / 257)
	}
	return color.RGBA{R: mix(ar, br), G: mix(ag, bg), B: mix(ab, bb), A: mix(aa, ba)}
}
