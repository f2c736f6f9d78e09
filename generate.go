package cityblocks

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"github.com/unixpickle/essentials"

	"github.com/voidshard/cityblocks/internal/footprint"
	"github.com/voidshard/cityblocks/internal/sequence"
)

// update runs steps until the population budget is spent.
//
// Each step starts from the saved sequence position & saves the position it
// ends on, so a city loaded from disk resumes with exactly the draws the
// original would have made.
func (c *City) update() error {
	startSteps := c.steps

	for c.remaining >= 0 {
		if err := c.seq.Restore(c.state); err != nil {
			return err
		}

		if err := c.step(); err != nil {
			return errors.Wrapf(err, "step %d", c.steps)
		}

		state, err := c.seq.Snapshot()
		if err != nil {
			return err
		}
		c.state = state
		c.remaining -= BlockSize
	}

	c.logger.Debug(
		"city updated",
		"population", c.population,
		"steps", c.steps-startSteps,
		"structures", len(c.structures),
		"growable", len(c.growable),
	)
	return nil
}

// step either places a new structure or grows an existing one
func (c *City) step() error {
	sprawl := c.seq.Float64() < SprawlAmount

	if sprawl || len(c.growable) == 0 {
		c.newStructure()
	} else if err := c.expandStructure(); err != nil {
		return err
	}

	c.steps++
	return nil
}

// newStructure places a single block on the first free cell (if any)
func (c *City) newStructure() {
	pos, ok := c.freeLocation()
	if !ok {
		c.logger.Warn("failed to find a free location for a new structure", "step", c.steps)
		return
	}

	s := Structure{X: pos.X, Y: pos.Y, Height: 1}
	c.structures = append(c.structures, s)
	if s.Height < MaxHeight {
		c.growable = append(c.growable, len(c.structures)-1)
	}
}

// expandStructure adds a block to a random growable structure
func (c *City) expandStructure() error {
	i, err := sequence.Choice(c.seq, c.growable)
	if err != nil {
		return errors.Wrap(err, "choose structure to grow")
	}

	c.structures[i].Height++
	if c.structures[i].Height >= MaxHeight {
		c.removeGrowable(i)
	}
	return nil
}

// removeGrowable drops structure index i from growable, keeping the order of
// everything else
func (c *City) removeGrowable(i int) {
	for pos, idx := range c.growable {
		if idx == i {
			essentials.OrderedDelete(&c.growable, pos)
			return
		}
	}
}

// freeLocation returns the first unoccupied neighbour of the city.
// Structures are walked in placement order & each is tested in the city's
// direction order, so placement is fixed given both.
func (c *City) freeLocation() (image.Point, bool) {
	if len(c.structures) == 0 {
		return image.Pt(0, 0), true
	}

	pts := make([]image.Point, len(c.structures))
	for i, s := range c.structures {
		pts[i] = s.Point()
	}
	occupied := footprint.New(pts)

	for _, s := range c.structures {
		for _, d := range c.directions {
			x, ok1 := offset(s.X, d.X)
			y, ok2 := offset(s.Y, d.Y)
			if !ok1 || !ok2 {
				// off the edge of the grid
				continue
			}
			if occupied.Has(x, y) {
				continue
			}
			if c.outline != nil && !c.outline.CanBuildOn(x, y) {
				continue
			}
			return image.Pt(x, y), true
		}
	}

	return image.Point{}, false
}

// offset returns v+d, false if that doesn't fit in an int
func offset(v, d int) (int, bool) {
	if (d > 0 && v > math.MaxInt-d) || (d < 0 && v < math.MinInt-d) {
		return 0, false
	}
	return v + d, true
}
