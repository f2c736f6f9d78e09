package cityblocks

import (
	"encoding/json"
	"image"
	"os"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"

	"github.com/voidshard/cityblocks/internal/sequence"
)

const (
	// BlockSize is the number of people that fit inside one building block
	BlockSize = 50

	// MaxHeight is the tallest a structure can grow (in blocks)
	MaxHeight = 10

	// SprawlAmount is the chance (0 -> 1) that a step places a new structure
	// rather than growing an existing one
	SprawlAmount = 0.5
)

var (
	// ErrInvalidPopulation implies a negative target population
	ErrInvalidPopulation = errors.New("population must not be negative")

	// ErrOriginNotBuildable implies the Outline forbids (0,0), where every
	// city starts
	ErrOriginNotBuildable = errors.New("outline does not allow building at the origin")

	// defaultDirections is the order neighbours are searched before shuffling
	defaultDirections = []image.Point{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
)

// City holds our city information; every structure placed so far & enough
// state to keep growing it exactly as it would have grown in one go.
//
// A City owns its random sequence; cities never share draws. It is not safe
// for concurrent use.
type City struct {
	outline Outline
	logger  *log.Logger

	seed       int64
	population int64
	remaining  int64
	steps      int64

	// order matters for both; placement walks structures in order & growth
	// chooses by index into growable
	structures []Structure
	growable   []int

	// fixed permutation of defaultDirections
	directions []image.Point

	seq   *sequence.Sequence
	state sequence.State
}

// New builds a city for the given config.
func New(bcfg *BuilderConfig, cfg *CityConfig) (*City, error) {
	c, err := newCity(bcfg, cfg.Seed, cfg.Population)
	if err != nil {
		return nil, err
	}
	return c, c.generate()
}

// Generate is sugar for New with a default BuilderConfig
func Generate(seed, population int64) (*City, error) {
	return New(nil, &CityConfig{Seed: seed, Population: population})
}

// newCity returns a city that has not been generated
func newCity(bcfg *BuilderConfig, seed, population int64) (*City, error) {
	if population < 0 {
		return nil, errors.Wrapf(ErrInvalidPopulation, "population %d", population)
	}

	o := bcfg.outline()
	if o != nil && !o.CanBuildOn(0, 0) {
		return nil, ErrOriginNotBuildable
	}

	seq := sequence.New(seed)
	state, err := seq.Snapshot()
	if err != nil {
		return nil, err
	}

	return &City{
		outline:    o,
		logger:     bcfg.logger().With("seed", seed),
		seed:       seed,
		population: population,
		directions: append([]image.Point{}, defaultDirections...),
		seq:        seq,
		state:      state,
	}, nil
}

// generate (re)builds the city from nothing
func (c *City) generate() error {
	c.seq.Seed(c.seed)

	c.directions = append(c.directions[:0], defaultDirections...)
	c.seq.Shuffle(len(c.directions), func(i, j int) {
		c.directions[i], c.directions[j] = c.directions[j], c.directions[i]
	})

	state, err := c.seq.Snapshot()
	if err != nil {
		return err
	}
	c.state = state

	c.structures = []Structure{}
	c.growable = []int{}
	c.steps = 0
	c.remaining = roundToBase(c.population, BlockSize)

	return c.update()
}

// SetPopulation changes the target population.
//
// Growing (or keeping) the target continues from where the city is now,
// consuming only the extra budget. Lowering the target throws everything
// away & builds the city again from scratch.
func (c *City) SetPopulation(population int64) error {
	if population < 0 {
		return errors.Wrapf(ErrInvalidPopulation, "population %d", population)
	}

	if population < c.population {
		c.population = population
		return c.generate()
	}

	c.remaining += population - c.population
	c.population = population
	return c.update()
}

// PopulationOf returns how many people live in s
func (c *City) PopulationOf(s Structure) int64 {
	return int64(s.Height) * BlockSize
}

// Seed returns the city seed
func (c *City) Seed() int64 {
	return c.seed
}

// Population returns the last requested target population
func (c *City) Population() int64 {
	return c.population
}

// Remaining returns the unspent population budget. After generation this is
// always negative.
func (c *City) Remaining() int64 {
	return c.remaining
}

// Steps returns the number of generation steps run since the last full build
func (c *City) Steps() int64 {
	return c.steps
}

// Structures returns a copy of all structures in placement order
func (c *City) Structures() []Structure {
	return append([]Structure{}, c.structures...)
}

// Growable returns a copy of the indexes (into Structures) of structures
// below MaxHeight, in the order growth chooses from.
func (c *City) Growable() []int {
	return append([]int{}, c.growable...)
}

// Directions returns the order neighbouring cells are searched in
func (c *City) Directions() []image.Point {
	return append([]image.Point{}, c.directions...)
}

// Snapshot returns the serialised random sequence position the next step
// will start from.
func (c *City) Snapshot() []byte {
	return append([]byte{}, c.state...)
}

// Stats returns generic stats about the city as it is now
func (c *City) Stats() *CityStats {
	return newCityStats(c.structures)
}

// cityJSON is the exported json form of a City
type cityJSON struct {
	Seed       int64
	Population int64
	Remaining  int64
	Steps      int64
	Structures []Structure
	Growable   []int
	Directions []image.Point
}

// JSON returns the city as json.
// This is informational, use Encode to save a city that can be loaded again.
func (c *City) JSON() ([]byte, error) {
	return json.Marshal(&cityJSON{
		Seed:       c.seed,
		Population: c.population,
		Remaining:  c.remaining,
		Steps:      c.steps,
		Structures: c.structures,
		Growable:   c.growable,
		Directions: c.directions,
	})
}

// SaveJSON writes a json file to the given path.
func (c *City) SaveJSON(fpath string) error {
	data, err := c.JSON()
	if err != nil {
		return err
	}
	return os.WriteFile(fpath, data, 0644)
}
