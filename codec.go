package cityblocks

import (
	"bytes"
	"fmt"
	"image"
	"io"
	"math"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"

	"github.com/voidshard/cityblocks/internal/encoding"
	"github.com/voidshard/cityblocks/internal/sequence"
)

// maxStateSize is far more than any random sequence snapshot needs
const maxStateSize = 1 << 16

var (
	// ErrBinaryModeRequired implies the stream given may translate bytes
	// (ie. a terminal or a stream in text mode)
	ErrBinaryModeRequired = errors.New("stream must be in binary mode")

	// ErrCorrupt implies the data decoded but describes an impossible city
	ErrCorrupt = errors.New("corrupt city data")
)

// TextModer is implemented by streams that can report whether they
// translate line endings or otherwise alter bytes.
type TextModer interface {
	TextMode() bool
}

// Encode returns the city in the binary format read by Decode
func (c *City) Encode() ([]byte, error) {
	buf := &bytes.Buffer{}
	err := c.encode(buf)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Store writes the city to w in the binary format read by Load
func (c *City) Store(w io.Writer) error {
	if err := binarySafe(w); err != nil {
		return err
	}
	return c.encode(w)
}

// SaveFile writes the city to fpath in the binary format read by LoadFile
func (c *City) SaveFile(fpath string) error {
	data, err := c.Encode()
	if err != nil {
		return err
	}
	return os.WriteFile(fpath, data, 0644)
}

// encode writes all fields, big-endian, in the fixed order Load expects.
func (c *City) encode(out io.Writer) error {
	w := encoding.NewWriter(out)

	w.PutUint64("population", uint64(c.population))
	w.PutInt64("seed", c.seed)
	w.PutUint64("steps", uint64(c.steps))
	w.PutInt64("population_remaining", c.remaining)

	w.PutBlob("random_state", c.state)

	w.PutUint64("structure_count", uint64(len(c.structures)))
	for _, s := range c.structures {
		w.PutInt64("structure x", int64(s.X))
		w.PutInt64("structure y", int64(s.Y))
		w.PutUint64("structure height", uint64(s.Height))
	}

	w.PutUint64("growable_count", uint64(len(c.growable)))
	for _, i := range c.growable {
		w.PutUint64("growable index", uint64(i))
	}

	w.PutUint8("direction_count", uint8(len(c.directions)))
	for _, d := range c.directions {
		if d.X < math.MinInt8 || d.X > math.MaxInt8 || d.Y < math.MinInt8 || d.Y > math.MaxInt8 {
			return errors.Errorf("direction %v does not fit in a byte", d)
		}
		w.PutInt8("direction dx", int8(d.X))
		w.PutInt8("direction dy", int8(d.Y))
	}

	return w.Err()
}

// Decode reads a city from data as written by Encode.
// The city is restored as saved, no generation is run.
// Trailing bytes after the direction table are refused as ErrCorrupt.
func Decode(bcfg *BuilderConfig, data []byte) (*City, error) {
	r := bytes.NewReader(data)
	c, err := decode(bcfg, r)
	if err != nil {
		return nil, err
	}
	if r.Len() > 0 {
		return nil, errors.Wrapf(ErrCorrupt, "%d trailing bytes", r.Len())
	}
	return c, nil
}

// Load reads a city from r as written by Store.
// Anything after the city in r is left unread.
func Load(bcfg *BuilderConfig, r io.Reader) (*City, error) {
	if err := binarySafe(r); err != nil {
		return nil, err
	}
	return decode(bcfg, r)
}

// LoadFile reads a city from fpath as written by SaveFile.
func LoadFile(bcfg *BuilderConfig, fpath string) (*City, error) {
	data, err := os.ReadFile(fpath)
	if err != nil {
		return nil, err
	}
	return Decode(bcfg, data)
}

// decode reads all fields before touching a City, so a failed read
// never leaves a partial city behind.
func decode(bcfg *BuilderConfig, in io.Reader) (*City, error) {
	r := encoding.NewReader(in)

	population := r.Uint64("population")
	seed := r.Int64("seed")
	steps := r.Uint64("steps")
	remaining := r.Int64("population_remaining")

	state := r.Blob("random_state", maxStateSize)

	structures := []Structure{}
	count := r.Uint64("structure_count")
	for i := uint64(0); i < count && r.Err() == nil; i++ {
		x := r.Int64("structure x")
		y := r.Int64("structure y")
		h := r.Uint64("structure height")
		structures = append(structures, Structure{X: int(x), Y: int(y), Height: int(h)})
	}

	growable := []int{}
	count = r.Uint64("growable_count")
	for i := uint64(0); i < count && r.Err() == nil; i++ {
		growable = append(growable, int(r.Uint64("growable index")))
	}

	directions := []image.Point{}
	dcount := r.Uint8("direction_count")
	for i := uint8(0); i < dcount && r.Err() == nil; i++ {
		dx := r.Int8("direction dx")
		dy := r.Int8("direction dy")
		directions = append(directions, image.Pt(int(dx), int(dy)))
	}

	if err := r.Err(); err != nil {
		return nil, errors.Wrap(err, "decode city")
	}

	if population > math.MaxInt64 || steps > math.MaxInt64 {
		return nil, errors.Wrap(ErrCorrupt, "population or steps out of range")
	}
	if err := validate(structures, growable, directions); err != nil {
		return nil, err
	}

	c, err := newCity(bcfg, seed, int64(population))
	if err != nil {
		return nil, err
	}
	if err := c.seq.Restore(sequence.State(state)); err != nil {
		// both ErrCorrupt & the restore error stay reachable with errors.Is
		return nil, fmt.Errorf("%w: random_state: %w", ErrCorrupt, err)
	}

	c.steps = int64(steps)
	c.remaining = remaining
	c.state = state
	c.structures = structures
	c.growable = growable
	c.directions = directions

	return c, nil
}

// validate checks decoded data describes a city generation could have built
func validate(structures []Structure, growable []int, directions []image.Point) error {
	cells := map[image.Point]bool{}
	for _, s := range structures {
		if s.Height < 1 || s.Height > MaxHeight {
			return errors.Wrapf(ErrCorrupt, "structure at %v has height %d", s.Point(), s.Height)
		}
		if cells[s.Point()] {
			return errors.Wrapf(ErrCorrupt, "two structures at %v", s.Point())
		}
		cells[s.Point()] = true
	}

	seen := map[int]bool{}
	for _, i := range growable {
		if i < 0 || i >= len(structures) {
			return errors.Wrapf(ErrCorrupt, "growable index %d out of range", i)
		}
		if seen[i] || structures[i].Height >= MaxHeight {
			return errors.Wrapf(ErrCorrupt, "growable index %d is invalid", i)
		}
		seen[i] = true
	}
	for i, s := range structures {
		if s.Height < MaxHeight && !seen[i] {
			return errors.Wrapf(ErrCorrupt, "structure %d missing from growable", i)
		}
	}

	if len(directions) != len(defaultDirections) {
		return errors.Wrapf(ErrCorrupt, "expected %d directions, got %d", len(defaultDirections), len(directions))
	}
	dirs := map[image.Point]bool{}
	for _, d := range defaultDirections {
		dirs[d] = true
	}
	for _, d := range directions {
		if !dirs[d] {
			return errors.Wrapf(ErrCorrupt, "unexpected direction %v", d)
		}
		dirs[d] = false
	}

	return nil
}

// binarySafe returns ErrBinaryModeRequired if v is a stream that may alter
// the bytes passing through it.
func binarySafe(v interface{}) error {
	if v == nil {
		return errors.New("nil stream")
	}
	if t, ok := v.(TextModer); ok && t.TextMode() {
		return ErrBinaryModeRequired
	}
	if f, ok := v.(*os.File); ok {
		fd := f.Fd()
		if isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd) {
			return errors.Wrapf(ErrBinaryModeRequired, "%s is a terminal", f.Name())
		}
	}
	return nil
}
