package sequence

import (
	"math/rand/v2"

	"github.com/pkg/errors"
)

// golden is used to derive the second PCG word from a single seed
const golden = 0x9e3779b97f4a7c15

var (
	// ErrEmpty is returned when choosing from an empty slice.
	ErrEmpty = errors.New("cannot choose from an empty sequence")
)

// State is a serialised snapshot of a Sequence position.
// It is the PCG's own binary form and can be stored as is.
type State []byte

// Sequence is a seedable random sequence whose position can be captured and
// restored exactly. It is not safe for concurrent use.
type Sequence struct {
	src *rand.PCG
	rng *rand.Rand
}

// New returns a Sequence seeded with seed.
func New(seed int64) *Sequence {
	src := rand.NewPCG(0, 0)
	s := &Sequence{src: src, rng: rand.New(src)}
	s.Seed(seed)
	return s
}

// Seed resets the sequence to the start of the stream for seed.
func (s *Sequence) Seed(seed int64) {
	u := uint64(seed)
	s.src.Seed(mix(u), mix(u+golden))
}

// Snapshot returns the current position.
func (s *Sequence) Snapshot() (State, error) {
	data, err := s.src.MarshalBinary()
	if err != nil {
		return nil, errors.Wrap(err, "snapshot random sequence")
	}
	return State(data), nil
}

// Restore moves the sequence back to a position previously returned by Snapshot.
func (s *Sequence) Restore(st State) error {
	if err := s.src.UnmarshalBinary(st); err != nil {
		return errors.Wrapf(err, "restore random sequence from %d bytes", len(st))
	}
	return nil
}

// Float64 returns a uniform value in [0,1)
func (s *Sequence) Float64() float64 {
	return s.rng.Float64()
}

// IntN returns a uniform value in [0,n). n must be > 0.
func (s *Sequence) IntN(n int) int {
	return s.rng.IntN(n)
}

// Shuffle pseudo-randomizes the order of n elements in place via swap.
func (s *Sequence) Shuffle(n int, swap func(i, j int)) {
	s.rng.Shuffle(n, swap)
}

// Choice returns an element of items chosen uniformly by index.
func Choice[T any](s *Sequence, items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmpty
	}
	return items[s.IntN(len(items))], nil
}

// mix is a splitmix64 finaliser, spreads nearby seeds apart
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
