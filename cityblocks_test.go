package cityblocks

import (
	"bytes"
	"image"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/pkg/errors"
)

// quiet is a BuilderConfig that discards logs
func quiet() *BuilderConfig {
	return &BuilderConfig{Logger: log.New(io.Discard)}
}

func mustCity(t *testing.T, bcfg *BuilderConfig, seed, population int64) *City {
	t.Helper()
	c, err := New(bcfg, &CityConfig{Seed: seed, Population: population})
	if err != nil {
		t.Fatal(err)
	}
	return c
}

// checkInvariants asserts that no two structures overlap & that growable
// holds exactly the structures below MaxHeight
func checkInvariants(t *testing.T, c *City) {
	t.Helper()

	seen := map[image.Point]bool{}
	for _, s := range c.Structures() {
		if seen[s.Point()] {
			t.Fatalf("two structures at %v", s.Point())
		}
		seen[s.Point()] = true
		if s.Height < 1 || s.Height > MaxHeight {
			t.Fatalf("structure at %v has height %d", s.Point(), s.Height)
		}
	}

	structures := c.Structures()
	growable := map[int]bool{}
	for _, i := range c.Growable() {
		if growable[i] {
			t.Fatalf("index %d is growable twice", i)
		}
		growable[i] = true
		if structures[i].Height >= MaxHeight {
			t.Fatalf("index %d is growable at height %d", i, structures[i].Height)
		}
	}
	for i, s := range structures {
		if s.Height < MaxHeight && !growable[i] {
			t.Fatalf("index %d (height %d) missing from growable", i, s.Height)
		}
	}

	dirs := map[image.Point]bool{}
	for _, d := range c.Directions() {
		dirs[d] = true
	}
	if len(dirs) != 4 {
		t.Fatalf("directions %v are not 4 distinct offsets", c.Directions())
	}
}

func TestGoldenSeed42(t *testing.T) {
	c := mustCity(t, quiet(), 42, 100)

	if c.Steps() != 3 {
		t.Errorf("expected 3 steps, got %d", c.Steps())
	}
	if c.Remaining() != -50 {
		t.Errorf("expected -50 remaining, got %d", c.Remaining())
	}
	if want := []Structure{{0, 0, 3}}; !reflect.DeepEqual(c.Structures(), want) {
		t.Errorf("structures = %v, expected %v", c.Structures(), want)
	}
	if want := []int{0}; !reflect.DeepEqual(c.Growable(), want) {
		t.Errorf("growable = %v, expected %v", c.Growable(), want)
	}
	if want := []image.Point{{0, 1}, {1, 0}, {-1, 0}, {0, -1}}; !reflect.DeepEqual(c.Directions(), want) {
		t.Errorf("directions = %v, expected %v", c.Directions(), want)
	}
}

func TestGoldenSeed42Large(t *testing.T) {
	c := mustCity(t, quiet(), 42, 1000)

	want := []Structure{
		{0, 0, 6}, {0, 1, 2}, {1, 0, 2}, {-1, 0, 3}, {0, -1, 1}, {0, 2, 2},
		{1, 1, 1}, {-1, 1, 1}, {2, 0, 1}, {1, -1, 1}, {-2, 0, 1},
	}
	if !reflect.DeepEqual(c.Structures(), want) {
		t.Fatalf("structures = %v, expected %v", c.Structures(), want)
	}
	if c.Steps() != 21 {
		t.Fatalf("expected 21 steps, got %d", c.Steps())
	}
	checkInvariants(t, c)
}

func TestDeterminism(t *testing.T) {
	cases := []struct {
		seed       int64
		population int64
	}{
		{0, 0},
		{1, 2000},
		{-1, 2000},
		{123456789, 5000},
		{-9223372036854775808, 750},
	}

	for _, tt := range cases {
		a := mustCity(t, quiet(), tt.seed, tt.population)
		b := mustCity(t, quiet(), tt.seed, tt.population)

		if !reflect.DeepEqual(a.Structures(), b.Structures()) ||
			!reflect.DeepEqual(a.Growable(), b.Growable()) ||
			!reflect.DeepEqual(a.Directions(), b.Directions()) ||
			a.Steps() != b.Steps() ||
			a.Remaining() != b.Remaining() ||
			!bytes.Equal(a.Snapshot(), b.Snapshot()) {
			t.Fatalf("seed %d population %d: cities differ", tt.seed, tt.population)
		}
		checkInvariants(t, a)
	}
}

func TestDifferentSeedsDiffer(t *testing.T) {
	a := mustCity(t, quiet(), 1, 2000)
	b := mustCity(t, quiet(), -1, 2000)
	if reflect.DeepEqual(a.Directions(), b.Directions()) && reflect.DeepEqual(a.Structures(), b.Structures()) {
		t.Fatal("expected different seeds to build different cities")
	}
}

func TestBudget(t *testing.T) {
	cases := []struct {
		population int64
		rounded    int64
	}{
		{0, 0},
		{24, 0},
		{25, 0}, // tie, rounds to even (0)
		{26, 50},
		{75, 100}, // tie, rounds to even (2 blocks)
		{97, 100},
		{100, 100},
		{125, 100}, // tie, rounds to even (2 blocks)
		{175, 200},
		{1010, 1000},
	}

	for _, tt := range cases {
		if got := roundToBase(tt.population, BlockSize); got != tt.rounded {
			t.Errorf("roundToBase(%d) = %d, expected %d", tt.population, got, tt.rounded)
		}

		c := mustCity(t, quiet(), 9, tt.population)

		// the minimal number of steps that takes the budget negative
		steps := tt.rounded/BlockSize + 1
		if c.Steps() != steps {
			t.Errorf("population %d: expected %d steps, got %d", tt.population, steps, c.Steps())
		}
		if c.Remaining() != tt.rounded-steps*BlockSize {
			t.Errorf("population %d: remaining %d", tt.population, c.Remaining())
		}
		if c.Remaining() >= 0 || c.Remaining() < -BlockSize {
			t.Errorf("population %d: remaining %d not in [-%d, 0)", tt.population, c.Remaining(), BlockSize)
		}
	}
}

func TestPopulation97(t *testing.T) {
	c := mustCity(t, quiet(), 7, 97)
	if c.Steps() != 3 || c.Remaining() != -50 {
		t.Fatalf("expected 97 to build as 100; steps %d remaining %d", c.Steps(), c.Remaining())
	}
	if c.Population() != 97 {
		t.Fatalf("target population should be kept as given, got %d", c.Population())
	}
}

func TestGrowContinues(t *testing.T) {
	c := mustCity(t, quiet(), 42, 100)

	if err := c.SetPopulation(600); err != nil {
		t.Fatal(err)
	}

	want := []Structure{{0, 0, 6}, {0, 1, 2}, {1, 0, 1}, {-1, 0, 2}, {0, -1, 1}, {0, 2, 1}}
	if !reflect.DeepEqual(c.Structures(), want) {
		t.Fatalf("structures = %v, expected %v", c.Structures(), want)
	}
	if c.Steps() != 13 || c.Remaining() != -50 || c.Population() != 600 {
		t.Fatalf("steps %d remaining %d population %d", c.Steps(), c.Remaining(), c.Population())
	}
	checkInvariants(t, c)
}

func TestSetSamePopulation(t *testing.T) {
	c := mustCity(t, quiet(), 42, 100)
	before := c.Structures()

	if err := c.SetPopulation(100); err != nil {
		t.Fatal(err)
	}
	if c.Steps() != 3 || !reflect.DeepEqual(before, c.Structures()) {
		t.Fatal("setting the same population should not run any steps")
	}
}

func TestShrinkThenRegrow(t *testing.T) {
	c := mustCity(t, quiet(), 42, 1000)

	if err := c.SetPopulation(300); err != nil {
		t.Fatal(err)
	}
	fresh := mustCity(t, quiet(), 42, 300)
	if !reflect.DeepEqual(c.Structures(), fresh.Structures()) || c.Steps() != fresh.Steps() {
		t.Fatal("shrinking should rebuild from scratch")
	}

	if err := c.SetPopulation(1000); err != nil {
		t.Fatal(err)
	}
	fresh = mustCity(t, quiet(), 42, 1000)
	if !reflect.DeepEqual(c.Structures(), fresh.Structures()) ||
		!reflect.DeepEqual(c.Growable(), fresh.Growable()) ||
		c.Steps() != fresh.Steps() {
		t.Fatal("shrink then regrow should match a fresh city")
	}
}

func TestNegativePopulation(t *testing.T) {
	_, err := Generate(1, -1)
	if errors.Cause(err) != ErrInvalidPopulation {
		t.Fatalf("expected ErrInvalidPopulation, got %v", err)
	}

	c := mustCity(t, quiet(), 1, 100)
	if errors.Cause(c.SetPopulation(-5)) != ErrInvalidPopulation {
		t.Fatal("expected SetPopulation to refuse a negative population")
	}
}

func TestPopulationOf(t *testing.T) {
	c := mustCity(t, quiet(), 42, 1000)
	total := int64(0)
	for _, s := range c.Structures() {
		if c.PopulationOf(s) != int64(s.Height)*BlockSize {
			t.Fatalf("unexpected population for %v", s)
		}
		total += c.PopulationOf(s)
	}

	st := c.Stats()
	if st.Housed != total || st.Structures != 11 || st.Blocks != 21 || st.Tallest != 6 {
		t.Fatalf("unexpected stats %+v", st)
	}
	if st.Bounds != image.Rect(-2, -1, 3, 3) {
		t.Fatalf("unexpected bounds %v", st.Bounds)
	}
}

func TestOutlineExhaustion(t *testing.T) {
	cases := []struct {
		name    string
		outline Outline
		want    []Structure
	}{
		{"single cell", RectOutline(image.Rect(0, 0, 1, 1)), []Structure{{0, 0, 10}}},
		{"row of three", RectOutline(image.Rect(-1, 0, 2, 1)), []Structure{{0, 0, 10}, {1, 0, 10}, {-1, 0, 10}}},
	}

	for _, tt := range cases {
		buf := &bytes.Buffer{}
		c := mustCity(t, &BuilderConfig{Outline: tt.outline, Logger: log.New(buf)}, 42, 5000)

		if !reflect.DeepEqual(c.Structures(), tt.want) {
			t.Fatalf("%s: structures = %v, expected %v", tt.name, c.Structures(), tt.want)
		}
		if len(c.Growable()) != 0 {
			t.Fatalf("%s: maxed structures should leave growable, got %v", tt.name, c.Growable())
		}
		// failed placements still count as steps
		if c.Steps() != 101 || c.Remaining() != -50 {
			t.Fatalf("%s: steps %d remaining %d", tt.name, c.Steps(), c.Remaining())
		}
		if !strings.Contains(buf.String(), "failed to find a free location") {
			t.Fatalf("%s: expected a warning, got %q", tt.name, buf.String())
		}
		checkInvariants(t, c)
	}
}

func TestOriginNotBuildable(t *testing.T) {
	_, err := New(&BuilderConfig{Outline: RectOutline(image.Rect(1, 1, 5, 5))}, &CityConfig{Seed: 1, Population: 100})
	if err != ErrOriginNotBuildable {
		t.Fatalf("expected ErrOriginNotBuildable, got %v", err)
	}
}

func TestCitiesDoNotShareDraws(t *testing.T) {
	a := mustCity(t, quiet(), 5, 500)
	b := mustCity(t, quiet(), 6, 500)
	if err := b.SetPopulation(5000); err != nil {
		t.Fatal(err)
	}
	if err := a.SetPopulation(1000); err != nil {
		t.Fatal(err)
	}

	fresh := mustCity(t, quiet(), 5, 500)
	if err := fresh.SetPopulation(1000); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Structures(), fresh.Structures()) {
		t.Fatal("growing another city changed this one")
	}
}

func TestJSON(t *testing.T) {
	c := mustCity(t, quiet(), 42, 100)
	data, err := c.JSON()
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"Seed":42`, `"Steps":3`, `"Structures":[{"X":0,"Y":0,"Height":3}]`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("json %s missing %s", data, want)
		}
	}
}

func TestSaveJSON(t *testing.T) {
	c := mustCity(t, quiet(), 42, 100)
	fpath := filepath.Join(t.TempDir(), "city.json")

	if err := c.SaveJSON(fpath); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(fpath)
	if err != nil {
		t.Fatal(err)
	}
	want, _ := c.JSON()
	if !bytes.Equal(got, want) {
		t.Fatalf("file holds %s, expected %s", got, want)
	}
}

func TestStatsByHeight(t *testing.T) {
	st := mustCity(t, quiet(), 42, 1000).Stats()

	structures, blocks := 0, 0
	for h, n := range st.ByHeight {
		structures += n
		blocks += h * n
	}
	if structures != st.Structures || blocks != st.Blocks {
		t.Fatalf("ByHeight %v disagrees with %d structures, %d blocks", st.ByHeight, st.Structures, st.Blocks)
	}
	if st.ByHeight[st.Tallest] == 0 {
		t.Fatalf("no structure of the tallest height %d in %v", st.Tallest, st.ByHeight)
	}
}
