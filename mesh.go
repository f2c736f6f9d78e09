package cityblocks

import (
	"os"

	"github.com/unixpickle/model3d/model3d"
)

// groundDepth is the thickness of the slab under the city, in blocks
const groundDepth = 0.05

// Mesh returns a 3D model of the city; one box per structure BlockSize wide,
// deep & Height*BlockSize tall, Spacing*BlockSize apart, standing on a thin
// ground slab covering the plan area. Z is up.
func (c *City) Mesh() *model3d.Mesh {
	mesh := model3d.NewMesh()

	size := float64(BlockSize)
	pitch := size * Spacing

	// in float64, the margin may not fit in an int at the edges of the grid
	bnds := c.Stats().Bounds
	addBox(
		mesh,
		xyz(
			(float64(bnds.Min.X)-planMargin)*pitch-size/2,
			(float64(bnds.Min.Y)-planMargin)*pitch-size/2,
			-groundDepth*size,
		),
		xyz(
			(float64(bnds.Max.X)-1+planMargin)*pitch+size/2,
			(float64(bnds.Max.Y)-1+planMargin)*pitch+size/2,
			0,
		),
	)

	for _, s := range c.structures {
		x, y := float64(s.X)*pitch, float64(s.Y)*pitch
		addBox(
			mesh,
			xyz(x-size/2, y-size/2, 0),
			xyz(x+size/2, y+size/2, float64(s.Height)*size),
		)
	}

	return mesh
}

// SaveSTL writes the city Mesh to fpath as a binary STL
func (c *City) SaveSTL(fpath string) error {
	data := model3d.EncodeSTL(c.Mesh().TriangleSlice())
	return os.WriteFile(fpath, data, 0644)
}

// xyz is shorthand for a Coord3D
func xyz(x, y, z float64) model3d.Coord3D {
	return model3d.Coord3D{X: x, Y: y, Z: z}
}

// addBox adds the 12 triangles of an axis aligned box to mesh,
// faces wound counter-clockwise when seen from outside
func addBox(mesh *model3d.Mesh, min, max model3d.Coord3D) {
	corner := func(i int) model3d.Coord3D {
		c := min
		if i&1 != 0 {
			c.X = max.X
		}
		if i&2 != 0 {
			c.Y = max.Y
		}
		if i&4 != 0 {
			c.Z = max.Z
		}
		return c
	}

	// each face as 4 corners, counter-clockwise from outside
	faces := [6][4]int{
		{0, 2, 3, 1}, // bottom (-z)
		{4, 5, 7, 6}, // top (+z)
		{0, 1, 5, 4}, // -y
		{2, 6, 7, 3}, // +y
		{0, 4, 6, 2}, // -x
		{1, 3, 7, 5}, // +x
	}
	for _, f := range faces {
		a, b, cc, d := corner(f[0]), corner(f[1]), corner(f[2]), corner(f[3])
		mesh.Add(&model3d.Triangle{a, b, cc})
		mesh.Add(&model3d.Triangle{a, cc, d})
	}
}
