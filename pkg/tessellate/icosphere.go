package tessellate

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// Icosphere returns a unit sphere built by subdividing an icosahedron
// subdiv times. subdiv = 0 is the bare icosahedron (12 vertices, 20 faces);
// each level multiplies the face count by four.
func Icosphere(subdiv int) ([]r3.Vec, [][3]int) {
	t := (1 + math.Sqrt(5)) / 2
	raw := []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
	vertices := make([]r3.Vec, len(raw))
	for i, v := range raw {
		vertices[i] = r3.Unit(v)
	}
	faces := [][3]int{
		{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
		{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
		{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
		{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
	}

	for level := 0; level < subdiv; level++ {
		mid := make(map[[2]int]int, len(faces)*3/2)
		midpoint := func(a, b int) int {
			key := [2]int{a, b}
			if a > b {
				key = [2]int{b, a}
			}
			if id, ok := mid[key]; ok {
				return id
			}
			id := len(vertices)
			vertices = append(vertices, r3.Unit(r3.Scale(0.5, r3.Add(vertices[a], vertices[b]))))
			mid[key] = id
			return id
		}

		next := make([][3]int, 0, len(faces)*4)
		for _, f := range faces {
			ab := midpoint(f[0], f[1])
			bc := midpoint(f[1], f[2])
			ca := midpoint(f[2], f[0])
			next = append(next,
				[3]int{f[0], ab, ca},
				[3]int{f[1], bc, ab},
				[3]int{f[2], ca, bc},
				[3]int{ab, bc, ca},
			)
		}
		faces = next
	}
	return vertices, faces
}
