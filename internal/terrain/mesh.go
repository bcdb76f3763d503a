package terrain

import (
	stdmath "math"

	"github.com/Faultbox/dunestream/pkg/math"
)

// lodStep returns the sample stride for a LOD level: every 2^lod-th
// vertex, never coarser than one quad per chunk.
func lodStep(level uint32, nb int) int {
	if level >= 30 {
		return nb
	}
	return min(int(1)<<level, nb)
}

// SampleHeights samples the heightfield of chunk coord at a LOD level.
//
// The sampled square is SkirtRatio times the chunk size. Past the chunk
// edge heights slope down quadratically so overlapping neighbours of
// different LOD hide each other's seams.
func SampleHeights(p Params, coord math.IVec2, level uint32, hf HeightFunc) *Heightfield {
	nb := max(p.NbVertices, 1)
	inc := lodStep(level, nb)
	extent := p.Size * SkirtRatio
	half := p.Size / 2
	offset := coord.Vec2().Scale(p.Size)

	h := newHeightfield(p, level)
	h.Samples = make([]float32, 0, h.Side*h.Side)

	for iy := 0; iy <= nb; iy += inc {
		y := (float32(iy) - float32(nb)/2) / float32(nb) * extent
		for ix := 0; ix <= nb; ix += inc {
			x := (float32(ix) - float32(nb)/2) / float32(nb) * extent

			edge := max(absf(x), absf(y))/half - 1
			skirt := float32(stdmath.Pow(float64(max(edge, 0)/(SkirtRatio-1)), 2))

			n := hf.Height(
				float64((x+offset.X)*p.Scale),
				float64((y+offset.Y)*p.Scale),
			)
			base := max(n+p.Skew, 0)
			z := float32(stdmath.Pow(base, p.Power)-p.Skew)*float32(p.Amplitude) - 3*skirt

			h.Samples = append(h.Samples, z)
		}
	}
	return h
}

// newHeightfield returns the empty field layout for a LOD level.
func newHeightfield(p Params, level uint32) *Heightfield {
	nb := max(p.NbVertices, 1)
	inc := lodStep(level, nb)
	extent := p.Size * SkirtRatio
	return &Heightfield{
		Side:   nb/inc + 1,
		Step:   extent * float32(inc) / float32(nb),
		Origin: -extent / 2,
	}
}

// BuildMesh triangulates a heightfield. Y is up; the heightfield's rows
// run along Z.
func BuildMesh(h *Heightfield) *Mesh {
	side := h.Side
	m := &Mesh{
		Vertices: make([]Vertex, 0, side*side),
		Bounds: Bounds{
			Min: [3]float32{stdmath.MaxFloat32, stdmath.MaxFloat32, stdmath.MaxFloat32},
			Max: [3]float32{-stdmath.MaxFloat32, -stdmath.MaxFloat32, -stdmath.MaxFloat32},
		},
	}

	for iy := 0; iy < side; iy++ {
		for ix := 0; ix < side; ix++ {
			pos := [3]float32{
				h.Origin + float32(ix)*h.Step,
				h.At(ix, iy),
				h.Origin + float32(iy)*h.Step,
			}
			updateBounds(&m.Bounds, pos)
			m.Vertices = append(m.Vertices, Vertex{Position: pos})
		}
	}

	if side > 1 {
		m.Indices = make([]uint32, 0, (side-1)*(side-1)*6)
	}
	stride := uint32(side)
	for iy := 0; iy < side-1; iy++ {
		for ix := 0; ix < side-1; ix++ {
			v := uint32(iy*side + ix)
			m.Indices = append(m.Indices,
				v, v+stride, v+1,
				v+stride, v+stride+1, v+1,
			)
		}
	}

	computeNormals(m)
	return m
}

// computeNormals sets smooth per-vertex normals by summing the normals of
// adjacent faces.
func computeNormals(m *Mesh) {
	sums := make([]math.Vec3, len(m.Vertices))
	for i := 0; i+2 < len(m.Indices); i += 3 {
		a, b, c := m.Indices[i], m.Indices[i+1], m.Indices[i+2]
		pa, pb, pc := vec3(m.Vertices[a].Position), vec3(m.Vertices[b].Position), vec3(m.Vertices[c].Position)
		n := pb.Sub(pa).Cross(pc.Sub(pa))
		for _, idx := range [3]uint32{a, b, c} {
			s := &sums[idx]
			s.X, s.Y, s.Z = s.X+n.X, s.Y+n.Y, s.Z+n.Z
		}
	}
	for i := range m.Vertices {
		n := sums[i].Normalize()
		if n == (math.Vec3{}) {
			n = math.Vec3{Y: 1}
		}
		m.Vertices[i].Normal = [3]float32{n.X, n.Y, n.Z}
	}
}

// HeightAt returns the bilinearly interpolated height at a chunk-local
// position. Positions outside the field are clamped to its edge.
func (h *Heightfield) HeightAt(x, y float32) float32 {
	if h.Side < 2 {
		if len(h.Samples) == 0 {
			return 0
		}
		return h.Samples[0]
	}

	fx := (x - h.Origin) / h.Step
	fy := (y - h.Origin) / h.Step
	cx := clampi(int(stdmath.Floor(float64(fx))), 0, h.Side-2)
	cy := clampi(int(stdmath.Floor(float64(fy))), 0, h.Side-2)
	tx := clampf(fx-float32(cx), 0, 1)
	ty := clampf(fy-float32(cy), 0, 1)

	near := h.At(cx, cy)*(1-tx) + h.At(cx+1, cy)*tx
	far := h.At(cx, cy+1)*(1-tx) + h.At(cx+1, cy+1)*tx
	return near*(1-ty) + far*ty
}

func vec3(p [3]float32) math.Vec3 {
	return math.Vec3{X: p[0], Y: p[1], Z: p[2]}
}

func updateBounds(b *Bounds, p [3]float32) {
	for i := 0; i < 3; i++ {
		b.Min[i] = min(b.Min[i], p[i])
		b.Max[i] = max(b.Max[i], p[i])
	}
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

func clampf(v, lo, hi float32) float32 {
	return min(max(v, lo), hi)
}

func clampi(v, lo, hi int) int {
	return min(max(v, lo), hi)
}
