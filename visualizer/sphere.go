package visualizer

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

type SphereOptions struct {
	Width, Height int // pixel grid; two pixel rows per text line
	Radius        float64
	Detail        int // edge subdivisions of the base icosahedron
	Decay         float64
}

func DefaultSphereOptions() SphereOptions {
	return SphereOptions{Width: 44, Height: 30, Radius: 1.8, Detail: 5, Decay: DefaultDecay}
}

const (
	cameraZ   = 5.0
	cameraFOV = 75.0 // degrees, vertical
	zoom      = 1.6
	rotStepX  = 0.001
	rotStepY  = 0.002
)

var (
	spherePaletteIdle = []Color{
		{},
		{"45", 0, 215, 255},
		{"39", 0, 175, 255},
		{"32", 0, 135, 215},
		{"24", 0, 95, 135},
	}
	spherePaletteActive = []Color{
		{},
		{"213", 255, 135, 255},
		{"171", 215, 95, 255},
		{"134", 175, 95, 215},
		{"54", 95, 0, 135},
	}
)

// Sphere is a displaced wireframe icosphere projected onto a pixel grid.
type Sphere struct {
	opts     SphereOptions
	base     []r3.Vec
	edges    [][2]int
	smoother *Smoother
	target   float64
	active   bool
	rotX     float64
	rotY     float64
	frame    *Frame
	depth    []float64
	disposed bool
}

func NewSphere(opts SphereOptions) (*Sphere, error) {
	if opts.Width < 8 || opts.Height < 8 {
		return nil, fmt.Errorf("sphere grid %dx%d too small", opts.Width, opts.Height)
	}
	if opts.Radius <= 0 {
		return nil, fmt.Errorf("sphere radius %g must be positive", opts.Radius)
	}
	if opts.Detail < 0 || opts.Detail > 10 {
		return nil, fmt.Errorf("sphere detail %d out of range [0, 10]", opts.Detail)
	}
	if opts.Decay <= 0 || opts.Decay > 1 {
		opts.Decay = DefaultDecay
	}
	base, edges := icosphere(opts.Radius, opts.Detail)
	return &Sphere{
		opts:     opts,
		base:     base,
		edges:    edges,
		smoother: NewSmoother(opts.Decay),
		frame:    NewFrame(opts.Width, opts.Height, spherePaletteIdle),
		depth:    make([]float64, opts.Width*opts.Height),
	}, nil
}

func (s *Sphere) Vertices() int { return len(s.base) }
func (s *Sphere) Edges() int    { return len(s.edges) }
func (s *Sphere) Level() float64 {
	return s.smoother.Value()
}

func (s *Sphere) Start() error {
	if s.disposed {
		return ErrDisposed
	}
	s.active = true
	s.target = 0
	return nil
}

func (s *Sphere) Stop() error {
	if s.disposed {
		return ErrDisposed
	}
	s.active = false
	return nil
}

// Update takes the band average of spectrum as the feed and targets the
// larger of it and three times the full-spectrum mean.
func (s *Sphere) Update(spectrum []uint8) error {
	if s.disposed {
		return ErrDisposed
	}
	if !s.active {
		return nil
	}
	feed := BandAverage(spectrum, 0.2, 0.8)
	s.target = math.Max(feed, Mean(spectrum)*3)
	return nil
}

func (s *Sphere) Draw(elapsed time.Duration) (*Frame, error) {
	if s.disposed {
		return nil, ErrDisposed
	}
	target := IdleLevel
	if s.active {
		target = s.target
	}
	level := s.smoother.Next(target)
	s.rotX += rotStepX
	s.rotY += rotStepY

	palette := spherePaletteIdle
	if s.active {
		palette = spherePaletteActive
	}
	f := NewFrame(s.opts.Width, s.opts.Height, palette)
	for i := range s.depth {
		s.depth[i] = math.Inf(-1)
	}

	secs := elapsed.Seconds()
	type point struct {
		x, y, z float64
		ok      bool
	}
	pts := make([]point, len(s.base))
	rotX := r3.NewRotation(s.rotX, r3.Vec{X: 1})
	rotY := r3.NewRotation(s.rotY, r3.Vec{Y: 1})
	focal := 1 / math.Tan(cameraFOV*math.Pi/360)
	scale := float64(s.opts.Height) / 2 * zoom

	for i, b := range s.base {
		p := rotY.Rotate(rotX.Rotate(Displace(b, s.opts.Radius, level, s.active, secs)))
		x, y, z := p.X, p.Y, p.Z

		d := cameraZ - z
		if d <= 0.1 {
			continue
		}
		pts[i] = point{
			x:  float64(s.opts.Width)/2 + focal*x/d*scale,
			y:  float64(s.opts.Height)/2 - focal*y/d*scale,
			z:  z,
			ok: true,
		}
	}

	for _, e := range s.edges {
		a, b := pts[e[0]], pts[e[1]]
		if !a.ok || !b.ok {
			continue
		}
		z := (a.z + b.z) / 2
		s.line(f, int(math.Round(a.x)), int(math.Round(a.y)), int(math.Round(b.x)), int(math.Round(b.y)), z, shade(z, s.opts.Radius))
	}
	s.frame = f
	return f, nil
}

// shade maps depth to a palette index, nearest edges brightest.
func shade(z, radius float64) uint8 {
	t := (z/radius + 1) / 2 // 0 back, 1 front
	switch {
	case t > 0.75:
		return 1
	case t > 0.5:
		return 2
	case t > 0.25:
		return 3
	}
	return 4
}

func (s *Sphere) line(f *Frame, x0, y0, x1, y1 int, z float64, c uint8) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	stepX, stepY := 1, 1
	if x0 > x1 {
		stepX = -1
	}
	if y0 > y1 {
		stepY = -1
	}
	errv := dx + dy
	for {
		s.plot(f, x0, y0, z, c)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * errv
		if e2 >= dy {
			errv += dy
			x0 += stepX
		}
		if e2 <= dx {
			errv += dx
			y0 += stepY
		}
	}
}

func (s *Sphere) plot(f *Frame, x, y int, z float64, c uint8) {
	if x < 0 || y < 0 || x >= f.W || y >= f.H {
		return
	}
	i := y*f.W + x
	if z > s.depth[i] {
		s.depth[i] = z
		f.Pix[i] = c
	}
}

func (s *Sphere) Dispose() {
	s.disposed = true
	s.base = nil
	s.edges = nil
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

var icoFaces = [20][3]int{
	{0, 11, 5}, {0, 5, 1}, {0, 1, 7}, {0, 7, 10}, {0, 10, 11},
	{1, 5, 9}, {5, 11, 4}, {11, 10, 2}, {10, 7, 6}, {7, 1, 8},
	{3, 9, 4}, {3, 4, 2}, {3, 2, 6}, {3, 6, 8}, {3, 8, 9},
	{4, 9, 5}, {2, 4, 11}, {6, 2, 10}, {8, 6, 7}, {9, 8, 1},
}

func icoVertices() []r3.Vec {
	t := (1 + math.Sqrt(5)) / 2
	return []r3.Vec{
		{X: -1, Y: t}, {X: 1, Y: t}, {X: -1, Y: -t}, {X: 1, Y: -t},
		{Y: -1, Z: t}, {Y: 1, Z: t}, {Y: -1, Z: -t}, {Y: 1, Z: -t},
		{X: t, Z: -1}, {X: t, Z: 1}, {X: -t, Z: -1}, {X: -t, Z: 1},
	}
}

func lerp(a, b r3.Vec, t float64) r3.Vec {
	return r3.Add(a, r3.Scale(t, r3.Sub(b, a)))
}

// icosphere subdivides every icosahedron face into (detail+1)^2 triangles
// and projects the vertices onto the sphere. Shared vertices and edges are
// merged.
func icosphere(radius float64, detail int) ([]r3.Vec, [][2]int) {
	ico := icoVertices()
	var verts []r3.Vec
	index := make(map[[3]int64]int)
	vertex := func(v r3.Vec) int {
		v = r3.Scale(radius, r3.Unit(v))
		key := [3]int64{int64(math.Round(v.X * 1e6)), int64(math.Round(v.Y * 1e6)), int64(math.Round(v.Z * 1e6))}
		if i, ok := index[key]; ok {
			return i
		}
		verts = append(verts, v)
		index[key] = len(verts) - 1
		return len(verts) - 1
	}

	edgeSet := make(map[[2]int]struct{})
	addEdge := func(a, b int) {
		if a == b {
			return
		}
		if a > b {
			a, b = b, a
		}
		edgeSet[[2]int{a, b}] = struct{}{}
	}
	tri := func(a, b, c int) {
		addEdge(a, b)
		addEdge(b, c)
		addEdge(c, a)
	}

	cols := detail + 1
	for _, face := range icoFaces {
		a, b, c := ico[face[0]], ico[face[1]], ico[face[2]]
		grid := make([][]int, cols+1)
		for i := 0; i <= cols; i++ {
			aj := lerp(a, c, float64(i)/float64(cols))
			bj := lerp(b, c, float64(i)/float64(cols))
			rows := cols - i
			grid[i] = make([]int, rows+1)
			for j := 0; j <= rows; j++ {
				if j == 0 && i == cols {
					grid[i][j] = vertex(aj)
				} else {
					grid[i][j] = vertex(lerp(aj, bj, float64(j)/float64(rows)))
				}
			}
		}
		for i := 0; i < cols; i++ {
			for j := 0; j < 2*(cols-i)-1; j++ {
				k := j / 2
				if j%2 == 0 {
					tri(grid[i][k+1], grid[i+1][k], grid[i][k])
				} else {
					tri(grid[i][k+1], grid[i+1][k+1], grid[i+1][k])
				}
			}
		}
	}

	edges := make([][2]int, 0, len(edgeSet))
	for e := range edgeSet {
		edges = append(edges, e)
	}
	return verts, edges
}
