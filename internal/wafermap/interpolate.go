package wafermap

import (
	"fmt"
	"math"

	"github.com/fogleman/delaunay"
	"gonum.org/v1/gonum/spatial/kdtree"

	"github.com/fabsight-data/wafer.report/internal/monitoring"
)

// Grid is a regular square raster of interpolated measurements over the
// wafer disc. Values is row-major: Values[iy][ix] pairs with YAxis[iy] and
// XAxis[ix]. Cells outside the wafer radius, and cells no interpolation
// strategy could fill, hold NaN.
type Grid struct {
	XAxis      []float64
	YAxis      []float64
	Values     [][]float64
	Radius     float64
	Resolution int

	// Method records which strategy produced the raster: "linear",
	// "nearest" or "empty".
	Method string
}

// Interpolate rasterizes a point cloud onto a resolution x resolution grid
// spanning [-radius, +radius] on both axes. Triangulated linear
// interpolation is tried first; when the sample geometry cannot support a
// triangulation (too few sites, collinear layouts) it degrades to
// nearest-neighbor, and as a last resort returns an all-NaN raster rather
// than failing the render.
func Interpolate(pc *PointCloud, resolution int) (*Grid, error) {
	if pc == nil || pc.Len() == 0 {
		return nil, fmt.Errorf("%w: empty point cloud", ErrInvalidInput)
	}
	if resolution < 2 {
		return nil, fmt.Errorf("%w: resolution %d below minimum 2", ErrInvalidInput, resolution)
	}

	radius := pc.Radius()
	if radius == 0 {
		// All points at the origin. Span a unit disc so the axes are
		// still well formed.
		radius = 1
	}

	g := &Grid{
		XAxis:      linspace(-radius, radius, resolution),
		YAxis:      linspace(-radius, radius, resolution),
		Radius:     radius,
		Resolution: resolution,
	}
	g.Values = make([][]float64, resolution)
	for iy := range g.Values {
		row := make([]float64, resolution)
		for ix := range row {
			row[ix] = math.NaN()
		}
		g.Values[iy] = row
	}

	valid := make([]Point, 0, pc.Len())
	for _, p := range pc.points {
		if !math.IsNaN(p.Data) && !math.IsInf(p.Data, 0) {
			valid = append(valid, p)
		}
	}
	if len(valid) == 0 {
		g.Method = "empty"
		return g, nil
	}

	if li, err := newLinearInterpolator(valid); err == nil {
		g.Method = "linear"
		g.fill(li.At)
	} else {
		monitoring.Logf("wafermap: linear interpolation unavailable (%v), using nearest-neighbor", err)
		g.Method = "nearest"
		nn := newNearestInterpolator(valid)
		g.fill(nn.At)
	}
	return g, nil
}

// fill evaluates at over every in-disc grid node and masks the rest.
func (g *Grid) fill(at func(x, y float64) float64) {
	for iy, y := range g.YAxis {
		for ix, x := range g.XAxis {
			if math.Hypot(x, y) > g.Radius {
				continue
			}
			g.Values[iy][ix] = at(x, y)
		}
	}
}

// Flatten returns the raster as a single row-major slice.
func (g *Grid) Flatten() []float64 {
	out := make([]float64, 0, g.Resolution*g.Resolution)
	for _, row := range g.Values {
		out = append(out, row...)
	}
	return out
}

// ValidCount returns the number of non-NaN cells.
func (g *Grid) ValidCount() int {
	n := 0
	for _, row := range g.Values {
		for _, v := range row {
			if !math.IsNaN(v) {
				n++
			}
		}
	}
	return n
}

func linspace(lo, hi float64, n int) []float64 {
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	out[n-1] = hi
	return out
}

// linearInterpolator evaluates barycentric interpolation over a Delaunay
// triangulation of the sample sites. Triangle lookup uses a coarse bucket
// index over triangle bounding boxes so grid fills stay O(cells).
type linearInterpolator struct {
	pts  []delaunay.Point
	vals []float64
	tris []int

	buckets    [][]int
	nb         int
	minX, minY float64
	invW, invH float64
}

func newLinearInterpolator(points []Point) (*linearInterpolator, error) {
	// Exact duplicate sites would produce degenerate triangles; keep the
	// first value seen at each site.
	type site struct{ x, y float64 }
	seen := make(map[site]bool, len(points))
	pts := make([]delaunay.Point, 0, len(points))
	vals := make([]float64, 0, len(points))
	for _, p := range points {
		s := site{p.X, p.Y}
		if seen[s] {
			continue
		}
		seen[s] = true
		pts = append(pts, delaunay.Point{X: p.X, Y: p.Y})
		vals = append(vals, p.Data)
	}
	if len(pts) < 3 {
		return nil, fmt.Errorf("%d distinct sites, need 3", len(pts))
	}

	tri, err := delaunay.Triangulate(pts)
	if err != nil {
		return nil, err
	}
	if len(tri.Triangles) == 0 {
		return nil, fmt.Errorf("degenerate site layout")
	}

	li := &linearInterpolator{pts: pts, vals: vals, tris: tri.Triangles}
	li.buildIndex()
	return li, nil
}

func (li *linearInterpolator) buildIndex() {
	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range li.pts {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	nb := int(math.Sqrt(float64(len(li.tris) / 3)))
	if nb < 1 {
		nb = 1
	}
	if nb > 64 {
		nb = 64
	}
	li.nb = nb
	li.minX, li.minY = minX, minY
	w, h := maxX-minX, maxY-minY
	if w == 0 {
		w = 1
	}
	if h == 0 {
		h = 1
	}
	li.invW = float64(nb) / w
	li.invH = float64(nb) / h

	li.buckets = make([][]int, nb*nb)
	for t := 0; t < len(li.tris); t += 3 {
		a, b, c := li.pts[li.tris[t]], li.pts[li.tris[t+1]], li.pts[li.tris[t+2]]
		x0 := li.bucketX(math.Min(a.X, math.Min(b.X, c.X)))
		x1 := li.bucketX(math.Max(a.X, math.Max(b.X, c.X)))
		y0 := li.bucketY(math.Min(a.Y, math.Min(b.Y, c.Y)))
		y1 := li.bucketY(math.Max(a.Y, math.Max(b.Y, c.Y)))
		for by := y0; by <= y1; by++ {
			for bx := x0; bx <= x1; bx++ {
				i := by*nb + bx
				li.buckets[i] = append(li.buckets[i], t)
			}
		}
	}
}

func (li *linearInterpolator) bucketX(x float64) int {
	b := int((x - li.minX) * li.invW)
	if b < 0 {
		b = 0
	}
	if b >= li.nb {
		b = li.nb - 1
	}
	return b
}

func (li *linearInterpolator) bucketY(y float64) int {
	b := int((y - li.minY) * li.invH)
	if b < 0 {
		b = 0
	}
	if b >= li.nb {
		b = li.nb - 1
	}
	return b
}

// At returns the linearly interpolated value at (x, y), or NaN when the
// query point falls outside the convex hull of the sample sites. Matching
// hull-clipping behavior keeps edge cells unbiased instead of extrapolated.
func (li *linearInterpolator) At(x, y float64) float64 {
	const eps = 1e-12
	for _, t := range li.buckets[li.bucketY(y)*li.nb+li.bucketX(x)] {
		a, b, c := li.pts[li.tris[t]], li.pts[li.tris[t+1]], li.pts[li.tris[t+2]]
		det := (b.Y-c.Y)*(a.X-c.X) + (c.X-b.X)*(a.Y-c.Y)
		if det == 0 {
			continue
		}
		wa := ((b.Y-c.Y)*(x-c.X) + (c.X-b.X)*(y-c.Y)) / det
		wb := ((c.Y-a.Y)*(x-c.X) + (a.X-c.X)*(y-c.Y)) / det
		wc := 1 - wa - wb
		if wa < -eps || wb < -eps || wc < -eps {
			continue
		}
		return wa*li.vals[li.tris[t]] + wb*li.vals[li.tris[t+1]] + wc*li.vals[li.tris[t+2]]
	}
	return math.NaN()
}

// nearestInterpolator answers point queries with the value of the closest
// sample site, via a k-d tree over the site coordinates.
type nearestInterpolator struct {
	tree *kdtree.Tree
}

type kdSite struct {
	x, y float64
	val  float64
}

func (s kdSite) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	q := c.(kdSite)
	switch d {
	case 0:
		return s.x - q.x
	default:
		return s.y - q.y
	}
}

func (s kdSite) Dims() int { return 2 }

func (s kdSite) Distance(c kdtree.Comparable) float64 {
	q := c.(kdSite)
	dx, dy := s.x-q.x, s.y-q.y
	return dx*dx + dy*dy
}

type kdSites []kdSite

func (s kdSites) Index(i int) kdtree.Comparable { return s[i] }
func (s kdSites) Len() int                      { return len(s) }
func (s kdSites) Slice(start, end int) kdtree.Interface {
	return s[start:end]
}
func (s kdSites) Pivot(d kdtree.Dim) int {
	return kdSitePlane{Dim: d, kdSites: s}.Pivot()
}

type kdSitePlane struct {
	kdtree.Dim
	kdSites
}

func (p kdSitePlane) Less(i, j int) bool {
	switch p.Dim {
	case 0:
		return p.kdSites[i].x < p.kdSites[j].x
	default:
		return p.kdSites[i].y < p.kdSites[j].y
	}
}
func (p kdSitePlane) Pivot() int {
	return kdtree.Partition(p, kdtree.MedianOfRandoms(p, 100))
}
func (p kdSitePlane) Slice(start, end int) kdtree.SortSlicer {
	p.kdSites = p.kdSites[start:end]
	return p
}
func (p kdSitePlane) Swap(i, j int) {
	p.kdSites[i], p.kdSites[j] = p.kdSites[j], p.kdSites[i]
}

func newNearestInterpolator(points []Point) *nearestInterpolator {
	sites := make(kdSites, len(points))
	for i, p := range points {
		sites[i] = kdSite{x: p.X, y: p.Y, val: p.Data}
	}
	return &nearestInterpolator{tree: kdtree.New(sites, false)}
}

func (ni *nearestInterpolator) At(x, y float64) float64 {
	got, _ := ni.tree.Nearest(kdSite{x: x, y: y})
	if got == nil {
		return math.NaN()
	}
	return got.(kdSite).val
}
