// Package wafermap implements the numeric core of the wafer-map analysis
// pipeline: the canonical point-record schema, grid interpolation with a
// circular wafer mask, summary statistics, radial zone partitioning,
// line-scan profiles, growth-per-cycle derivation, and the rule-based
// spatial pattern classifier.
package wafermap

import (
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
)

// Sentinel errors for boundary validation. Handlers match these with
// errors.Is to choose a response status.
var (
	// ErrInvalidInput marks an empty or malformed point cloud (missing
	// required columns, zero valid rows after null filtering).
	ErrInvalidInput = errors.New("wafermap: invalid input")

	// ErrTooFewPoints marks a point cloud with too few samples for the
	// requested operation.
	ErrTooFewPoints = errors.New("wafermap: too few points")
)

// Record is one row of the canonical interchange schema crossing the UI
// boundary. Exactly three columns, named x, y and data; every downstream
// component depends on this naming. Pointer fields distinguish a null cell
// from an explicit zero.
type Record struct {
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Data *float64 `json:"data"`
}

// Point is one metrology sample: spatial coordinates in millimetres from
// the wafer centre and a scalar measurement. A NaN measurement means the
// site was recorded but produced no usable value.
type Point struct {
	X    float64
	Y    float64
	Data float64
}

// PointCloud is an immutable, ordered collection of samples for one wafer.
// Records with null coordinates are dropped at construction; a cloud with
// zero remaining rows is rejected.
type PointCloud struct {
	points      []Point
	radius      float64
	fingerprint string
}

// NewPointCloud validates and ingests canonical records. Rows with a null
// x or y are dropped; a null data cell becomes NaN so the grid pipeline can
// mask it. Returns ErrInvalidInput when no valid rows remain.
func NewPointCloud(records []Record) (*PointCloud, error) {
	points := make([]Point, 0, len(records))
	for _, rec := range records {
		if rec.X == nil || rec.Y == nil {
			continue
		}
		if math.IsNaN(*rec.X) || math.IsNaN(*rec.Y) || math.IsInf(*rec.X, 0) || math.IsInf(*rec.Y, 0) {
			continue
		}
		p := Point{X: *rec.X, Y: *rec.Y, Data: math.NaN()}
		if rec.Data != nil {
			p.Data = *rec.Data
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no rows with numeric coordinates", ErrInvalidInput)
	}
	return newPointCloudFromPoints(points), nil
}

// NewPointCloudFromSlices builds a cloud from parallel coordinate and value
// slices. Used by derived-measurement paths (GPC) that assemble columns
// programmatically rather than from uploaded records.
func NewPointCloudFromSlices(x, y, data []float64) (*PointCloud, error) {
	if len(x) != len(y) || len(x) != len(data) {
		return nil, fmt.Errorf("%w: column lengths differ (x=%d y=%d data=%d)",
			ErrInvalidInput, len(x), len(y), len(data))
	}
	points := make([]Point, 0, len(x))
	for i := range x {
		if math.IsNaN(x[i]) || math.IsNaN(y[i]) || math.IsInf(x[i], 0) || math.IsInf(y[i], 0) {
			continue
		}
		points = append(points, Point{X: x[i], Y: y[i], Data: data[i]})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no rows with numeric coordinates", ErrInvalidInput)
	}
	return newPointCloudFromPoints(points), nil
}

func newPointCloudFromPoints(points []Point) *PointCloud {
	radius := 0.0
	h := md5.New()
	var buf [24]byte
	for _, p := range points {
		if r := math.Hypot(p.X, p.Y); r > radius {
			radius = r
		}
		binary.LittleEndian.PutUint64(buf[0:], math.Float64bits(p.X))
		binary.LittleEndian.PutUint64(buf[8:], math.Float64bits(p.Y))
		binary.LittleEndian.PutUint64(buf[16:], math.Float64bits(p.Data))
		h.Write(buf[:])
	}
	return &PointCloud{
		points:      points,
		radius:      radius,
		fingerprint: hex.EncodeToString(h.Sum(nil))[:16],
	}
}

// Len returns the number of valid samples.
func (pc *PointCloud) Len() int { return len(pc.points) }

// Radius returns the maximum observed distance from the wafer centre.
func (pc *PointCloud) Radius() float64 { return pc.radius }

// Fingerprint returns a short stable digest of the cloud contents. Cache
// keys are built from this rather than from the mutable in-memory slices,
// so two uploads of identical data share cache entries.
func (pc *PointCloud) Fingerprint() string { return pc.fingerprint }

// Points returns a copy of the samples in upload order.
func (pc *PointCloud) Points() []Point {
	out := make([]Point, len(pc.points))
	copy(out, pc.points)
	return out
}

// Columns returns copies of the x, y and data columns in upload order.
func (pc *PointCloud) Columns() (x, y, data []float64) {
	x = make([]float64, len(pc.points))
	y = make([]float64, len(pc.points))
	data = make([]float64, len(pc.points))
	for i, p := range pc.points {
		x[i], y[i], data[i] = p.X, p.Y, p.Data
	}
	return x, y, data
}

// Records serializes the cloud back to the canonical three-column schema.
func (pc *PointCloud) Records() []Record {
	out := make([]Record, len(pc.points))
	for i := range pc.points {
		p := pc.points[i]
		x, y := p.X, p.Y
		out[i] = Record{X: &x, Y: &y}
		if !math.IsNaN(p.Data) {
			d := p.Data
			out[i].Data = &d
		}
	}
	return out
}
