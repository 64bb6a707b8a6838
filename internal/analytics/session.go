package analytics

import (
	"fmt"
	"sync"

	"gonum.org/v1/gonum/mat"

	"github.com/fabsight-data/wafer.report/internal/monitoring"
	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

// Engine runs the full detection pipeline. It owns the tunable model
// parameters; per-cohort state lives in a Session.
type Engine struct {
	thresholds wafermap.ClassifierThresholds
	trees      int
	subsample  int
	seed       int64

	// reduce is the projection step, swappable by tests to count
	// invocations.
	reduce func(*mat.Dense) (*ProjectionResult, error)
}

// EngineOption adjusts engine construction.
type EngineOption func(*Engine)

// WithClassifierThresholds overrides the pattern classifier cut points.
func WithClassifierThresholds(th wafermap.ClassifierThresholds) EngineOption {
	return func(e *Engine) { e.thresholds = th }
}

// WithForestParams overrides the isolation forest ensemble sizing.
func WithForestParams(trees, subsample int, seed int64) EngineOption {
	return func(e *Engine) {
		e.trees = trees
		e.subsample = subsample
		e.seed = seed
	}
}

// NewEngine returns a detection engine with production defaults.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		thresholds: wafermap.DefaultClassifierThresholds(),
		trees:      defaultTrees,
		subsample:  defaultSubsample,
		seed:       defaultSeed,
	}
	e.reduce = Project
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Session holds the two-tier model cache for one wafer cohort. The
// projection tier (features + PCA) is keyed by wafer set and resolution;
// the detection tier is keyed by projection plus contamination. A
// contamination change invalidates only the detection tier.
type Session struct {
	mu sync.Mutex

	projectionKey string
	projection    *ProjectionResult
	names         []string
	validMask     []bool

	detectionKey string
	detection    *DetectionResult
}

// NewSession returns an empty model cache.
func NewSession() *Session { return &Session{} }

// RunResult is one complete detection outcome: the projection, the
// detection, a per-wafer pattern call, and which cache tiers were reused.
type RunResult struct {
	Names     []string
	ValidMask []bool

	Projection *ProjectionResult
	Detection  *DetectionResult
	Patterns   map[string]wafermap.PatternLabel

	ProjectionReused bool
	DetectionReused  bool
	Warnings         []string
}

// Run executes (or reuses) the detection pipeline for a wafer cohort.
// Steps: extract features and project when the cohort or resolution
// changed, score with the isolation forest when contamination additionally
// changed, then classify each usable wafer's spatial pattern. Fewer than
// MinWafers usable wafers is an error; fewer than LowConfidenceWafers
// only a warning.
func (e *Engine) Run(sess *Session, wafers []Wafer, resolution int, contamination float64) (*RunResult, error) {
	if e == nil {
		return nil, ErrModelUnavailable
	}

	names := make([]string, len(wafers))
	for i, w := range wafers {
		names[i] = w.Name
	}
	projKey := ProjectionKey(names, resolution)

	sess.mu.Lock()
	defer sess.mu.Unlock()

	res := &RunResult{}

	if sess.projectionKey == projKey && sess.projection != nil {
		res.ProjectionReused = true
		res.Names = sess.names
		res.ValidMask = sess.validMask
		res.Projection = sess.projection
	} else {
		fm, err := ExtractFeatures(wafers, resolution)
		if err != nil {
			return nil, err
		}
		for i, ok := range fm.ValidMask {
			if !ok {
				res.Warnings = append(res.Warnings,
					fmt.Sprintf("wafer %q excluded: interpolation produced too few valid cells", wafers[i].Name))
			}
		}
		if len(fm.Names) < MinWafers {
			return nil, fmt.Errorf("%w: %d usable wafers, need %d", ErrInsufficientSamples, len(fm.Names), MinWafers)
		}

		proj, err := e.reduce(fm.Matrix)
		if err != nil {
			return nil, err
		}
		sess.projectionKey = projKey
		sess.projection = proj
		sess.names = fm.Names
		sess.validMask = fm.ValidMask
		sess.detectionKey = ""
		sess.detection = nil

		res.Names = fm.Names
		res.ValidMask = fm.ValidMask
		res.Projection = proj
		monitoring.Logf("analytics: projection rebuilt for %d wafers at resolution %d", len(fm.Names), resolution)
	}

	if len(res.Names) < LowConfidenceWafers {
		res.Warnings = append(res.Warnings,
			fmt.Sprintf("only %d usable wafers; detection confidence is low", len(res.Names)))
	}

	detKey := DetectionKey(projKey, contamination)
	if sess.detectionKey == detKey && sess.detection != nil {
		res.DetectionReused = true
		res.Detection = sess.detection
	} else {
		forest := &IsolationForest{Trees: e.trees, Subsample: e.subsample, Seed: e.seed}
		det, err := Detect(res.Projection, contamination, forest)
		if err != nil {
			return nil, err
		}
		sess.detectionKey = detKey
		sess.detection = det
		res.Detection = det
	}

	res.Patterns = make(map[string]wafermap.PatternLabel, len(res.Names))
	byName := make(map[string]*wafermap.PointCloud, len(wafers))
	for _, w := range wafers {
		byName[w.Name] = w.Cloud
	}
	for _, name := range res.Names {
		res.Patterns[name] = wafermap.Classify(byName[name], e.thresholds)
	}
	return res, nil
}
