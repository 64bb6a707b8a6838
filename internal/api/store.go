package api

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fabsight-data/wafer.report/internal/analytics"
	"github.com/fabsight-data/wafer.report/internal/cache"
	"github.com/fabsight-data/wafer.report/internal/timeutil"
	"github.com/fabsight-data/wafer.report/internal/wafermap"
)

// DefaultSessionTTL is how long an idle session survives before the next
// store access sweeps it away.
const DefaultSessionTTL = 4 * time.Hour

// Session is one analysis cohort: uploaded wafers in upload order, the
// ML model cache for anomaly runs, and a grid cache keyed by cloud
// fingerprint so repeated map requests interpolate once.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu      sync.Mutex
	order   []string
	wafers  map[string]*wafermap.PointCloud
	model   *analytics.Session
	lastRun *analytics.RunResult
	grids   *cache.Cache

	lastAccess time.Time
}

// WaferInfo is the listing view of one uploaded wafer.
type WaferInfo struct {
	Name        string  `json:"name"`
	Sites       int     `json:"sites"`
	Radius      float64 `json:"radius"`
	Fingerprint string  `json:"fingerprint"`
}

// AddWafer stores a wafer under name, replacing any previous upload of
// the same name. Any cohort mutation discards the ML cache along with the
// last anomaly result: the projection key hashes names and resolution only,
// so a same-name re-upload would otherwise be served stale results.
func (s *Session) AddWafer(name string, pc *wafermap.PointCloud) error {
	if name == "" {
		return fmt.Errorf("%w: wafer name is required", wafermap.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wafers[name]; !exists {
		s.order = append(s.order, name)
	}
	s.wafers[name] = pc
	s.invalidateMLLocked()
	return nil
}

// RemoveWafer deletes a wafer from the cohort. ML results are
// invalidated; the next run rebuilds both cache tiers for the new
// cohort key.
func (s *Session) RemoveWafer(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.wafers[name]; !ok {
		return false
	}
	delete(s.wafers, name)
	for i, n := range s.order {
		if n == name {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	s.invalidateMLLocked()
	return true
}

// invalidateMLLocked drops both cache tiers and the last run. Callers hold
// s.mu.
func (s *Session) invalidateMLLocked() {
	s.model = analytics.NewSession()
	s.lastRun = nil
}

// Cloud returns the named wafer's point cloud.
func (s *Session) Cloud(name string) (*wafermap.PointCloud, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pc, ok := s.wafers[name]
	return pc, ok
}

// Wafers lists the cohort in upload order.
func (s *Session) Wafers() []WaferInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]WaferInfo, 0, len(s.order))
	for _, name := range s.order {
		pc := s.wafers[name]
		out = append(out, WaferInfo{
			Name:        name,
			Sites:       pc.Len(),
			Radius:      pc.Radius(),
			Fingerprint: pc.Fingerprint(),
		})
	}
	return out
}

// Cohort returns the cohort as analytics input, in upload order.
func (s *Session) Cohort() []analytics.Wafer {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]analytics.Wafer, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, analytics.Wafer{Name: name, Cloud: s.wafers[name]})
	}
	return out
}

// Grid interpolates the named wafer at the given resolution, memoized per
// cloud fingerprint so chart and JSON views share one computation.
func (s *Session) Grid(name string, resolution int) (*wafermap.Grid, error) {
	pc, ok := s.Cloud(name)
	if !ok {
		return nil, fmt.Errorf("wafer %q not found", name)
	}
	key := fmt.Sprintf("%s|%d", pc.Fingerprint(), resolution)
	v, err := s.grids.GetOrCompute(key, func() (interface{}, error) {
		return wafermap.Interpolate(pc, resolution)
	})
	if err != nil {
		return nil, err
	}
	return v.(*wafermap.Grid), nil
}

// Model returns the session's ML cache.
func (s *Session) Model() *analytics.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.model
}

// SetLastRun records the most recent anomaly result for chart pages.
func (s *Session) SetLastRun(res *analytics.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = res
}

// LastRun returns the most recent anomaly result, if any.
func (s *Session) LastRun() (*analytics.RunResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastRun != nil
}

// Store is the in-memory session registry. Idle sessions are swept on
// access once their TTL elapses.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	clock    timeutil.Clock
	ttl      time.Duration
}

// NewStore creates a session store. A nil clock uses real time; a
// non-positive ttl disables expiry.
func NewStore(clock timeutil.Clock, ttl time.Duration) *Store {
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	return &Store{
		sessions: make(map[string]*Session),
		clock:    clock,
		ttl:      ttl,
	}
}

// Create registers a new empty session and returns it.
func (st *Store) Create() *Session {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()

	now := st.clock.Now()
	s := &Session{
		ID:         uuid.NewString(),
		CreatedAt:  now,
		lastAccess: now,
		wafers:     make(map[string]*wafermap.PointCloud),
		model:      analytics.NewSession(),
		grids:      cache.New(),
	}
	st.sessions[s.ID] = s
	return s
}

// Get looks up a session by ID and refreshes its idle timer.
func (st *Store) Get(id string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()

	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	s.lastAccess = st.clock.Now()
	return s, true
}

// Len reports the live session count.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.sweepLocked()
	return len(st.sessions)
}

func (st *Store) sweepLocked() {
	if st.ttl <= 0 {
		return
	}
	for id, s := range st.sessions {
		if st.clock.Since(s.lastAccess) > st.ttl {
			delete(st.sessions, id)
		}
	}
}
