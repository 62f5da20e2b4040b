// Package progress persists per-mission results between runs.
package progress

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/quasilyte/gdata/v2"
	"gopkg.in/yaml.v3"
)

const missionsObject = "missions"

// Result is the outcome of a single run.
type Result struct {
	Mission       string
	Completed     bool
	Duration      time.Duration
	ShotsFired    int
	Hits          int
	ZonesCleansed int
	ZonesTotal    int
	At            time.Time
}

// Accuracy is hits per shot, zero when nothing was fired.
func (r Result) Accuracy() float64 {
	if r.ShotsFired == 0 {
		return 0
	}
	return float64(r.Hits) / float64(r.ShotsFired)
}

// Record aggregates every run of a mission.
type Record struct {
	Mission       string        `yaml:"mission"`
	Runs          int           `yaml:"runs"`
	Completions   int           `yaml:"completions"`
	BestDuration  time.Duration `yaml:"bestDuration"` // fastest completed run
	BestAccuracy  float64       `yaml:"bestAccuracy"`
	ZonesCleansed int           `yaml:"zonesCleansed"` // most zones cleansed in one run
	ZonesTotal    int           `yaml:"zonesTotal"`
	LastPlayed    time.Time     `yaml:"lastPlayed"`
}

// Store loads and saves mission records. A Store without a gdata manager
// keeps records in memory only.
type Store struct {
	mu      sync.Mutex
	manager *gdata.Manager
	mem     map[string]Record
}

// Open creates a store backed by the platform data directory of appName.
func Open(appName string) (*Store, error) {
	m, err := gdata.Open(gdata.Config{AppName: appName})
	if err != nil {
		return nil, fmt.Errorf("opening progress store: %w", err)
	}
	return NewStore(m), nil
}

// NewStore wraps an existing manager. m may be nil.
func NewStore(m *gdata.Manager) *Store {
	return &Store{manager: m, mem: make(map[string]Record)}
}

// Persistent reports whether records survive the process.
func (s *Store) Persistent() bool { return s.manager != nil }

// Key maps a mission name to a storage property name.
func Key(mission string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(mission)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "unnamed"
	}
	return b.String()
}

// Load returns the record for mission. A mission never played returns a
// zero record with only the name set.
func (s *Store) Load(mission string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(mission)
}

func (s *Store) load(mission string) (Record, error) {
	key := Key(mission)
	if s.manager == nil {
		if rec, ok := s.mem[key]; ok {
			return rec, nil
		}
		return Record{Mission: mission}, nil
	}

	if !s.manager.ObjectPropExists(missionsObject, key) {
		return Record{Mission: mission}, nil
	}
	data, err := s.manager.LoadObjectProp(missionsObject, key)
	if err != nil {
		return Record{Mission: mission}, fmt.Errorf("failed to load progress for %s: %w", mission, err)
	}
	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return Record{Mission: mission}, fmt.Errorf("failed to unmarshal progress for %s: %w", mission, err)
	}
	return rec, nil
}

func (s *Store) save(rec Record) error {
	key := Key(rec.Mission)
	if s.manager == nil {
		s.mem[key] = rec
		return nil
	}
	data, err := yaml.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	if err := s.manager.SaveObjectProp(missionsObject, key, data); err != nil {
		return fmt.Errorf("failed to save progress: %w", err)
	}
	return nil
}

// Add folds a run result into the mission record and saves it.
func (s *Store) Add(r Result) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.load(r.Mission)
	if err != nil {
		// unreadable records are replaced
		rec = Record{Mission: r.Mission}
	}
	rec = Merge(rec, r)
	if err := s.save(rec); err != nil {
		return rec, err
	}
	return rec, nil
}

// Merge applies one run to a record.
func Merge(rec Record, r Result) Record {
	rec.Mission = r.Mission
	rec.Runs++
	if r.Completed {
		rec.Completions++
		if rec.BestDuration == 0 || r.Duration < rec.BestDuration {
			rec.BestDuration = r.Duration
		}
	}
	if acc := r.Accuracy(); acc > rec.BestAccuracy {
		rec.BestAccuracy = acc
	}
	if r.ZonesCleansed > rec.ZonesCleansed {
		rec.ZonesCleansed = r.ZonesCleansed
	}
	rec.ZonesTotal = r.ZonesTotal
	if r.At.After(rec.LastPlayed) {
		rec.LastPlayed = r.At
	}
	return rec
}
