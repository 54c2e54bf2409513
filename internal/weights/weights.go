// Package weights loads and hot-reloads per-interface scheduling weights
// from a durable YAML file, mtime-gated so the scheduler's hot path never
// pays for a reload it doesn't need.
package weights

import (
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gopkg.in/yaml.v3"
)

// maxFileSize enforces the < 1 ms synchronous-reload budget: a file this
// small reads and parses fast enough to not stall the downstream ingress
// critical section that triggers the lazy reload.
const maxFileSize = 64 * 1024

const defaultWeight = 1.0

// Store is the durable weight table. Zero value is not usable; construct
// with Open.
type Store struct {
	path string

	mu       sync.Mutex
	weights  map[string]float64
	modTime  time.Time
	loadedOK bool

	version atomic.Uint64
}

// Open returns a Store bound to path. The file need not exist yet; a
// missing file is treated as an empty mapping until the first
// EnsureInterfaces call persists one.
func Open(path string) *Store {
	return &Store{path: path, weights: make(map[string]float64)}
}

// Version returns a counter bumped on every successful reload or save, so
// schedulers can cheaply detect "nothing changed" without re-reading the
// map.
func (s *Store) Version() uint64 {
	return s.version.Load()
}

// reloadIfStale stats the file; if mtime is unchanged from the cached
// value, it is a no-op. On parse error, the previous state is kept and
// the error is only logged — a malformed edit must never crash the relay.
func (s *Store) reloadIfStale() {
	info, err := os.Stat(s.path)
	if err != nil {
		if !s.loadedOK && os.IsNotExist(err) {
			// No file yet; empty mapping is already in place.
			return
		}
		if !os.IsNotExist(err) {
			slog.Warn("weights: stat failed", "path", s.path, "err", err)
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadedOK && info.ModTime().Equal(s.modTime) {
		return
	}

	if info.Size() > maxFileSize {
		slog.Warn("weights: file exceeds size cap, keeping previous state", "path", s.path, "size", info.Size(), "cap", maxFileSize)
		return
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		slog.Warn("weights: read failed, keeping previous state", "path", s.path, "err", err)
		return
	}

	parsed := make(map[string]float64)
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		slog.Warn("weights: parse failed, keeping previous state", "path", s.path, "err", err)
		return
	}

	s.weights = sanitize(parsed)
	s.modTime = info.ModTime()
	s.loadedOK = true
	s.version.Add(1)
}

// sanitize substitutes 0.0 for negative or non-finite weights, per the
// weight file's data-model invariant.
func sanitize(in map[string]float64) map[string]float64 {
	out := make(map[string]float64, len(in))
	for name, w := range in {
		if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
			w = 0
		}
		out[name] = w
	}
	return out
}

// EnsureInterfaces inserts any name missing from the current mapping at
// the default weight and persists the result. Idempotent: calling it
// again with the same names changes nothing and still succeeds. Persist
// failures are logged, not fatal — the in-memory mapping is authoritative
// for this process regardless of disk state.
func (s *Store) EnsureInterfaces(names []string) {
	s.reloadIfStale()

	s.mu.Lock()
	changed := false
	for _, name := range names {
		if _, ok := s.weights[name]; !ok {
			s.weights[name] = defaultWeight
			changed = true
		}
	}
	snapshot := make(map[string]float64, len(s.weights))
	for k, v := range s.weights {
		snapshot[k] = v
	}
	s.mu.Unlock()

	if !changed {
		return
	}
	if err := s.persist(snapshot); err != nil {
		slog.Warn("weights: persist failed", "path", s.path, "err", err)
	}
}

// WeightsFor returns the current weight for each of names, substituting
// the default for any not yet known.
func (s *Store) WeightsFor(names []string) map[string]float64 {
	s.reloadIfStale()

	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]float64, len(names))
	for _, name := range names {
		if w, ok := s.weights[name]; ok {
			out[name] = w
		} else {
			out[name] = defaultWeight
		}
	}
	return out
}

// persist serializes weights to the store's path, creating parent
// directories as needed. Caller holds no lock during the write.
func (s *Store) persist(weights map[string]float64) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("weights: create directory: %w", err)
	}

	data, err := yaml.Marshal(weights)
	if err != nil {
		return fmt.Errorf("weights: marshal: %w", err)
	}
	if len(data) > maxFileSize {
		return fmt.Errorf("weights: serialized size %d exceeds cap %d", len(data), maxFileSize)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return fmt.Errorf("weights: write: %w", err)
	}

	if info, statErr := os.Stat(s.path); statErr == nil {
		s.mu.Lock()
		s.modTime = info.ModTime()
		s.loadedOK = true
		s.mu.Unlock()
	}
	s.version.Add(1)
	return nil
}

// DefaultPath derives the weight-file location alongside a configuration
// file: <stem>.weights.<same-suffix>, e.g. bondwgd.yaml -> bondwgd.weights.yaml.
func DefaultPath(configPath string) string {
	dir := filepath.Dir(configPath)
	base := filepath.Base(configPath)
	ext := filepath.Ext(base)
	stem := base[:len(base)-len(ext)]
	if ext == "" {
		ext = ".yaml"
	}
	return filepath.Join(dir, stem+".weights"+ext)
}
