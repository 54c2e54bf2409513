package weights

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestEnsureInterfaces_IsIdempotentAndPersists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bondwgd.weights.yaml")
	s := Open(path)

	s.EnsureInterfaces([]string{"eth0", "eth1"})
	v1 := s.Version()
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected persisted weight file, stat failed: %v", err)
	}

	got := s.WeightsFor([]string{"eth0", "eth1"})
	if got["eth0"] != defaultWeight || got["eth1"] != defaultWeight {
		t.Fatalf("WeightsFor = %v, want both at default weight %v", got, defaultWeight)
	}

	// Idempotent: re-running with the same names changes nothing.
	s.EnsureInterfaces([]string{"eth0", "eth1"})
	if s.Version() != v1 {
		t.Fatalf("Version changed on a no-op EnsureInterfaces call: %d -> %d", v1, s.Version())
	}

	s.EnsureInterfaces([]string{"eth0", "eth1", "wlan0"})
	if s.Version() == v1 {
		t.Fatalf("Version should bump when a new interface is added")
	}
	got = s.WeightsFor([]string{"wlan0"})
	if got["wlan0"] != defaultWeight {
		t.Fatalf("wlan0 weight = %v, want default", got["wlan0"])
	}
}

func TestWeightsFor_DefaultsUnknownNamesWithoutPersisting(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bondwgd.weights.yaml")
	s := Open(path)

	got := s.WeightsFor([]string{"eth0"})
	if got["eth0"] != defaultWeight {
		t.Fatalf("WeightsFor unknown name = %v, want default", got["eth0"])
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("WeightsFor must not persist a file")
	}
}

func TestReloadIfStale_KeepsPreviousStateOnParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bondwgd.weights.yaml")
	s := Open(path)
	s.EnsureInterfaces([]string{"eth0"})

	if err := os.WriteFile(path, []byte("not: [valid: yaml"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := s.WeightsFor([]string{"eth0"})
	if got["eth0"] != defaultWeight {
		t.Fatalf("weights after parse error = %v, want previous state preserved", got)
	}
}

func TestReloadIfStale_RejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bondwgd.weights.yaml")
	s := Open(path)
	s.EnsureInterfaces([]string{"eth0"})

	oversized := make([]byte, maxFileSize+1)
	for i := range oversized {
		oversized[i] = '#'
	}
	if err := os.WriteFile(path, oversized, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	got := s.WeightsFor([]string{"eth0"})
	if got["eth0"] != defaultWeight {
		t.Fatalf("weights after oversized file = %v, want previous state preserved", got)
	}
}

func TestDefaultPath_DerivesWeightsFileAlongsideConfig(t *testing.T) {
	got := DefaultPath("/etc/bondwg/bondwgd.yaml")
	want := "/etc/bondwg/bondwgd.weights.yaml"
	if got != want {
		t.Fatalf("DefaultPath = %q, want %q", got, want)
	}
}

func TestSanitize_SubstitutesZeroForInvalidWeights(t *testing.T) {
	in := map[string]float64{
		"a": -1,
		"b": 2.5,
		"c": math.NaN(),
	}
	out := sanitize(in)
	if out["a"] != 0 {
		t.Fatalf("negative weight not zeroed: %v", out["a"])
	}
	if out["b"] != 2.5 {
		t.Fatalf("positive weight altered: %v", out["b"])
	}
	if out["c"] != 0 {
		t.Fatalf("NaN weight not zeroed: %v", out["c"])
	}
}
