package exclusion

import "testing"

func TestEffectiveExcluded_DefaultsToConfigured(t *testing.T) {
	s := New([]string{"eth1"})
	if !s.EffectiveExcluded("eth1") {
		t.Fatalf("eth1 should be excluded by configuration")
	}
	if s.EffectiveExcluded("eth0") {
		t.Fatalf("eth0 was never configured as excluded")
	}
}

func TestSwapExclusion_TogglesEffectiveState(t *testing.T) {
	// configured-excluded eth1, swap once -> included, swap again ->
	// excluded again.
	s := New([]string{"eth1"})

	if got := s.SwapExclusion("eth1"); got != false {
		t.Fatalf("after first swap, effective excluded = %v, want false", got)
	}
	if s.EffectiveExcluded("eth1") {
		t.Fatalf("eth1 should now be included")
	}

	if got := s.SwapExclusion("eth1"); got != true {
		t.Fatalf("after second swap, effective excluded = %v, want true", got)
	}
	if !s.EffectiveExcluded("eth1") {
		t.Fatalf("eth1 should be excluded again")
	}
}

func TestResetExclusions_ClearsSwapBits(t *testing.T) {
	s := New([]string{"eth1"})
	s.SwapExclusion("eth1")
	s.SwapExclusion("eth0") // swap an interface that was never configured excluded

	s.ResetExclusions()
	if s.EffectiveExcluded("eth0") {
		t.Fatalf("eth0 should be back to its unconfigured default")
	}
	if !s.EffectiveExcluded("eth1") {
		t.Fatalf("eth1 should be back to its configured-excluded default")
	}
}

func TestIncludeExclude_AreIdempotent(t *testing.T) {
	s := New([]string{"eth1"})

	s.Include("eth1")
	if s.EffectiveExcluded("eth1") {
		t.Fatalf("eth1 should be included")
	}
	s.Include("eth1") // idempotent
	if s.EffectiveExcluded("eth1") {
		t.Fatalf("eth1 should still be included after a repeat Include")
	}

	s.Exclude("eth0")
	if !s.EffectiveExcluded("eth0") {
		t.Fatalf("eth0 should be excluded")
	}
	s.Exclude("eth0") // idempotent
	if !s.EffectiveExcluded("eth0") {
		t.Fatalf("eth0 should still be excluded after a repeat Exclude")
	}
}
