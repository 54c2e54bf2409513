package scheduler

import "testing"

func TestMirror_ReturnsAllUpLinksWithTokens(t *testing.T) {
	links := []LinkState{
		{ID: 1, Up: true, Tokens: 2000},
		{ID: 2, Up: false, Tokens: 2000},
		{ID: 3, Up: true, Tokens: 500},
	}

	s := &MirrorScheduler{}
	got := s.SelectPaths(1200, PacketMeta{}, links)

	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("SelectPaths = %v, want [1]", got)
	}
	if links[0].Tokens != 800 {
		t.Fatalf("link 1 tokens = %d, want 800", links[0].Tokens)
	}
	if links[2].Tokens != 500 {
		t.Fatalf("link 3 tokens should be untouched, got %d", links[2].Tokens)
	}
}

func TestMirror_EmptyWhenNoneEligible(t *testing.T) {
	links := []LinkState{
		{ID: 1, Up: false, Tokens: Unlimited},
		{ID: 2, Up: true, Tokens: 100},
	}
	s := &MirrorScheduler{}
	got := s.SelectPaths(1200, PacketMeta{}, links)
	if len(got) != 0 {
		t.Fatalf("SelectPaths = %v, want empty", got)
	}
}

func TestMirror_ExcludedLinkNeverSelected(t *testing.T) {
	// an excluded interface never reaches the scheduler: the poller
	// removes it from the table first, so it's simply absent from the
	// links slice.
	links := []LinkState{
		{ID: 1, Up: true, Tokens: Unlimited},
		{ID: 3, Up: true, Tokens: Unlimited},
	}
	s := &MirrorScheduler{}
	got := s.SelectPaths(1200, PacketMeta{}, links)
	if len(got) != 2 {
		t.Fatalf("SelectPaths = %v, want both remaining links", got)
	}
	for _, id := range got {
		if id == 2 {
			t.Fatalf("excluded link 2 must never be selected")
		}
	}
}
