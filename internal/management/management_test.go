package management

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

type fakeHandler struct {
	excluded map[string]bool
	reset    bool
}

func (f *fakeHandler) List() []InterfaceStatus {
	return []InterfaceStatus{
		{Name: "eth0", Status: "active", SourceAddress: "10.0.0.1", DestinationAddress: "203.0.113.1:51820"},
	}
}

func (f *fakeHandler) SwapExclusion(name string) bool {
	f.excluded[name] = !f.excluded[name]
	return f.excluded[name]
}

func (f *fakeHandler) ResetExclusions() { f.reset = true }
func (f *fakeHandler) Include(name string) { f.excluded[name] = false }
func (f *fakeHandler) Exclude(name string) { f.excluded[name] = true }

func startTestServer(t *testing.T, h Handler) (socketPath string, stop func()) {
	t.Helper()
	socketPath = filepath.Join(t.TempDir(), "bondwgd.sock")
	srv := &Server{SocketPath: socketPath, Handler: h}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.ListenAndServe(ctx) }()

	// Give the listener a moment to come up.
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c := &Client{SocketPath: socketPath, Timeout: 100 * time.Millisecond}
		if _, err := c.List(); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	return socketPath, func() {
		cancel()
		<-done
	}
}

func TestManagement_ListRoundTrip(t *testing.T) {
	h := &fakeHandler{excluded: map[string]bool{}}
	socketPath, stop := startTestServer(t, h)
	defer stop()

	c := &Client{SocketPath: socketPath}
	got, err := c.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].Name != "eth0" {
		t.Fatalf("List() = %v, want one eth0 record", got)
	}
}

func TestManagement_SwapExclusionRoundTrip(t *testing.T) {
	h := &fakeHandler{excluded: map[string]bool{}}
	socketPath, stop := startTestServer(t, h)
	defer stop()

	c := &Client{SocketPath: socketPath}
	excluded, err := c.SwapExclusion("eth1")
	if err != nil {
		t.Fatalf("SwapExclusion: %v", err)
	}
	if !excluded {
		t.Fatalf("SwapExclusion(eth1) = %v, want true", excluded)
	}

	excluded, err = c.SwapExclusion("eth1")
	if err != nil {
		t.Fatalf("SwapExclusion: %v", err)
	}
	if excluded {
		t.Fatalf("second SwapExclusion(eth1) = %v, want false", excluded)
	}
}

func TestManagement_EmptyNameIsRejected(t *testing.T) {
	h := &fakeHandler{excluded: map[string]bool{}}
	socketPath, stop := startTestServer(t, h)
	defer stop()

	c := &Client{SocketPath: socketPath}
	if _, err := c.SwapExclusion(""); err == nil {
		t.Fatalf("SwapExclusion with empty name should be rejected")
	}
}
