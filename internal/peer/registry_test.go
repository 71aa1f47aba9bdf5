package peer

import (
	"errors"
	"testing"

	pion "github.com/pion/webrtc/v4"
)

func newTestFactory(t *testing.T) *Factory {
	t.Helper()

	f, err := NewFactory(FactoryOptions{}, Hooks{})
	if err != nil {
		t.Fatalf("NewFactory: %v", err)
	}
	return f
}

type failingConnector struct{}

func (failingConnector) Connect(*Entry) (*pion.PeerConnection, error) {
	return nil, errors.New("no transport")
}

func TestRegistryGetOrCreate(t *testing.T) {
	r := NewRegistry(newTestFactory(t))
	defer r.CloseAll()

	first, created, err := r.GetOrCreate("alice")
	if err != nil {
		t.Fatal(err)
	}
	if !created || first.Conn == nil || first.State() != StateNew {
		t.Fatalf("unexpected first entry: created=%v state=%s", created, first.State())
	}

	again, created, err := r.GetOrCreate("alice")
	if err != nil {
		t.Fatal(err)
	}
	if created || again != first {
		t.Fatal("second GetOrCreate must return the existing entry")
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestRegistryRemoveClosesOnce(t *testing.T) {
	r := NewRegistry(newTestFactory(t))

	e, _, err := r.GetOrCreate("bob")
	if err != nil {
		t.Fatal(err)
	}

	if !r.Remove("bob") {
		t.Fatal("Remove reported no entry")
	}
	if r.Remove("bob") {
		t.Fatal("second Remove should be a no-op")
	}
	if _, ok := r.Get("bob"); ok {
		t.Fatal("entry still present")
	}
	if e.State() != StateClosed {
		t.Fatalf("state = %s, want closed", e.State())
	}
	if e.Conn.ConnectionState() != pion.PeerConnectionStateClosed {
		t.Fatalf("transport not closed: %s", e.Conn.ConnectionState())
	}
	if err := e.Close(); err != nil {
		t.Fatalf("repeat Close: %v", err)
	}
}

func TestRegistryOwns(t *testing.T) {
	r := NewRegistry(newTestFactory(t))
	defer r.CloseAll()

	old, _, _ := r.GetOrCreate("carol")
	r.Remove("carol")
	current, _, _ := r.GetOrCreate("carol")

	if r.Owns(old) {
		t.Fatal("stale entry reported as owned")
	}
	if !r.Owns(current) {
		t.Fatal("live entry not owned")
	}
}

func TestRegistryConnectFailure(t *testing.T) {
	r := NewRegistry(failingConnector{})

	if _, _, err := r.GetOrCreate("dave"); err == nil {
		t.Fatal("expected error")
	}
	if r.Len() != 0 {
		t.Fatal("failed create must not leave an entry")
	}
}

func TestRegistryCloseAll(t *testing.T) {
	r := NewRegistry(newTestFactory(t))
	for _, id := range []string{"c", "a", "b"} {
		if _, _, err := r.GetOrCreate(id); err != nil {
			t.Fatal(err)
		}
	}

	if ids := r.IDs(); len(ids) != 3 || ids[0] != "a" || ids[2] != "c" {
		t.Fatalf("IDs = %v", ids)
	}
	if n := r.CloseAll(); n != 3 {
		t.Fatalf("CloseAll = %d", n)
	}
	if r.Len() != 0 {
		t.Fatal("registry not empty")
	}
}

func TestEntryPendingCandidates(t *testing.T) {
	e := newEntry("erin")
	e.BufferCandidate(pion.ICECandidateInit{Candidate: "a"})
	e.BufferCandidate(pion.ICECandidateInit{Candidate: "b"})

	got := e.TakePending()
	if len(got) != 2 || got[0].Candidate != "a" {
		t.Fatalf("pending = %v", got)
	}
	if len(e.TakePending()) != 0 {
		t.Fatal("pending not cleared")
	}
}
