package session

import (
	"errors"
	"testing"
)

func TestRegistrySupersedesPriorConnection(t *testing.T) {
	r := NewRegistry()
	if prev := r.Register(&Connection{SocketID: "s1", Identity: "a"}); prev != nil {
		t.Fatalf("first register should not supersede, got %+v", prev)
	}
	prev := r.Register(&Connection{SocketID: "s2", Identity: "a"})
	if prev == nil || prev.SocketID != "s1" {
		t.Fatalf("expected s1 superseded, got %+v", prev)
	}
	if r.Live() != 1 {
		t.Fatalf("expected one live connection, got %d", r.Live())
	}
	cur, ok := r.Current("a")
	if !ok || cur.SocketID != "s2" {
		t.Fatalf("unexpected current connection %+v", cur)
	}
	if _, err := r.IdentityOf("s1"); !errors.Is(err, ErrStaleConnection) {
		t.Fatalf("expected ErrStaleConnection for superseded socket, got %v", err)
	}
	if id, err := r.IdentityOf("s2"); err != nil || id != "a" {
		t.Fatalf("IdentityOf(s2) = %q, %v", id, err)
	}
}

func TestRegistryStaleUnregisterIsNoop(t *testing.T) {
	r := NewRegistry()
	r.Register(&Connection{SocketID: "s1", Identity: "a"})
	r.Register(&Connection{SocketID: "s2", Identity: "a"})

	if _, wasCurrent := r.Unregister("s1"); wasCurrent {
		t.Fatalf("stale unregister must not report current")
	}
	if !r.IsCurrent("s2") {
		t.Fatalf("stale unregister removed the newer connection")
	}
	if _, err := r.IdentityOf("s1"); !errors.Is(err, ErrIdentityNotFound) {
		t.Fatalf("tombstone should be forgotten after unregister, got %v", err)
	}
	if _, wasCurrent := r.Unregister("s1"); wasCurrent {
		t.Fatalf("second unregister should be a no-op")
	}

	conn, wasCurrent := r.Unregister("s2")
	if !wasCurrent || conn.SocketID != "s2" {
		t.Fatalf("expected s2 removed as current, got %+v %v", conn, wasCurrent)
	}
	if r.Online("a") {
		t.Fatalf("identity should be offline")
	}
}

func TestRegistryIdentityOfIsInjective(t *testing.T) {
	r := NewRegistry()
	sockets := map[string]string{"s1": "a", "s2": "b", "s3": "a", "s4": "c", "s5": "b"}
	for _, sid := range []string{"s1", "s2", "s3", "s4", "s5"} {
		r.Register(&Connection{SocketID: sid, Identity: sockets[sid]})
	}
	seen := map[string]string{}
	for _, sid := range []string{"s1", "s2", "s3", "s4", "s5"} {
		id, err := r.IdentityOf(sid)
		if err != nil {
			continue
		}
		if other, dup := seen[id]; dup {
			t.Fatalf("identity %s has two live sockets %s and %s", id, other, sid)
		}
		seen[id] = sid
	}
	if len(seen) != 3 {
		t.Fatalf("expected 3 live identities, got %d", len(seen))
	}
}
