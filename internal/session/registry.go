package session

import (
	"sync"
	"time"
)

// Outbox is the bounded, non-blocking send side of a transport connection.
type Outbox interface {
	// Send enqueues msg and reports false when the queue is full or closed.
	Send(msg []byte) bool
	Close()
}

type Connection struct {
	SocketID    string
	Identity    string
	ConnectedAt time.Time
	Outbox      Outbox
}

// Registry tracks live sockets and keeps at most one current connection per
// identity. Superseded sockets are remembered until they unregister so their
// late commands resolve to ErrStaleConnection.
type Registry struct {
	mu         sync.RWMutex
	bySocket   map[string]*Connection
	byIdentity map[string]*Connection
	superseded map[string]string
}

func NewRegistry() *Registry {
	return &Registry{
		bySocket:   map[string]*Connection{},
		byIdentity: map[string]*Connection{},
		superseded: map[string]string{},
	}
}

// Register makes conn the identity's current connection and returns the one
// it replaced, if any. The caller is responsible for telling it to go away.
func (r *Registry) Register(conn *Connection) *Connection {
	if conn.ConnectedAt.IsZero() {
		conn.ConnectedAt = time.Now()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	prev := r.byIdentity[conn.Identity]
	if prev != nil && prev.SocketID == conn.SocketID {
		return nil
	}
	if prev != nil {
		delete(r.bySocket, prev.SocketID)
		r.superseded[prev.SocketID] = prev.Identity
	}
	r.bySocket[conn.SocketID] = conn
	r.byIdentity[conn.Identity] = conn
	return prev
}

// Unregister removes socketID. It reports the removed connection and whether
// it was still current; for a superseded or unknown socket it is a no-op.
func (r *Registry) Unregister(socketID string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.superseded[socketID]; ok {
		delete(r.superseded, socketID)
		return nil, false
	}
	conn, ok := r.bySocket[socketID]
	if !ok {
		return nil, false
	}
	delete(r.bySocket, socketID)
	if cur := r.byIdentity[conn.Identity]; cur != nil && cur.SocketID == socketID {
		delete(r.byIdentity, conn.Identity)
	}
	return conn, true
}

func (r *Registry) IdentityOf(socketID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if conn, ok := r.bySocket[socketID]; ok {
		return conn.Identity, nil
	}
	if _, ok := r.superseded[socketID]; ok {
		return "", ErrStaleConnection
	}
	return "", ErrIdentityNotFound
}

func (r *Registry) IsCurrent(socketID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.bySocket[socketID]
	if !ok {
		return false
	}
	cur := r.byIdentity[conn.Identity]
	return cur != nil && cur.SocketID == socketID
}

func (r *Registry) Current(identity string) (*Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conn, ok := r.byIdentity[identity]
	return conn, ok
}

func (r *Registry) Online(identity string) bool {
	_, ok := r.Current(identity)
	return ok
}

func (r *Registry) Live() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bySocket)
}
