package session

import (
	"fmt"
	"sync"
)

// LocationStore is the authoritative identity -> Location map.
type LocationStore struct {
	mu   sync.RWMutex
	locs map[string]Location
}

func NewLocationStore() *LocationStore {
	return &LocationStore{locs: map[string]Location{}}
}

// Get returns the identity's location, Lobby when unknown.
func (s *LocationStore) Get(identity string) Location {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.locs[identity]
}

// Transition moves identity from -> to only when the current location equals
// from. Table actors use it so a commit cannot overwrite a location owned by
// another table.
func (s *LocationStore) Transition(identity string, from, to Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur := s.locs[identity]
	if cur != from {
		return fmt.Errorf("%w: %s is at %s, expected %s", ErrLocationConflict, identity, cur, from)
	}
	s.put(identity, to)
	return nil
}

// Clear resets to Lobby and returns the prior location. The lobby uses it
// for locations that point at a table which no longer holds the identity.
func (s *LocationStore) Clear(identity string) Location {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.locs[identity]
	delete(s.locs, identity)
	return prev
}

func (s *LocationStore) put(identity string, loc Location) {
	if loc.IsLobby() {
		delete(s.locs, identity)
		return
	}
	s.locs[identity] = loc
}
