package session

import (
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"holdem-tables/internal/store"
)

const maxNicknameLen = 24

// Profile is an identity and its display attributes. The nickname is never
// used as a key.
type Profile struct {
	ID        string    `json:"id"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

// Identities is the in-process identity book.
type Identities struct {
	mu   sync.RWMutex
	byID map[string]Profile
	now  func() time.Time
}

func NewIdentities() *Identities {
	return &Identities{byID: map[string]Profile{}, now: time.Now}
}

func (b *Identities) Mint(nickname string) Profile {
	id := store.NewID()
	p := Profile{ID: id, Nickname: normalizeNickname(nickname, id), CreatedAt: b.now()}
	b.mu.Lock()
	b.byID[id] = p
	b.mu.Unlock()
	return p
}

func (b *Identities) Get(id string) (Profile, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.byID[id]
	if !ok {
		return Profile{}, ErrIdentityNotFound
	}
	return p, nil
}

func (b *Identities) Known(id string) bool {
	_, err := b.Get(id)
	return err == nil
}

// Nickname returns the display name, or the id when unknown.
func (b *Identities) Nickname(id string) string {
	if p, err := b.Get(id); err == nil {
		return p.Nickname
	}
	return id
}

func (b *Identities) Rename(id, nickname string) (Profile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.byID[id]
	if !ok {
		return Profile{}, ErrIdentityNotFound
	}
	if strings.TrimSpace(nickname) == "" {
		return p, nil
	}
	p.Nickname = normalizeNickname(nickname, id)
	b.byID[id] = p
	return p, nil
}

func normalizeNickname(nickname, id string) string {
	n := strings.Join(strings.Fields(nickname), " ")
	if n == "" {
		return "Player-" + id[len(id)-4:]
	}
	if utf8.RuneCountInString(n) > maxNicknameLen {
		n = string([]rune(n)[:maxNicknameLen])
	}
	return n
}
