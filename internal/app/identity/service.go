package identity

import (
	"strings"
	"time"

	"holdem-tables/internal/session"

	"github.com/rs/zerolog/log"
)

const maxNicknameInput = 64

type RegisterResponse struct {
	IdentityID string    `json:"identity_id"`
	Nickname   string    `json:"nickname"`
	CreatedAt  time.Time `json:"created_at"`
	WSPath     string    `json:"ws_path"`
}

// Service mints and renames identities. Identities are not tied to any
// credential; holding the id is enough to bind a socket.
type Service struct {
	identities *session.Identities
}

func NewService(identities *session.Identities) *Service {
	return &Service{identities: identities}
}

func (s *Service) Register(nickname string) (*RegisterResponse, error) {
	if len(nickname) > maxNicknameInput {
		return nil, ErrInvalidRequest
	}
	p := s.identities.Mint(strings.TrimSpace(nickname))
	log.Info().Str("identity_id", p.ID).Str("nickname", p.Nickname).Msg("identity_registered")
	return toResponse(p), nil
}

func (s *Service) Rename(identityID, nickname string) (*RegisterResponse, error) {
	if strings.TrimSpace(nickname) == "" || len(nickname) > maxNicknameInput {
		return nil, ErrInvalidRequest
	}
	p, err := s.identities.Rename(identityID, nickname)
	if err != nil {
		return nil, err
	}
	return toResponse(p), nil
}

func toResponse(p session.Profile) *RegisterResponse {
	return &RegisterResponse{
		IdentityID: p.ID,
		Nickname:   p.Nickname,
		CreatedAt:  p.CreatedAt,
		WSPath:     "/ws?identity_id=" + p.ID,
	}
}
