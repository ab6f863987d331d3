package public

import (
	"context"
	"strings"

	"holdem-tables/internal/session"
	"holdem-tables/internal/store"
	"holdem-tables/internal/table"
)

const defaultActionsLimit = 200

// Service answers read-only lobby queries for the HTTP API and MCP tools.
type Service struct {
	tables     *table.Directory
	actions    store.ActionLog
	identities *session.Identities
	locations  *session.LocationStore
	registry   *session.Registry
}

func NewService(tables *table.Directory, actions store.ActionLog, identities *session.Identities, locations *session.LocationStore, registry *session.Registry) *Service {
	return &Service{
		tables:     tables,
		actions:    actions,
		identities: identities,
		locations:  locations,
		registry:   registry,
	}
}

func (s *Service) Tables(ctx context.Context) (*TablesResponse, error) {
	items, err := s.tables.List(ctx)
	if err != nil {
		return nil, err
	}
	return &TablesResponse{Items: items}, nil
}

func (s *Service) TableSnapshot(ctx context.Context, tableID int) (*table.Snapshot, error) {
	if tableID <= 0 {
		return nil, ErrInvalidRequest
	}
	t, err := s.tables.Get(tableID)
	if err != nil {
		return nil, err
	}
	snap, err := t.Snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

// Actions lists recorded actions, newest hand first and in sequence order
// within a hand.
func (s *Service) Actions(ctx context.Context, tableID, handNumber, limit int) (*ActionsResponse, error) {
	if tableID <= 0 || handNumber < 0 {
		return nil, ErrInvalidRequest
	}
	if _, err := s.tables.Get(tableID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultActionsLimit
	}
	items, err := s.actions.ListActions(ctx, store.ActionFilter{TableID: tableID, HandNumber: handNumber, Limit: limit})
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []store.ActionRecord{}
	}
	return &ActionsResponse{TableID: tableID, HandNumber: handNumber, Limit: limit, Items: items}, nil
}

func (s *Service) IdentityLocation(identityID string) (*LocationResponse, error) {
	identityID = strings.TrimSpace(identityID)
	if identityID == "" {
		return nil, ErrInvalidRequest
	}
	profile, err := s.identities.Get(identityID)
	if err != nil {
		return nil, err
	}
	loc := s.locations.Get(identityID)
	resp := &LocationResponse{
		IdentityID: profile.ID,
		Nickname:   profile.Nickname,
		Location:   loc.String(),
		Seat:       loc.Seat,
		Online:     s.registry != nil && s.registry.Online(identityID),
	}
	if id, ok := loc.Table(); ok {
		resp.TableID = id
	}
	return resp, nil
}
