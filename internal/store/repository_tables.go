package store

import "context"

// EnsureTables upserts the configured table definitions so action records can
// reference them.
func (s *Store) EnsureTables(ctx context.Context, tables []PokerTable) error {
	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, t := range tables {
		_, err := tx.Exec(ctx, `
INSERT INTO poker_tables (id, name, small_blind, big_blind, min_buy_in, max_buy_in, max_players)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (id) DO UPDATE SET
  name = EXCLUDED.name,
  small_blind = EXCLUDED.small_blind,
  big_blind = EXCLUDED.big_blind,
  min_buy_in = EXCLUDED.min_buy_in,
  max_buy_in = EXCLUDED.max_buy_in,
  max_players = EXCLUDED.max_players,
  updated_at = now()`,
			t.ID, t.Name, t.SmallBlind, t.BigBlind, t.MinBuyIn, t.MaxBuyIn, t.MaxPlayers)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (s *Store) ListTables(ctx context.Context) ([]PokerTable, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT id, name, small_blind, big_blind, min_buy_in, max_buy_in, max_players, created_at
FROM poker_tables ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []PokerTable{}
	for rows.Next() {
		var t PokerTable
		if err := rows.Scan(&t.ID, &t.Name, &t.SmallBlind, &t.BigBlind, &t.MinBuyIn, &t.MaxBuyIn, &t.MaxPlayers, &t.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) GetTable(ctx context.Context, id int) (*PokerTable, error) {
	var t PokerTable
	err := s.Pool.QueryRow(ctx, `
SELECT id, name, small_blind, big_blind, min_buy_in, max_buy_in, max_players, created_at
FROM poker_tables WHERE id = $1`, id).
		Scan(&t.ID, &t.Name, &t.SmallBlind, &t.BigBlind, &t.MinBuyIn, &t.MaxBuyIn, &t.MaxPlayers, &t.CreatedAt)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return &t, nil
}
