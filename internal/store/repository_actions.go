package store

import (
	"context"
	"time"
)

func (s *Store) AppendAction(ctx context.Context, rec ActionRecord) error {
	if rec.ID == "" {
		rec.ID = NewID()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.Pool.Exec(ctx, `
INSERT INTO action_records (
  id, table_id, hand_number, action_sequence, phase, player_id, action_type,
  amount, pot_before, pot_after, game_state_before, game_state_after, created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		rec.ID, rec.TableID, rec.HandNumber, rec.Sequence, rec.Phase, rec.PlayerID, rec.ActionType,
		rec.Amount, rec.PotBefore, rec.PotAfter, jsonOrNull(rec.StateBefore), jsonOrNull(rec.StateAfter), rec.CreatedAt)
	return err
}

func (s *Store) ListActions(ctx context.Context, f ActionFilter) ([]ActionRecord, error) {
	rows, err := s.Pool.Query(ctx, `
SELECT id, table_id, hand_number, action_sequence, phase, player_id, action_type,
       amount, pot_before, pot_after, game_state_before, game_state_after, created_at
FROM action_records
WHERE table_id = $1 AND ($2::int IS NULL OR hand_number = $2)
ORDER BY hand_number DESC, action_sequence ASC
LIMIT $3`, f.TableID, int4OrNull(f.HandNumber), clampLimit(f.Limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ActionRecord{}
	for rows.Next() {
		var rec ActionRecord
		var before, after []byte
		if err := rows.Scan(&rec.ID, &rec.TableID, &rec.HandNumber, &rec.Sequence, &rec.Phase, &rec.PlayerID, &rec.ActionType,
			&rec.Amount, &rec.PotBefore, &rec.PotAfter, &before, &after, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.StateBefore = before
		rec.StateAfter = after
		out = append(out, rec)
	}
	return out, rows.Err()
}

// LastHandNumber returns the highest recorded hand number for a table, or 0.
func (s *Store) LastHandNumber(ctx context.Context, tableID int) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT COALESCE(MAX(hand_number), 0) FROM action_records WHERE table_id = $1`, tableID).Scan(&n)
	return n, err
}
