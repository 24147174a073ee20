package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/fortuna/crease/internal/store"
)

// ScorecardRepository reads per-player batting and bowling summary rows.
type ScorecardRepository struct {
	db *store.Database
}

// NewScorecardRepository creates a new scorecard repository.
func NewScorecardRepository(db *store.Database) *ScorecardRepository {
	return &ScorecardRepository{db: db}
}

// GetBattingEntry finds one batting row; ErrNotFound if the player has not
// appeared in the innings yet.
func (r *ScorecardRepository) GetBattingEntry(ctx context.Context, inningID, playerID string) (*store.BattingEntry, error) {
	query := `
		SELECT inning_id, player_id, batting_order, runs, balls_faced, fours,
			sixes, is_out, dismissal, created_at, updated_at
		FROM batting_entries
		WHERE inning_id = $1 AND player_id = $2
	`

	e := &store.BattingEntry{}
	err := r.db.DB().QueryRowContext(ctx, query, inningID, playerID).Scan(
		&e.InningID, &e.PlayerID, &e.BattingOrder, &e.Runs, &e.BallsFaced, &e.Fours,
		&e.Sixes, &e.Out, &e.Dismissal, &e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("batting entry %s/%s: %w", inningID, playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying batting entry: %w", err)
	}
	return e, nil
}

// GetBowlingEntry finds one bowling row; ErrNotFound if the bowler has not
// bowled in the innings yet.
func (r *ScorecardRepository) GetBowlingEntry(ctx context.Context, inningID, playerID string) (*store.BowlingEntry, error) {
	query := `
		SELECT inning_id, player_id, balls, runs_conceded, wickets, maidens,
			created_at, updated_at
		FROM bowling_entries
		WHERE inning_id = $1 AND player_id = $2
	`

	e := &store.BowlingEntry{}
	err := r.db.DB().QueryRowContext(ctx, query, inningID, playerID).Scan(
		&e.InningID, &e.PlayerID, &e.Balls, &e.RunsConceded, &e.Wickets, &e.Maidens,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("bowling entry %s/%s: %w", inningID, playerID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying bowling entry: %w", err)
	}
	return e, nil
}

// MaxBattingOrder returns the highest batting order assigned in the innings
// so far; a new batter slots in at max+1.
func (r *ScorecardRepository) MaxBattingOrder(ctx context.Context, inningID string) (int, error) {
	query := `SELECT COALESCE(MAX(batting_order), 0) FROM batting_entries WHERE inning_id = $1`

	var order int
	if err := r.db.DB().QueryRowContext(ctx, query, inningID).Scan(&order); err != nil {
		return 0, fmt.Errorf("querying max batting order: %w", err)
	}
	return order, nil
}

// BattingEntries returns the innings batting card ordered by appearance.
func (r *ScorecardRepository) BattingEntries(ctx context.Context, inningID string) ([]store.BattingEntry, error) {
	query := `
		SELECT inning_id, player_id, batting_order, runs, balls_faced, fours,
			sixes, is_out, dismissal, created_at, updated_at
		FROM batting_entries
		WHERE inning_id = $1
		ORDER BY batting_order
	`

	rows, err := r.db.DB().QueryContext(ctx, query, inningID)
	if err != nil {
		return nil, fmt.Errorf("querying batting entries: %w", err)
	}
	defer rows.Close()

	var entries []store.BattingEntry
	for rows.Next() {
		var e store.BattingEntry
		err := rows.Scan(
			&e.InningID, &e.PlayerID, &e.BattingOrder, &e.Runs, &e.BallsFaced, &e.Fours,
			&e.Sixes, &e.Out, &e.Dismissal, &e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning batting entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating batting entries: %w", err)
	}
	return entries, nil
}

// BowlingEntries returns the innings bowling card in first-bowled order.
func (r *ScorecardRepository) BowlingEntries(ctx context.Context, inningID string) ([]store.BowlingEntry, error) {
	query := `
		SELECT inning_id, player_id, balls, runs_conceded, wickets, maidens,
			created_at, updated_at
		FROM bowling_entries
		WHERE inning_id = $1
		ORDER BY created_at
	`

	rows, err := r.db.DB().QueryContext(ctx, query, inningID)
	if err != nil {
		return nil, fmt.Errorf("querying bowling entries: %w", err)
	}
	defer rows.Close()

	var entries []store.BowlingEntry
	for rows.Next() {
		var e store.BowlingEntry
		err := rows.Scan(
			&e.InningID, &e.PlayerID, &e.Balls, &e.RunsConceded, &e.Wickets, &e.Maidens,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning bowling entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bowling entries: %w", err)
	}
	return entries, nil
}
