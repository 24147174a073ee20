package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/fortuna/crease/internal/store"
)

// InningRepository handles the innings aggregate and the atomic per-ball
// write unit.
type InningRepository struct {
	db *store.Database
}

// NewInningRepository creates a new inning repository.
func NewInningRepository(db *store.Database) *InningRepository {
	return &InningRepository{db: db}
}

const inningColumns = `inning_id, match_id, inning_number, batting_team_id,
	bowling_team_id, runs, wickets, legal_balls, over_runs_conceded,
	striker_id, non_striker_id, current_bowler_id, last_over_bowler_id,
	status, created_at, updated_at`

func scanInning(row *sql.Row) (*store.Inning, error) {
	in := &store.Inning{}
	err := row.Scan(
		&in.InningID, &in.MatchID, &in.InningNumber, &in.BattingTeamID,
		&in.BowlingTeamID, &in.Runs, &in.Wickets, &in.LegalBalls, &in.OverRunsConceded,
		&in.StrikerID, &in.NonStrikerID, &in.CurrentBowlerID, &in.LastOverBowlerID,
		&in.Status, &in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return in, nil
}

// CreateInning inserts a new innings row.
func (r *InningRepository) CreateInning(ctx context.Context, in *store.Inning) error {
	query := `
		INSERT INTO innings (inning_id, match_id, inning_number, batting_team_id,
			bowling_team_id, runs, wickets, legal_balls, over_runs_conceded,
			striker_id, non_striker_id, current_bowler_id, last_over_bowler_id,
			status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	now := time.Now()
	in.CreatedAt = now
	in.UpdatedAt = now

	_, err := r.db.DB().ExecContext(ctx, query,
		in.InningID, in.MatchID, in.InningNumber, in.BattingTeamID,
		in.BowlingTeamID, in.Runs, in.Wickets, in.LegalBalls, in.OverRunsConceded,
		in.StrikerID, in.NonStrikerID, in.CurrentBowlerID, in.LastOverBowlerID,
		in.Status, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting inning: %w", err)
	}
	return nil
}

// GetInning finds an innings by ID.
func (r *InningRepository) GetInning(ctx context.Context, inningID string) (*store.Inning, error) {
	query := `SELECT ` + inningColumns + ` FROM innings WHERE inning_id = $1`

	in, err := scanInning(r.db.DB().QueryRowContext(ctx, query, inningID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("inning %s: %w", inningID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying inning: %w", err)
	}
	return in, nil
}

// ListInnings returns all innings of a match in playing order.
func (r *InningRepository) ListInnings(ctx context.Context, matchID string) ([]store.Inning, error) {
	query := `SELECT ` + inningColumns + ` FROM innings WHERE match_id = $1 ORDER BY inning_number`

	rows, err := r.db.DB().QueryContext(ctx, query, matchID)
	if err != nil {
		return nil, fmt.Errorf("querying innings: %w", err)
	}
	defer rows.Close()

	var innings []store.Inning
	for rows.Next() {
		in := store.Inning{}
		err := rows.Scan(
			&in.InningID, &in.MatchID, &in.InningNumber, &in.BattingTeamID,
			&in.BowlingTeamID, &in.Runs, &in.Wickets, &in.LegalBalls, &in.OverRunsConceded,
			&in.StrikerID, &in.NonStrikerID, &in.CurrentBowlerID, &in.LastOverBowlerID,
			&in.Status, &in.CreatedAt, &in.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning inning: %w", err)
		}
		innings = append(innings, in)
	}
	return innings, rows.Err()
}

// UpdateInningPlayers writes the mutable player slots; used by the selection
// gatekeeper between deliveries.
func (r *InningRepository) UpdateInningPlayers(ctx context.Context, in *store.Inning) error {
	query := `
		UPDATE innings
		SET striker_id = $2, non_striker_id = $3, current_bowler_id = $4,
			updated_at = $5
		WHERE inning_id = $1
	`

	in.UpdatedAt = time.Now()
	res, err := r.db.DB().ExecContext(ctx, query,
		in.InningID, in.StrikerID, in.NonStrikerID, in.CurrentBowlerID, in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating inning players: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("inning %s: %w", in.InningID, ErrNotFound)
	}
	return nil
}

// HighestEarlierTotal returns the best run total among the match's innings
// with a number lower than beforeNumber; the chase target is one more.
func (r *InningRepository) HighestEarlierTotal(ctx context.Context, matchID string, beforeNumber int) (int, error) {
	query := `
		SELECT COALESCE(MAX(runs), 0)
		FROM innings
		WHERE match_id = $1 AND inning_number < $2
	`

	var runs int
	if err := r.db.DB().QueryRowContext(ctx, query, matchID, beforeNumber).Scan(&runs); err != nil {
		return 0, fmt.Errorf("querying earlier innings totals: %w", err)
	}
	return runs, nil
}

// ApplyDelivery commits one accepted ball as a single unit: the ball log
// insert, the innings aggregate update and the scorecard upserts either all
// land or none do.
func (r *InningRepository) ApplyDelivery(ctx context.Context, in *store.Inning, ball *store.Ball, batting []*store.BattingEntry, bowling *store.BowlingEntry) error {
	tx, err := r.db.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now()

	// Per-inning sequence assigned inside the transaction; the append-only
	// log is strictly ordered.
	err = tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) + 1 FROM balls WHERE inning_id = $1`,
		ball.InningID,
	).Scan(&ball.Seq)
	if err != nil {
		return fmt.Errorf("assigning ball sequence: %w", err)
	}

	ball.CreatedAt = now
	_, err = tx.ExecContext(ctx, `
		INSERT INTO balls (ball_id, inning_id, seq, over_number, ball_in_over,
			runs, ball_type, wicket_kind, dismissed_player_id, striker_id,
			bowler_id, manual_strike, shot_meta, delivery_token, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		ball.BallID, ball.InningID, ball.Seq, ball.OverNumber, ball.BallInOver,
		ball.Runs, ball.BallType, ball.WicketKind, ball.DismissedPlayerID, ball.StrikerID,
		ball.BowlerID, ball.ManualStrike, ball.ShotMeta, ball.DeliveryToken, ball.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting ball: %w", err)
	}

	in.UpdatedAt = now
	_, err = tx.ExecContext(ctx, `
		UPDATE innings
		SET runs = $2, wickets = $3, legal_balls = $4, over_runs_conceded = $5,
			striker_id = $6, non_striker_id = $7, current_bowler_id = $8,
			last_over_bowler_id = $9, status = $10, updated_at = $11
		WHERE inning_id = $1
	`,
		in.InningID, in.Runs, in.Wickets, in.LegalBalls, in.OverRunsConceded,
		in.StrikerID, in.NonStrikerID, in.CurrentBowlerID,
		in.LastOverBowlerID, in.Status, in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating inning: %w", err)
	}

	for _, e := range batting {
		e.UpdatedAt = now
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO batting_entries (inning_id, player_id, batting_order,
				runs, balls_faced, fours, sixes, is_out, dismissal,
				created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (inning_id, player_id) DO UPDATE
			SET runs = EXCLUDED.runs, balls_faced = EXCLUDED.balls_faced,
				fours = EXCLUDED.fours, sixes = EXCLUDED.sixes,
				is_out = EXCLUDED.is_out, dismissal = EXCLUDED.dismissal,
				updated_at = EXCLUDED.updated_at
		`,
			e.InningID, e.PlayerID, e.BattingOrder,
			e.Runs, e.BallsFaced, e.Fours, e.Sixes, e.Out, e.Dismissal,
			e.CreatedAt, e.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting batting entry %s: %w", e.PlayerID, err)
		}
	}

	if bowling != nil {
		bowling.UpdatedAt = now
		if bowling.CreatedAt.IsZero() {
			bowling.CreatedAt = now
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO bowling_entries (inning_id, player_id, balls,
				runs_conceded, wickets, maidens, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			ON CONFLICT (inning_id, player_id) DO UPDATE
			SET balls = EXCLUDED.balls, runs_conceded = EXCLUDED.runs_conceded,
				wickets = EXCLUDED.wickets, maidens = EXCLUDED.maidens,
				updated_at = EXCLUDED.updated_at
		`,
			bowling.InningID, bowling.PlayerID, bowling.Balls,
			bowling.RunsConceded, bowling.Wickets, bowling.Maidens,
			bowling.CreatedAt, bowling.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("upserting bowling entry %s: %w", bowling.PlayerID, err)
		}
	}

	return tx.Commit()
}
