package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/crease/internal/store"
)

// BallRepository reads the append-only ball log.
type BallRepository struct {
	db *store.Database
}

// NewBallRepository creates a new ball repository.
func NewBallRepository(db *store.Database) *BallRepository {
	return &BallRepository{db: db}
}

// ListBalls returns the full log for an innings ordered by scoreboard
// position, with the sequence number breaking ties between illegal
// deliveries in the same slot.
func (r *BallRepository) ListBalls(ctx context.Context, inningID string) ([]store.Ball, error) {
	query := `
		SELECT ball_id, inning_id, seq, over_number, ball_in_over, runs,
			ball_type, wicket_kind, dismissed_player_id, striker_id, bowler_id,
			manual_strike, shot_meta, delivery_token, created_at
		FROM balls
		WHERE inning_id = $1
		ORDER BY over_number, ball_in_over, seq
	`

	rows, err := r.db.DB().QueryContext(ctx, query, inningID)
	if err != nil {
		return nil, fmt.Errorf("querying balls: %w", err)
	}
	defer rows.Close()

	var balls []store.Ball
	for rows.Next() {
		var b store.Ball
		err := rows.Scan(
			&b.BallID, &b.InningID, &b.Seq, &b.OverNumber, &b.BallInOver, &b.Runs,
			&b.BallType, &b.WicketKind, &b.DismissedPlayerID, &b.StrikerID, &b.BowlerID,
			&b.ManualStrike, &b.ShotMeta, &b.DeliveryToken, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning ball: %w", err)
		}
		balls = append(balls, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating balls: %w", err)
	}

	return balls, nil
}

// ExtrasBreakdown sums the per-ball-type extra runs for an innings. Wides,
// no-balls and penalties include their automatic one-run penalty.
func (r *BallRepository) ExtrasBreakdown(ctx context.Context, inningID string) (*store.Extras, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN ball_type = 'wide' THEN runs + 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ball_type = 'no_ball' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ball_type = 'bye' THEN runs ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ball_type = 'leg_bye' THEN runs ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN ball_type = 'penalty' THEN runs + 1 ELSE 0 END), 0)
		FROM balls
		WHERE inning_id = $1
	`

	e := &store.Extras{}
	err := r.db.DB().QueryRowContext(ctx, query, inningID).Scan(
		&e.Wides, &e.NoBalls, &e.Byes, &e.LegByes, &e.Penalties,
	)
	if err != nil {
		return nil, fmt.Errorf("querying extras: %w", err)
	}
	return e, nil
}
