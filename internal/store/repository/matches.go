// Package repository holds the handwritten SQL data access layer over the
// match/innings/ball store.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/fortuna/crease/internal/store"
)

// ErrNotFound is returned when a row does not exist.
var ErrNotFound = errors.New("not found")

// IsUniqueViolation reports whether err is a unique-constraint violation,
// used to detect duplicate innings numbers and replayed delivery tokens.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// MatchRepository reads match configuration and scoring permissions. Match
// lifecycle itself is owned by an out-of-scope collaborator; this service
// only consumes it.
type MatchRepository struct {
	db *store.Database
}

// NewMatchRepository creates a new match repository.
func NewMatchRepository(db *store.Database) *MatchRepository {
	return &MatchRepository{db: db}
}

// GetMatch finds a match by ID.
func (r *MatchRepository) GetMatch(ctx context.Context, matchID string) (*store.Match, error) {
	query := `
		SELECT match_id, tournament_id, team_a_id, team_b_id, balls_per_over,
			overs_limit, status, organizer_id, created_at, updated_at
		FROM matches
		WHERE match_id = $1
	`

	m := &store.Match{}
	err := r.db.DB().QueryRowContext(ctx, query, matchID).Scan(
		&m.MatchID, &m.TournamentID, &m.TeamAID, &m.TeamBID, &m.BallsPerOver,
		&m.OversLimit, &m.Status, &m.OrganizerID, &m.CreatedAt, &m.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("match %s: %w", matchID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying match: %w", err)
	}

	return m, nil
}

// CanScore reports whether the user may record deliveries for the match:
// the organizer, or anyone holding a scorer/umpire/organiser role on it.
func (r *MatchRepository) CanScore(ctx context.Context, matchID, userID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM matches
			WHERE match_id = $1 AND organizer_id = $2
		) OR EXISTS (
			SELECT 1 FROM match_officials
			WHERE match_id = $1 AND user_id = $2
				AND role IN ('scorer', 'umpire', 'organiser')
		)
	`

	var allowed bool
	if err := r.db.DB().QueryRowContext(ctx, query, matchID, userID).Scan(&allowed); err != nil {
		return false, fmt.Errorf("querying match permissions: %w", err)
	}
	return allowed, nil
}
