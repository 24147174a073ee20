package repository

import (
	"context"
	"fmt"

	"github.com/fortuna/crease/internal/store"
)

// TeamRepository resolves team rosters; membership is owned by the
// registration collaborator.
type TeamRepository struct {
	db *store.Database
}

// NewTeamRepository creates a new team repository.
func NewTeamRepository(db *store.Database) *TeamRepository {
	return &TeamRepository{db: db}
}

// IsMember reports whether the player belongs to the team roster.
func (r *TeamRepository) IsMember(ctx context.Context, teamID, playerID string) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM team_players
			WHERE team_id = $1 AND player_id = $2
		)
	`

	var member bool
	if err := r.db.DB().QueryRowContext(ctx, query, teamID, playerID).Scan(&member); err != nil {
		return false, fmt.Errorf("querying team membership: %w", err)
	}
	return member, nil
}

// RosterSize returns the number of players registered to the team.
func (r *TeamRepository) RosterSize(ctx context.Context, teamID string) (int, error) {
	query := `SELECT COUNT(*) FROM team_players WHERE team_id = $1`

	var size int
	if err := r.db.DB().QueryRowContext(ctx, query, teamID).Scan(&size); err != nil {
		return 0, fmt.Errorf("querying roster size: %w", err)
	}
	return size, nil
}
