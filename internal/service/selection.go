package service

import (
	"context"
	"errors"

	"github.com/fortuna/crease/internal/apperr"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// SelectBatsman fills a batting slot cleared by a wicket. The player must
// belong to the batting team and must not already have been dismissed in
// this innings.
func (s *ScoringService) SelectBatsman(ctx context.Context, inningID, playerID, actingUserID string) (*store.Inning, error) {
	if playerID == "" {
		return nil, apperr.Validationf("player id is required")
	}

	unlock := s.locks.Lock(inningID)
	defer unlock()

	in, match, err := s.loadInning(ctx, inningID, actingUserID)
	if err != nil {
		return nil, err
	}
	if in.Status == store.InningCompleted {
		return nil, apperr.Conflictf("inning %s has ended", inningID)
	}
	if in.StrikerID.Valid && in.NonStrikerID.Valid {
		return nil, apperr.Conflictf("no batting slot open")
	}
	if (in.StrikerID.Valid && in.StrikerID.String == playerID) ||
		(in.NonStrikerID.Valid && in.NonStrikerID.String == playerID) {
		return nil, apperr.Validationf("player %s is already at the crease", playerID)
	}

	if err := s.requireMember(ctx, in.BattingTeamID, playerID); err != nil {
		return nil, err
	}

	entry, err := s.cards.GetBattingEntry(ctx, inningID, playerID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "loading batting entry", err)
	}
	if entry != nil && entry.Out {
		return nil, apperr.Conflictf("player %s was already dismissed", playerID)
	}

	if !in.StrikerID.Valid {
		in.StrikerID = nullable(playerID)
	} else {
		in.NonStrikerID = nullable(playerID)
	}

	if err := s.innings.UpdateInningPlayers(ctx, in); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "updating inning", err)
	}

	s.logger.Info().
		Str("inning_id", inningID).
		Str("player_id", playerID).
		Msg("batsman selected")

	s.refreshSnapshot(ctx, match, in)
	return in, nil
}

// SelectBowler assigns the bowler for the next over. Only valid at an over
// break, only for bowling-team members, and never for the bowler who bowled
// the over just completed.
func (s *ScoringService) SelectBowler(ctx context.Context, inningID, playerID, actingUserID string) (*store.Inning, error) {
	if playerID == "" {
		return nil, apperr.Validationf("player id is required")
	}

	unlock := s.locks.Lock(inningID)
	defer unlock()

	in, match, err := s.loadInning(ctx, inningID, actingUserID)
	if err != nil {
		return nil, err
	}
	if in.Status == store.InningCompleted {
		return nil, apperr.Conflictf("inning %s has ended", inningID)
	}
	if in.CurrentBowlerID.Valid {
		return nil, apperr.Conflictf("over in progress; bowler change not allowed")
	}

	if err := s.requireMember(ctx, in.BowlingTeamID, playerID); err != nil {
		return nil, err
	}
	if in.LastOverBowlerID.Valid && in.LastOverBowlerID.String == playerID {
		return nil, apperr.Conflictf("player %s bowled the previous over", playerID)
	}

	in.CurrentBowlerID = nullable(playerID)

	if err := s.innings.UpdateInningPlayers(ctx, in); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "updating inning", err)
	}

	s.logger.Info().
		Str("inning_id", inningID).
		Str("player_id", playerID).
		Msg("bowler selected")

	s.refreshSnapshot(ctx, match, in)
	return in, nil
}
