package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/fortuna/crease/internal/apperr"
	"github.com/fortuna/crease/internal/scoring"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// InningSnapshot is the live read view of an innings: the aggregate, the
// per-ball-type running state and the chase figures where they apply.
type InningSnapshot struct {
	InningID      string                `json:"inning_id"`
	MatchID       string                `json:"match_id"`
	InningNumber  int                   `json:"inning_number"`
	BattingTeamID string                `json:"batting_team_id"`
	BowlingTeamID string                `json:"bowling_team_id"`
	Runs          int                   `json:"runs"`
	Wickets       int                   `json:"wickets"`
	Overs         string                `json:"overs"`
	LegalBalls    int                   `json:"legal_balls"`
	StrikerID     string                `json:"striker_id,omitempty"`
	NonStrikerID  string                `json:"non_striker_id,omitempty"`
	BowlerID      string                `json:"bowler_id,omitempty"`
	Status        store.InningStatus    `json:"status"`
	NeedsBatsman  bool                  `json:"needs_batsman"`
	NeedsBowler   bool                  `json:"needs_bowler"`
	Extras        *store.Extras         `json:"extras,omitempty"`
	Chase         *scoring.ChaseMetrics `json:"chase,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// BallEvent is what gets published to the live stream after each accepted
// delivery.
type BallEvent struct {
	MatchID     string         `json:"match_id"`
	InningID    string         `json:"inning_id"`
	Seq         int            `json:"seq"`
	OverNumber  int            `json:"over_number"`
	BallInOver  int            `json:"ball_in_over"`
	BallType    store.BallType `json:"ball_type"`
	Runs        int            `json:"runs"`
	Wicket      bool           `json:"wicket"`
	TotalRuns   int            `json:"total_runs"`
	Wickets     int            `json:"wickets"`
	Overs       string         `json:"overs"`
	InningEnded bool           `json:"inning_ended"`
}

func snapshotKey(inningID string) string {
	return "inning:" + inningID + ":state"
}

// GetInningState returns the live snapshot, served from cache when fresh.
func (s *ScoringService) GetInningState(ctx context.Context, inningID string) (*InningSnapshot, error) {
	if s.cache != nil {
		if raw, err := s.cache.Get(ctx, snapshotKey(inningID)); err == nil {
			snap := &InningSnapshot{}
			if err := json.Unmarshal([]byte(raw), snap); err == nil {
				return snap, nil
			}
		}
	}

	in, err := s.getInning(ctx, inningID)
	if err != nil {
		return nil, err
	}
	match, err := s.matches.GetMatch(ctx, in.MatchID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading match", err)
	}

	snap, err := s.buildSnapshot(ctx, match, in)
	if err != nil {
		return nil, err
	}
	s.storeSnapshot(ctx, snap)
	return snap, nil
}

// ScorecardRow pairs a batting entry with its derived strike rate.
type ScorecardRow struct {
	store.BattingEntry
	StrikeRate float64 `json:"strike_rate"`
}

// BowlingRow pairs a bowling entry with its derived figures.
type BowlingRow struct {
	store.BowlingEntry
	Overs   string  `json:"overs"`
	Economy float64 `json:"economy"`
}

// Scorecard is the per-innings batting and bowling summary.
type Scorecard struct {
	InningID string         `json:"inning_id"`
	Batting  []ScorecardRow `json:"batting"`
	Bowling  []BowlingRow   `json:"bowling"`
}

// GetScorecard returns the batting and bowling cards for an innings.
func (s *ScoringService) GetScorecard(ctx context.Context, inningID string) (*Scorecard, error) {
	in, err := s.getInning(ctx, inningID)
	if err != nil {
		return nil, err
	}
	match, err := s.matches.GetMatch(ctx, in.MatchID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading match", err)
	}

	batting, err := s.cards.BattingEntries(ctx, inningID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading batting entries", err)
	}
	bowling, err := s.cards.BowlingEntries(ctx, inningID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading bowling entries", err)
	}

	card := &Scorecard{InningID: inningID}
	for _, e := range batting {
		card.Batting = append(card.Batting, ScorecardRow{
			BattingEntry: e,
			StrikeRate:   scoring.StrikeRate(e.Runs, e.BallsFaced),
		})
	}
	for _, e := range bowling {
		card.Bowling = append(card.Bowling, BowlingRow{
			BowlingEntry: e,
			Overs:        scoring.OversDisplay(e.Balls, match.BallsPerOver),
			Economy:      scoring.Economy(e.RunsConceded, e.Balls, match.BallsPerOver),
		})
	}
	return card, nil
}

// GetChase returns target/required-rate figures; only meaningful for the
// second or later innings.
func (s *ScoringService) GetChase(ctx context.Context, inningID string) (*scoring.ChaseMetrics, error) {
	in, err := s.getInning(ctx, inningID)
	if err != nil {
		return nil, err
	}
	if in.InningNumber <= 1 {
		return nil, apperr.Validationf("inning %s is not a chase", inningID)
	}
	match, err := s.matches.GetMatch(ctx, in.MatchID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading match", err)
	}

	rules, err := s.rulesFor(ctx, match, in)
	if err != nil {
		return nil, err
	}
	metrics := scoring.Chase(rules, scoring.StateOf(in))
	return &metrics, nil
}

// ListBalls returns the innings ball log ordered by scoreboard position.
func (s *ScoringService) ListBalls(ctx context.Context, inningID string) ([]store.Ball, error) {
	if _, err := s.getInning(ctx, inningID); err != nil {
		return nil, err
	}
	balls, err := s.balls.ListBalls(ctx, inningID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "listing balls", err)
	}
	return balls, nil
}

// RebuildResult compares the stored aggregate with one replayed from the
// ball log.
type RebuildResult struct {
	InningID   string `json:"inning_id"`
	Consistent bool   `json:"consistent"`
	Stored     struct {
		Runs       int `json:"runs"`
		Wickets    int `json:"wickets"`
		LegalBalls int `json:"legal_balls"`
	} `json:"stored"`
	Replayed struct {
		Runs       int `json:"runs"`
		Wickets    int `json:"wickets"`
		LegalBalls int `json:"legal_balls"`
	} `json:"replayed"`
}

// RebuildInning replays the ball log through the state machine and reports
// whether it reproduces the stored aggregate.
func (s *ScoringService) RebuildInning(ctx context.Context, inningID string) (*RebuildResult, error) {
	in, err := s.getInning(ctx, inningID)
	if err != nil {
		return nil, err
	}
	match, err := s.matches.GetMatch(ctx, in.MatchID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading match", err)
	}
	rules, err := s.rulesFor(ctx, match, in)
	if err != nil {
		return nil, err
	}

	balls, err := s.balls.ListBalls(ctx, inningID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "listing balls", err)
	}

	replayed, err := scoring.Replay(rules, balls)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "replaying ball log", err)
	}

	res := &RebuildResult{InningID: inningID}
	res.Stored.Runs = in.Runs
	res.Stored.Wickets = in.Wickets
	res.Stored.LegalBalls = in.LegalBalls
	res.Replayed.Runs = replayed.State.Runs
	res.Replayed.Wickets = replayed.State.Wickets
	res.Replayed.LegalBalls = replayed.State.LegalBalls
	res.Consistent = res.Stored == res.Replayed
	return res, nil
}

func (s *ScoringService) getInning(ctx context.Context, inningID string) (*store.Inning, error) {
	in, err := s.innings.GetInning(ctx, inningID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFoundf("inning %s not found", inningID)
		}
		return nil, apperr.Wrap(apperr.Internal, "loading inning", err)
	}
	return in, nil
}

func (s *ScoringService) buildSnapshot(ctx context.Context, match *store.Match, in *store.Inning) (*InningSnapshot, error) {
	snap := &InningSnapshot{
		InningID:      in.InningID,
		MatchID:       in.MatchID,
		InningNumber:  in.InningNumber,
		BattingTeamID: in.BattingTeamID,
		BowlingTeamID: in.BowlingTeamID,
		Runs:          in.Runs,
		Wickets:       in.Wickets,
		Overs:         scoring.OversDisplay(in.LegalBalls, match.BallsPerOver),
		LegalBalls:    in.LegalBalls,
		StrikerID:     in.StrikerID.String,
		NonStrikerID:  in.NonStrikerID.String,
		BowlerID:      in.CurrentBowlerID.String,
		Status:        in.Status,
		UpdatedAt:     in.UpdatedAt,
	}
	if in.Status != store.InningCompleted {
		snap.NeedsBatsman = !in.StrikerID.Valid || !in.NonStrikerID.Valid
		snap.NeedsBowler = !in.CurrentBowlerID.Valid
	}

	extras, err := s.balls.ExtrasBreakdown(ctx, in.InningID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "loading extras", err)
	}
	snap.Extras = extras

	if in.InningNumber > 1 {
		rules, err := s.rulesFor(ctx, match, in)
		if err != nil {
			return nil, err
		}
		chase := scoring.Chase(rules, scoring.StateOf(in))
		snap.Chase = &chase
	}
	return snap, nil
}

// refreshSnapshot rebuilds and caches the live view after a write.
// Best-effort: a cache failure never fails the write that triggered it.
func (s *ScoringService) refreshSnapshot(ctx context.Context, match *store.Match, in *store.Inning) {
	if s.cache == nil {
		return
	}
	snap, err := s.buildSnapshot(ctx, match, in)
	if err != nil {
		s.logger.Warn().Err(err).Str("inning_id", in.InningID).Msg("failed to build snapshot")
		return
	}
	s.storeSnapshot(ctx, snap)
}

func (s *ScoringService) storeSnapshot(ctx context.Context, snap *InningSnapshot) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		s.logger.Warn().Err(err).Str("inning_id", snap.InningID).Msg("failed to marshal snapshot")
		return
	}
	if err := s.cache.Set(ctx, snapshotKey(snap.InningID), data, snapshotTTL); err != nil {
		s.logger.Warn().Err(err).Str("inning_id", snap.InningID).Msg("failed to cache snapshot")
	}
}

// publishBall pushes the accepted delivery to the live stream. Best-effort.
func (s *ScoringService) publishBall(ctx context.Context, match *store.Match, in *store.Inning, ball *store.Ball, out scoring.Outcome) {
	if s.publisher == nil {
		return
	}
	event := BallEvent{
		MatchID:     match.MatchID,
		InningID:    in.InningID,
		Seq:         ball.Seq,
		OverNumber:  ball.OverNumber,
		BallInOver:  ball.BallInOver,
		BallType:    ball.BallType,
		Runs:        ball.Runs,
		Wicket:      ball.WicketKind.Valid,
		TotalRuns:   in.Runs,
		Wickets:     in.Wickets,
		Overs:       scoring.OversDisplay(in.LegalBalls, match.BallsPerOver),
		InningEnded: in.Status == store.InningCompleted,
	}
	if err := s.publisher.PublishBallEvent(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("inning_id", in.InningID).Msg("failed to publish ball event")
	}
}
