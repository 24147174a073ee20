package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/fortuna/crease/internal/apperr"
	"github.com/fortuna/crease/internal/scoring"
	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

const snapshotTTL = time.Hour

// ScoringService is the entry point for all mutating scoring operations and
// the read views over an innings.
type ScoringService struct {
	matches   MatchProvider
	rosters   RosterProvider
	innings   InningStore
	balls     BallStore
	cards     ScorecardStore
	cache     LiveCache
	publisher BallPublisher
	locks     *inningLocks
	logger    zerolog.Logger
}

// NewScoringService creates a new scoring service. cache and publisher may
// be nil; both are best-effort side channels.
func NewScoringService(
	matches MatchProvider,
	rosters RosterProvider,
	innings InningStore,
	balls BallStore,
	cards ScorecardStore,
	cache LiveCache,
	publisher BallPublisher,
	logger zerolog.Logger,
) *ScoringService {
	return &ScoringService{
		matches:   matches,
		rosters:   rosters,
		innings:   innings,
		balls:     balls,
		cards:     cards,
		cache:     cache,
		publisher: publisher,
		locks:     newInningLocks(),
		logger:    logger,
	}
}

// StartInningInput carries everything needed to open scoring for an innings.
type StartInningInput struct {
	MatchID       string
	InningNumber  int
	BattingTeamID string
	BowlingTeamID string
	StrikerID     string
	NonStrikerID  string
	BowlerID      string
	ActingUserID  string
}

// StartInning creates the innings aggregate with all three starting slots
// filled, leaving it ready for the first delivery.
func (s *ScoringService) StartInning(ctx context.Context, input StartInningInput) (*store.Inning, error) {
	match, err := s.loadLiveMatch(ctx, input.MatchID, input.ActingUserID)
	if err != nil {
		return nil, err
	}

	if input.InningNumber < 1 {
		return nil, apperr.Validationf("inning number must be positive")
	}
	if !match.HasTeam(input.BattingTeamID) || !match.HasTeam(input.BowlingTeamID) {
		return nil, apperr.Validationf("teams must be the two sides of the match")
	}
	if input.BattingTeamID == input.BowlingTeamID {
		return nil, apperr.Validationf("batting and bowling team must differ")
	}
	if input.StrikerID == "" || input.NonStrikerID == "" || input.BowlerID == "" {
		return nil, apperr.Validationf("striker, non-striker and bowler are required")
	}
	if input.StrikerID == input.NonStrikerID {
		return nil, apperr.Validationf("striker and non-striker must differ")
	}

	for _, playerID := range []string{input.StrikerID, input.NonStrikerID} {
		if err := s.requireMember(ctx, input.BattingTeamID, playerID); err != nil {
			return nil, err
		}
	}
	if err := s.requireMember(ctx, input.BowlingTeamID, input.BowlerID); err != nil {
		return nil, err
	}

	id, err := gonanoid.New()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "generating inning id", err)
	}

	in := &store.Inning{
		InningID:        id,
		MatchID:         input.MatchID,
		InningNumber:    input.InningNumber,
		BattingTeamID:   input.BattingTeamID,
		BowlingTeamID:   input.BowlingTeamID,
		StrikerID:       sql.NullString{String: input.StrikerID, Valid: true},
		NonStrikerID:    sql.NullString{String: input.NonStrikerID, Valid: true},
		CurrentBowlerID: sql.NullString{String: input.BowlerID, Valid: true},
		Status:          store.InningInProgress,
	}

	if err := s.innings.CreateInning(ctx, in); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperr.Conflictf("inning %d already started for match %s", input.InningNumber, input.MatchID)
		}
		return nil, apperr.Wrap(apperr.Internal, "creating inning", err)
	}

	s.refreshSnapshot(ctx, match, in)
	return in, nil
}

// DeliveryInput is one ball as submitted by a scorer client.
type DeliveryInput struct {
	Runs               int
	BallType           store.BallType
	Wicket             *scoring.Wicket
	ManualStrikeChange bool
	ShotMeta           json.RawMessage
	// DeliveryToken is an optional client-supplied idempotency key; a retry
	// carrying the same token is rejected instead of double-recorded.
	DeliveryToken string
	ActingUserID  string
}

// BallResult is the post-delivery aggregate plus the flags a scorer client
// needs to drive the next action.
type BallResult struct {
	InningID     string                `json:"inning_id"`
	Seq          int                   `json:"seq"`
	Runs         int                   `json:"runs"`
	Wickets      int                   `json:"wickets"`
	Overs        string                `json:"overs"`
	NeedsBatsman bool                  `json:"needs_batsman"`
	NeedsBowler  bool                  `json:"needs_bowler"`
	InningEnded  bool                  `json:"inning_ended"`
	Chase        *scoring.ChaseMetrics `json:"chase,omitempty"`
}

// RecordBall ingests one delivery: validate, transition the aggregate,
// append the immutable ball record and fold the scorecards, all under the
// per-inning lock and a single transaction.
func (s *ScoringService) RecordBall(ctx context.Context, inningID string, input DeliveryInput) (*BallResult, error) {
	if input.DeliveryToken != "" {
		if _, err := uuid.Parse(input.DeliveryToken); err != nil {
			return nil, apperr.Validationf("delivery token must be a UUID")
		}
	}

	unlock := s.locks.Lock(inningID)
	defer unlock()

	in, match, err := s.loadInning(ctx, inningID, input.ActingUserID)
	if err != nil {
		return nil, err
	}

	rules, err := s.rulesFor(ctx, match, in)
	if err != nil {
		return nil, err
	}

	prev := scoring.StateOf(in)
	d := scoring.Delivery{
		Runs:         input.Runs,
		Type:         input.BallType,
		Wicket:       input.Wicket,
		ManualStrike: input.ManualStrikeChange,
	}

	next, out, err := scoring.Apply(rules, prev, d)
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrSelectionPending):
			return nil, apperr.Conflictf("selection pending: %v", err)
		case errors.Is(err, scoring.ErrInningOver):
			return nil, apperr.Conflictf("inning %s has ended", inningID)
		case errors.Is(err, scoring.ErrInvalidDelivery):
			return nil, apperr.Wrap(apperr.Validation, "invalid delivery", err)
		default:
			return nil, apperr.Wrap(apperr.Internal, "applying delivery", err)
		}
	}

	ball, err := s.buildBall(in, prev, rules, input)
	if err != nil {
		return nil, err
	}

	batting, bowling, err := s.foldScorecards(ctx, in, prev, d, out)
	if err != nil {
		return nil, err
	}

	writeState(in, next)

	if err := s.innings.ApplyDelivery(ctx, in, ball, batting, bowling); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperr.Conflictf("delivery token already recorded")
		}
		return nil, apperr.Wrap(apperr.Internal, "recording ball", err)
	}

	s.logger.Info().
		Str("inning_id", in.InningID).
		Int("seq", ball.Seq).
		Str("ball_type", string(ball.BallType)).
		Int("runs", input.Runs).
		Bool("wicket", input.Wicket != nil).
		Bool("inning_ended", out.InningEnded).
		Msg("ball recorded")

	s.refreshSnapshot(ctx, match, in)
	s.publishBall(ctx, match, in, ball, out)

	result := &BallResult{
		InningID:     in.InningID,
		Seq:          ball.Seq,
		Runs:         in.Runs,
		Wickets:      in.Wickets,
		Overs:        scoring.OversDisplay(in.LegalBalls, rules.BallsPerOver),
		NeedsBatsman: out.NeedsBatsman,
		NeedsBowler:  out.NeedsBowler,
		InningEnded:  out.InningEnded,
	}
	if in.InningNumber > 1 {
		chase := scoring.Chase(rules, next)
		result.Chase = &chase
	}
	return result, nil
}

// loadLiveMatch fetches the match and enforces the live-status and
// permission preconditions shared by every mutating operation.
func (s *ScoringService) loadLiveMatch(ctx context.Context, matchID, userID string) (*store.Match, error) {
	match, err := s.matches.GetMatch(ctx, matchID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFoundf("match %s not found", matchID)
		}
		return nil, apperr.Wrap(apperr.Internal, "loading match", err)
	}
	if match.Status != store.MatchLive {
		return nil, apperr.Conflictf("match %s is not live", matchID)
	}

	if userID == "" {
		return nil, apperr.Permissionf("acting user is required")
	}
	allowed, err := s.matches.CanScore(ctx, matchID, userID)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "checking permissions", err)
	}
	if !allowed {
		return nil, apperr.Permissionf("user %s may not score match %s", userID, matchID)
	}
	return match, nil
}

func (s *ScoringService) loadInning(ctx context.Context, inningID, userID string) (*store.Inning, *store.Match, error) {
	in, err := s.innings.GetInning(ctx, inningID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, apperr.NotFoundf("inning %s not found", inningID)
		}
		return nil, nil, apperr.Wrap(apperr.Internal, "loading inning", err)
	}

	match, err := s.loadLiveMatch(ctx, in.MatchID, userID)
	if err != nil {
		return nil, nil, err
	}
	return in, match, nil
}

func (s *ScoringService) rulesFor(ctx context.Context, match *store.Match, in *store.Inning) (scoring.MatchRules, error) {
	rules := scoring.MatchRules{
		BallsPerOver: match.BallsPerOver,
		OversLimit:   match.OversLimit,
	}

	size, err := s.rosters.RosterSize(ctx, in.BattingTeamID)
	if err != nil {
		return rules, apperr.Wrap(apperr.Internal, "resolving roster size", err)
	}
	rules.RosterSize = size

	if in.InningNumber > 1 {
		best, err := s.innings.HighestEarlierTotal(ctx, in.MatchID, in.InningNumber)
		if err != nil {
			return rules, apperr.Wrap(apperr.Internal, "resolving chase target", err)
		}
		rules.Target = best + 1
	}
	return rules, nil
}

func (s *ScoringService) requireMember(ctx context.Context, teamID, playerID string) error {
	member, err := s.rosters.IsMember(ctx, teamID, playerID)
	if err != nil {
		return apperr.Wrap(apperr.Internal, "checking roster membership", err)
	}
	if !member {
		return apperr.Validationf("player %s is not on team %s", playerID, teamID)
	}
	return nil
}

// buildBall assembles the immutable log record from the pre-ball state:
// illegal deliveries share the scoreboard slot of the upcoming legal ball.
func (s *ScoringService) buildBall(in *store.Inning, prev scoring.InningState, rules scoring.MatchRules, input DeliveryInput) (*store.Ball, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "generating ball id", err)
	}

	ball := &store.Ball{
		BallID:       id,
		InningID:     in.InningID,
		OverNumber:   prev.LegalBalls/rules.BallsPerOver + 1,
		BallInOver:   prev.LegalBalls%rules.BallsPerOver + 1,
		Runs:         input.Runs,
		BallType:     input.BallType,
		StrikerID:    prev.Striker,
		BowlerID:     prev.Bowler,
		ManualStrike: input.ManualStrikeChange,
	}
	if input.Wicket != nil {
		ball.WicketKind = sql.NullString{String: string(input.Wicket.Kind), Valid: true}
		ball.DismissedPlayerID = sql.NullString{String: input.Wicket.DismissedPlayerID, Valid: true}
	}
	if len(input.ShotMeta) > 0 {
		ball.ShotMeta = sql.NullString{String: string(input.ShotMeta), Valid: true}
	}
	if input.DeliveryToken != "" {
		ball.DeliveryToken = sql.NullString{String: input.DeliveryToken, Valid: true}
	}
	return ball, nil
}

// foldScorecards loads or lazily creates the affected batting/bowling rows
// and folds the delivery outcome into them.
func (s *ScoringService) foldScorecards(ctx context.Context, in *store.Inning, prev scoring.InningState, d scoring.Delivery, out scoring.Outcome) ([]*store.BattingEntry, *store.BowlingEntry, error) {
	nextOrder := 0

	striker, err := s.battingEntry(ctx, in.InningID, prev.Striker, &nextOrder)
	if err != nil {
		return nil, nil, err
	}
	scoring.FoldBatting(striker, out)

	batting := []*store.BattingEntry{striker}
	if d.Wicket != nil {
		dismissed := striker
		if d.Wicket.DismissedPlayerID != prev.Striker {
			dismissed, err = s.battingEntry(ctx, in.InningID, d.Wicket.DismissedPlayerID, &nextOrder)
			if err != nil {
				return nil, nil, err
			}
			batting = append(batting, dismissed)
		}
		scoring.MarkDismissed(dismissed, d.Wicket.Kind)
	}

	bowling, err := s.cards.GetBowlingEntry(ctx, in.InningID, prev.Bowler)
	if errors.Is(err, repository.ErrNotFound) {
		bowling = &store.BowlingEntry{InningID: in.InningID, PlayerID: prev.Bowler}
	} else if err != nil {
		return nil, nil, apperr.Wrap(apperr.Internal, "loading bowling entry", err)
	}
	scoring.FoldBowling(bowling, out)

	return batting, bowling, nil
}

// battingEntry returns the existing row or creates one at the next batting
// order. nextOrder caches the max across multiple creations in one ball.
func (s *ScoringService) battingEntry(ctx context.Context, inningID, playerID string, nextOrder *int) (*store.BattingEntry, error) {
	entry, err := s.cards.GetBattingEntry(ctx, inningID, playerID)
	if err == nil {
		return entry, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Wrap(apperr.Internal, "loading batting entry", err)
	}

	if *nextOrder == 0 {
		max, err := s.cards.MaxBattingOrder(ctx, inningID)
		if err != nil {
			return nil, apperr.Wrap(apperr.Internal, "resolving batting order", err)
		}
		*nextOrder = max
	}
	*nextOrder++

	return &store.BattingEntry{
		InningID:     inningID,
		PlayerID:     playerID,
		BattingOrder: *nextOrder,
	}, nil
}

// writeState copies the post-ball engine state back onto the persisted row.
func writeState(in *store.Inning, st scoring.InningState) {
	in.Runs = st.Runs
	in.Wickets = st.Wickets
	in.LegalBalls = st.LegalBalls
	in.OverRunsConceded = st.OverRuns
	in.StrikerID = nullable(st.Striker)
	in.NonStrikerID = nullable(st.NonStriker)
	in.CurrentBowlerID = nullable(st.Bowler)
	in.LastOverBowlerID = nullable(st.LastOverBowler)
	if st.Ended {
		in.Status = store.InningCompleted
	}
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
