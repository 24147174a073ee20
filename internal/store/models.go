package store

import (
	"database/sql"
	"fmt"
	"time"
)

// MatchStatus is the lifecycle status of a match.
type MatchStatus string

const (
	MatchScheduled MatchStatus = "scheduled"
	MatchLive      MatchStatus = "live"
	MatchCompleted MatchStatus = "completed"
	MatchAbandoned MatchStatus = "abandoned"
)

// InningStatus is the persisted state of an innings. An innings moves from
// in_progress to completed exactly once, written by the ball recorder in the
// same transaction as the terminating delivery.
type InningStatus string

const (
	InningInProgress InningStatus = "in_progress"
	InningCompleted  InningStatus = "completed"
)

// BallType classifies a delivery. Only normal, free-hit, bye and leg-bye
// deliveries count toward the over tally.
type BallType string

const (
	BallNormal  BallType = "normal"
	BallFreeHit BallType = "free_hit"
	BallWide    BallType = "wide"
	BallNoBall  BallType = "no_ball"
	BallBye     BallType = "bye"
	BallLegBye  BallType = "leg_bye"
	BallPenalty BallType = "penalty"
)

// ParseBallType validates a wire value against the closed set of ball types.
func ParseBallType(s string) (BallType, error) {
	switch BallType(s) {
	case BallNormal, BallFreeHit, BallWide, BallNoBall, BallBye, BallLegBye, BallPenalty:
		return BallType(s), nil
	case "":
		return BallNormal, nil
	}
	return "", fmt.Errorf("unknown ball type %q", s)
}

// Legal reports whether the delivery counts toward the over/ball tally.
func (t BallType) Legal() bool {
	switch t {
	case BallNormal, BallFreeHit, BallBye, BallLegBye:
		return true
	}
	return false
}

// DismissalKind classifies how a batter got out.
type DismissalKind string

const (
	DismissalBowled    DismissalKind = "bowled"
	DismissalCaught    DismissalKind = "caught"
	DismissalLBW       DismissalKind = "lbw"
	DismissalRunOut    DismissalKind = "run_out"
	DismissalStumped   DismissalKind = "stumped"
	DismissalHitWicket DismissalKind = "hit_wicket"
)

// ParseDismissalKind validates a wire value against the closed set of
// dismissal kinds.
func ParseDismissalKind(s string) (DismissalKind, error) {
	switch DismissalKind(s) {
	case DismissalBowled, DismissalCaught, DismissalLBW, DismissalRunOut,
		DismissalStumped, DismissalHitWicket:
		return DismissalKind(s), nil
	}
	return "", fmt.Errorf("unknown dismissal kind %q", s)
}

// CreditsBowler reports whether the dismissal counts toward the bowler's
// wicket tally. Run-outs belong to the fielding side, not the bowler.
func (k DismissalKind) CreditsBowler() bool {
	return k != DismissalRunOut
}

// Match holds per-match configuration. It is owned by the match-lifecycle
// collaborator and immutable once live except status/result fields.
type Match struct {
	MatchID      string      `json:"match_id" db:"match_id"`
	TournamentID string      `json:"tournament_id" db:"tournament_id"`
	TeamAID      string      `json:"team_a_id" db:"team_a_id"`
	TeamBID      string      `json:"team_b_id" db:"team_b_id"`
	BallsPerOver int         `json:"balls_per_over" db:"balls_per_over"`
	OversLimit   int         `json:"overs_limit" db:"overs_limit"`
	Status       MatchStatus `json:"status" db:"status"`
	OrganizerID  string      `json:"organizer_id" db:"organizer_id"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at" db:"updated_at"`
}

// HasTeam reports whether teamID is one of the two sides of the match.
func (m *Match) HasTeam(teamID string) bool {
	return teamID == m.TeamAID || teamID == m.TeamBID
}

// Inning is the authoritative aggregate for one innings of a match. The
// three player slots may be null, meaning a selection is required before the
// next delivery can be recorded. LastOverBowlerID is retained at each over
// boundary so the no-consecutive-overs rule is an O(1) check.
type Inning struct {
	InningID         string         `json:"inning_id" db:"inning_id"`
	MatchID          string         `json:"match_id" db:"match_id"`
	InningNumber     int            `json:"inning_number" db:"inning_number"`
	BattingTeamID    string         `json:"batting_team_id" db:"batting_team_id"`
	BowlingTeamID    string         `json:"bowling_team_id" db:"bowling_team_id"`
	Runs             int            `json:"runs" db:"runs"`
	Wickets          int            `json:"wickets" db:"wickets"`
	LegalBalls       int            `json:"legal_balls" db:"legal_balls"`
	OverRunsConceded int            `json:"over_runs_conceded" db:"over_runs_conceded"`
	StrikerID        sql.NullString `json:"striker_id" db:"striker_id"`
	NonStrikerID     sql.NullString `json:"non_striker_id" db:"non_striker_id"`
	CurrentBowlerID  sql.NullString `json:"current_bowler_id" db:"current_bowler_id"`
	LastOverBowlerID sql.NullString `json:"last_over_bowler_id" db:"last_over_bowler_id"`
	Status           InningStatus   `json:"status" db:"status"`
	CreatedAt        time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at" db:"updated_at"`
}

// Ball is one immutable delivery event in the append-only ball log. Seq is a
// per-inning sequence number; (OverNumber, BallInOver) give the scoreboard
// position, where illegal deliveries share the slot of the upcoming legal
// ball. The log is the source of truth from which aggregates can be rebuilt.
type Ball struct {
	BallID            string         `json:"ball_id" db:"ball_id"`
	InningID          string         `json:"inning_id" db:"inning_id"`
	Seq               int            `json:"seq" db:"seq"`
	OverNumber        int            `json:"over_number" db:"over_number"`
	BallInOver        int            `json:"ball_in_over" db:"ball_in_over"`
	Runs              int            `json:"runs" db:"runs"`
	BallType          BallType       `json:"ball_type" db:"ball_type"`
	WicketKind        sql.NullString `json:"wicket_kind,omitempty" db:"wicket_kind"`
	DismissedPlayerID sql.NullString `json:"dismissed_player_id,omitempty" db:"dismissed_player_id"`
	StrikerID         string         `json:"striker_id" db:"striker_id"`
	BowlerID          string         `json:"bowler_id" db:"bowler_id"`
	ManualStrike      bool           `json:"manual_strike" db:"manual_strike"`
	ShotMeta          sql.NullString `json:"shot_meta,omitempty" db:"shot_meta"`
	DeliveryToken     sql.NullString `json:"delivery_token,omitempty" db:"delivery_token"`
	CreatedAt         time.Time      `json:"created_at" db:"created_at"`
}

// BattingEntry is one scorecard row per (inning, player). BattingOrder is
// assigned on first appearance; counters only ever increase; Out/Dismissal
// are set at most once.
type BattingEntry struct {
	InningID     string         `json:"inning_id" db:"inning_id"`
	PlayerID     string         `json:"player_id" db:"player_id"`
	BattingOrder int            `json:"batting_order" db:"batting_order"`
	Runs         int            `json:"runs" db:"runs"`
	BallsFaced   int            `json:"balls_faced" db:"balls_faced"`
	Fours        int            `json:"fours" db:"fours"`
	Sixes        int            `json:"sixes" db:"sixes"`
	Out          bool           `json:"out" db:"is_out"`
	Dismissal    sql.NullString `json:"dismissal,omitempty" db:"dismissal"`
	CreatedAt    time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at" db:"updated_at"`
}

// BowlingEntry is one scorecard row per (inning, bowler).
type BowlingEntry struct {
	InningID     string    `json:"inning_id" db:"inning_id"`
	PlayerID     string    `json:"player_id" db:"player_id"`
	Balls        int       `json:"balls" db:"balls"`
	RunsConceded int       `json:"runs_conceded" db:"runs_conceded"`
	Wickets      int       `json:"wickets" db:"wickets"`
	Maidens      int       `json:"maidens" db:"maidens"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// Extras is the per-ball-type running state for an innings, derived from the
// ball log.
type Extras struct {
	Wides     int `json:"wides"`
	NoBalls   int `json:"no_balls"`
	Byes      int `json:"byes"`
	LegByes   int `json:"leg_byes"`
	Penalties int `json:"penalties"`
}

// Total returns the sum of all extra runs.
func (e Extras) Total() int {
	return e.Wides + e.NoBalls + e.Byes + e.LegByes + e.Penalties
}
