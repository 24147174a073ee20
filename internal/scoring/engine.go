// Package scoring implements the ball-by-ball state machine for a cricket
// innings: run attribution, strike rotation, over transitions, wicket
// handling and innings termination. The package is pure - it never touches
// storage - so the ball log can be replayed through it from an empty state.
package scoring

import (
	"fmt"

	"github.com/fortuna/crease/internal/store"
)

// Maximum wickets that can fall in an innings with a full-size roster.
const maxWickets = 10

// MatchRules is the immutable per-match configuration a transition needs.
type MatchRules struct {
	BallsPerOver int
	OversLimit   int
	// RosterSize is the batting team's roster size; the innings closes when
	// wickets reach min(10, RosterSize). Zero means a full-size side.
	RosterSize int
	// Target is the run total that ends the innings when reached. Zero for
	// the first innings of a match.
	Target int
}

// MaxLegalBalls returns the legal-delivery budget for an innings.
func (r MatchRules) MaxLegalBalls() int {
	return r.OversLimit * r.BallsPerOver
}

// WicketsLimit returns the number of wickets that ends the innings.
func (r MatchRules) WicketsLimit() int {
	if r.RosterSize > 0 && r.RosterSize < maxWickets {
		return r.RosterSize
	}
	return maxWickets
}

// InningState is the value-typed aggregate the state machine transitions.
// Empty player slots mean a selection is pending.
type InningState struct {
	Runs       int
	Wickets    int
	LegalBalls int
	Striker    string
	NonStriker string
	Bowler     string
	// LastOverBowler is the bowler of the most recently completed over,
	// retained so the no-consecutive-overs rule never scans the ball log.
	LastOverBowler string
	// OverRuns accumulates bowler-conceded runs since the last over break,
	// backing the maiden counter.
	OverRuns int
	Ended    bool
}

// StateOf lifts a persisted inning row into the value type the state
// machine operates on.
func StateOf(in *store.Inning) InningState {
	return InningState{
		Runs:           in.Runs,
		Wickets:        in.Wickets,
		LegalBalls:     in.LegalBalls,
		Striker:        in.StrikerID.String,
		NonStriker:     in.NonStrikerID.String,
		Bowler:         in.CurrentBowlerID.String,
		LastOverBowler: in.LastOverBowlerID.String,
		OverRuns:       in.OverRunsConceded,
		Ended:          in.Status == store.InningCompleted,
	}
}

// Wicket describes a dismissal reported with a delivery.
type Wicket struct {
	Kind              store.DismissalKind
	DismissedPlayerID string
}

// Delivery is one ball as reported by the scorer. Runs is the face value:
// batted runs for normal deliveries, extra runs beyond the automatic
// one-run penalty for wides, no-balls and penalties.
type Delivery struct {
	Runs         int
	Type         store.BallType
	Wicket       *Wicket
	ManualStrike bool
}

// Outcome reports how a delivery was attributed, so callers can fold it
// into scorecard rows and the ball log without re-deriving the rules.
type Outcome struct {
	Legal       bool
	TeamRuns    int
	StrikerRuns int
	BallFaced   bool
	Four        bool
	Six         bool

	BowlerConceded int
	BowlerWicket   bool
	Maiden         bool

	Swaps         int
	OverCompleted bool
	NeedsBatsman  bool
	NeedsBowler   bool
	InningEnded   bool
}

// Apply validates a delivery against the current state and returns the next
// state. The input state is unchanged; nothing is persisted here.
//
// Transition order per the laws of the game: attribute runs, count the legal
// ball, apply the wicket, rotate strike (odd runs, then manual override,
// then over completion), break the over, then check termination.
func Apply(rules MatchRules, st InningState, d Delivery) (InningState, Outcome, error) {
	var out Outcome

	if st.Ended {
		return st, out, ErrInningOver
	}
	if st.Striker == "" || st.NonStriker == "" || st.Bowler == "" {
		return st, out, ErrSelectionPending
	}
	if err := validate(st, d); err != nil {
		return st, out, err
	}

	next := transition(rules, st, d, &out)
	return next, out, nil
}

func validate(st InningState, d Delivery) error {
	if d.Runs < 0 {
		return fmt.Errorf("%w: runs must be non-negative", ErrInvalidDelivery)
	}
	if !validBallType(d.Type) {
		return fmt.Errorf("%w: ball type %q", ErrInvalidDelivery, d.Type)
	}
	if d.Wicket != nil {
		if _, err := store.ParseDismissalKind(string(d.Wicket.Kind)); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidDelivery, err)
		}
		if id := d.Wicket.DismissedPlayerID; id != st.Striker && id != st.NonStriker {
			return fmt.Errorf("%w: dismissed player %s is not at the crease", ErrInvalidDelivery, id)
		}
	}
	return nil
}

func validBallType(t store.BallType) bool {
	_, err := store.ParseBallType(string(t))
	return err == nil && t != ""
}

// transition applies a delivery without slot-presence validation. Replay
// drives it directly, seeding slots from the recorded ball.
func transition(rules MatchRules, st InningState, d Delivery, out *Outcome) InningState {
	out.Legal = d.Type.Legal()

	switch d.Type {
	case store.BallNormal, store.BallFreeHit:
		out.TeamRuns = d.Runs
		out.StrikerRuns = d.Runs
		out.BallFaced = true
		out.BowlerConceded = d.Runs
		out.Four = d.Runs == 4
		out.Six = d.Runs == 6
	case store.BallBye, store.BallLegBye:
		// Legal delivery faced, but the runs are extras: no striker credit,
		// nothing conceded by the bowler.
		out.TeamRuns = d.Runs
		out.BallFaced = true
	case store.BallWide:
		out.TeamRuns = d.Runs + 1
		out.BowlerConceded = d.Runs + 1
	case store.BallNoBall:
		// Batted runs off a no-ball credit the striker; the one-run penalty
		// is an extra. The delivery is not a ball faced.
		out.TeamRuns = d.Runs + 1
		out.StrikerRuns = d.Runs
		out.BowlerConceded = d.Runs + 1
	case store.BallPenalty:
		// Penalty runs go to the team only, never against the bowler.
		out.TeamRuns = d.Runs + 1
	}

	st.Runs += out.TeamRuns
	st.OverRuns += out.BowlerConceded
	if out.Legal {
		st.LegalBalls++
	}

	dismissed := ""
	if d.Wicket != nil {
		// A wicket falls regardless of ball legality: run-outs and stumpings
		// happen on wides too. Run-outs belong to the fielding side.
		st.Wickets++
		out.BowlerWicket = d.Wicket.Kind.CreditsBowler()
		dismissed = d.Wicket.DismissedPlayerID
	}

	if out.Legal && d.Runs%2 == 1 {
		st.Striker, st.NonStriker = st.NonStriker, st.Striker
		out.Swaps++
	}
	if d.ManualStrike {
		st.Striker, st.NonStriker = st.NonStriker, st.Striker
		out.Swaps++
	}

	if out.Legal && st.LegalBalls%rules.BallsPerOver == 0 {
		out.OverCompleted = true
		st.Striker, st.NonStriker = st.NonStriker, st.Striker
		out.Swaps++
		out.Maiden = st.OverRuns == 0
		st.LastOverBowler = st.Bowler
		st.Bowler = ""
		st.OverRuns = 0
	}

	// The dismissed batter vacates the slot the rotation would have left
	// them in.
	if dismissed != "" {
		switch dismissed {
		case st.Striker:
			st.Striker = ""
		case st.NonStriker:
			st.NonStriker = ""
		}
	}

	switch {
	case st.LegalBalls >= rules.MaxLegalBalls():
		st.Ended = true
	case st.Wickets >= rules.WicketsLimit():
		st.Ended = true
	case rules.Target > 0 && st.Runs >= rules.Target:
		st.Ended = true
	}

	out.InningEnded = st.Ended
	if !st.Ended {
		out.NeedsBatsman = st.Striker == "" || st.NonStriker == ""
		out.NeedsBowler = st.Bowler == ""
	}
	return st
}

// OversDisplay renders a legal-ball count as the conventional
// "completed.remainder" overs string, e.g. 13 balls at six per over is "2.1".
func OversDisplay(legalBalls, ballsPerOver int) string {
	if ballsPerOver <= 0 {
		return "0.0"
	}
	return fmt.Sprintf("%d.%d", legalBalls/ballsPerOver, legalBalls%ballsPerOver)
}
