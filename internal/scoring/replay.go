package scoring

import (
	"fmt"
	"sort"

	"github.com/fortuna/crease/internal/store"
)

// ReplayResult is an innings rebuilt from its ball log alone.
type ReplayResult struct {
	State   InningState
	Batting map[string]*store.BattingEntry
	Bowling map[string]*store.BowlingEntry
}

// Replay folds an inning's ball log through the state machine from an empty
// initial state, reproducing the aggregate and every scorecard row. Striker
// and bowler slots are seeded from each recorded ball, which stands in for
// the selection calls that happened live.
func Replay(rules MatchRules, balls []store.Ball) (*ReplayResult, error) {
	ordered := make([]store.Ball, len(balls))
	copy(ordered, balls)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Seq < ordered[j].Seq })

	res := &ReplayResult{
		Batting: make(map[string]*store.BattingEntry),
		Bowling: make(map[string]*store.BowlingEntry),
	}

	var st InningState
	for _, b := range ordered {
		if st.Ended {
			return nil, fmt.Errorf("ball %d recorded after inning ended", b.Seq)
		}
		d := Delivery{
			Runs:         b.Runs,
			Type:         b.BallType,
			ManualStrike: b.ManualStrike,
		}
		if b.WicketKind.Valid {
			kind, err := store.ParseDismissalKind(b.WicketKind.String)
			if err != nil {
				return nil, fmt.Errorf("ball %d: %w", b.Seq, err)
			}
			d.Wicket = &Wicket{Kind: kind, DismissedPlayerID: b.DismissedPlayerID.String}
		}

		// The log records who was on strike and bowling at the moment of
		// delivery; trust it over the rotation bookkeeping.
		if st.NonStriker == b.StrikerID {
			st.NonStriker = st.Striker
		}
		st.Striker = b.StrikerID
		st.Bowler = b.BowlerID

		var out Outcome
		st = transition(rules, st, d, &out)

		be := res.Batting[b.StrikerID]
		if be == nil {
			be = &store.BattingEntry{
				InningID:     b.InningID,
				PlayerID:     b.StrikerID,
				BattingOrder: len(res.Batting) + 1,
			}
			res.Batting[b.StrikerID] = be
		}
		FoldBatting(be, out)

		if d.Wicket != nil {
			de := res.Batting[d.Wicket.DismissedPlayerID]
			if de == nil {
				de = &store.BattingEntry{
					InningID:     b.InningID,
					PlayerID:     d.Wicket.DismissedPlayerID,
					BattingOrder: len(res.Batting) + 1,
				}
				res.Batting[d.Wicket.DismissedPlayerID] = de
			}
			MarkDismissed(de, d.Wicket.Kind)
		}

		bo := res.Bowling[b.BowlerID]
		if bo == nil {
			bo = &store.BowlingEntry{InningID: b.InningID, PlayerID: b.BowlerID}
			res.Bowling[b.BowlerID] = bo
		}
		FoldBowling(bo, out)
	}

	res.State = st
	return res, nil
}
