package scoring

import (
	"math"

	"github.com/fortuna/crease/internal/store"
)

// FoldBatting folds one attributed delivery into the striker's scorecard
// row. Dismissal marking is separate because the dismissed player may be the
// non-striker.
func FoldBatting(e *store.BattingEntry, out Outcome) {
	e.Runs += out.StrikerRuns
	if out.BallFaced {
		e.BallsFaced++
	}
	if out.Four {
		e.Fours++
	}
	if out.Six {
		e.Sixes++
	}
}

// MarkDismissed records a dismissal on a batting row. Out and the dismissal
// kind are set at most once; later wickets against the same row are a bug in
// the caller and are ignored rather than overwritten.
func MarkDismissed(e *store.BattingEntry, kind store.DismissalKind) {
	if e.Out {
		return
	}
	e.Out = true
	e.Dismissal.String = string(kind)
	e.Dismissal.Valid = true
}

// FoldBowling folds one attributed delivery into the bowler's scorecard row.
func FoldBowling(e *store.BowlingEntry, out Outcome) {
	if out.Legal {
		e.Balls++
	}
	e.RunsConceded += out.BowlerConceded
	if out.BowlerWicket {
		e.Wickets++
	}
	if out.Maiden {
		e.Maidens++
	}
}

// StrikeRate returns runs per hundred balls faced, rounded to two decimals.
func StrikeRate(runs, ballsFaced int) float64 {
	if ballsFaced == 0 {
		return 0
	}
	return round2(float64(runs) / float64(ballsFaced) * 100)
}

// Economy returns runs conceded per over, rounded to two decimals.
func Economy(runsConceded, balls, ballsPerOver int) float64 {
	if balls == 0 {
		return 0
	}
	return round2(float64(runsConceded) * float64(ballsPerOver) / float64(balls))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
