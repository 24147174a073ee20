package scoring

import "testing"

func TestChase(t *testing.T) {
	rules := MatchRules{BallsPerOver: 6, OversLimit: 20, Target: 151}

	tests := []struct {
		name string
		st   InningState
		want ChaseMetrics
	}{
		{
			name: "before the first ball",
			st:   InningState{},
			want: ChaseMetrics{
				Target:          151,
				Needed:          151,
				BallsLeft:       120,
				WicketsLeft:     10,
				RequiredRunRate: 7.55,
			},
		},
		{
			name: "mid chase",
			st:   InningState{Runs: 90, Wickets: 3, LegalBalls: 72},
			want: ChaseMetrics{
				Target:          151,
				Needed:          61,
				BallsLeft:       48,
				WicketsLeft:     7,
				CurrentRunRate:  7.5,
				RequiredRunRate: 7.63,
			},
		},
		{
			name: "target passed clamps needed to zero",
			st:   InningState{Runs: 154, Wickets: 4, LegalBalls: 110},
			want: ChaseMetrics{
				Target:         151,
				BallsLeft:      10,
				WicketsLeft:    6,
				CurrentRunRate: 8.4,
			},
		},
		{
			name: "no balls left leaves required rate at zero",
			st:   InningState{Runs: 140, Wickets: 5, LegalBalls: 120},
			want: ChaseMetrics{
				Target:         151,
				Needed:         11,
				WicketsLeft:    5,
				CurrentRunRate: 7,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Chase(rules, tt.st); got != tt.want {
				t.Errorf("Chase() = %+v, want %+v", got, tt.want)
			}
		})
	}
}
