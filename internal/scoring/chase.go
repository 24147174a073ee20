package scoring

// ChaseMetrics are the target/required-rate figures for the second or later
// innings of a match. Read-only over aggregate state.
type ChaseMetrics struct {
	Target          int     `json:"target"`
	Needed          int     `json:"needed"`
	BallsLeft       int     `json:"balls_left"`
	WicketsLeft     int     `json:"wickets_left"`
	CurrentRunRate  float64 `json:"current_run_rate"`
	RequiredRunRate float64 `json:"required_run_rate"`
}

// Chase derives chase metrics from the innings aggregate. rules.Target must
// already be set to one more than the best earlier innings total.
func Chase(rules MatchRules, st InningState) ChaseMetrics {
	m := ChaseMetrics{Target: rules.Target}

	m.Needed = rules.Target - st.Runs
	if m.Needed < 0 {
		m.Needed = 0
	}
	m.BallsLeft = rules.MaxLegalBalls() - st.LegalBalls
	if m.BallsLeft < 0 {
		m.BallsLeft = 0
	}
	m.WicketsLeft = maxWickets - st.Wickets
	if m.WicketsLeft < 0 {
		m.WicketsLeft = 0
	}
	if st.LegalBalls > 0 {
		m.CurrentRunRate = round2(float64(st.Runs) * float64(rules.BallsPerOver) / float64(st.LegalBalls))
	}
	if m.BallsLeft > 0 {
		m.RequiredRunRate = round2(float64(m.Needed) * float64(rules.BallsPerOver) / float64(m.BallsLeft))
	}
	return m
}
