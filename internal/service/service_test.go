package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/lib/pq"
	"github.com/rs/zerolog"

	"github.com/fortuna/crease/internal/store"
	"github.com/fortuna/crease/internal/store/repository"
)

// In-memory fakes for the store interfaces. They mimic the repository
// contract closely enough for the orchestration logic: not-found sentinels,
// unique-violation errors for duplicate keys, and value copies on reads so
// the service never mutates stored rows in place.

type fakeMatches struct {
	matches map[string]*store.Match
	scorers map[string]bool
}

func (f *fakeMatches) GetMatch(_ context.Context, matchID string) (*store.Match, error) {
	m, ok := f.matches[matchID]
	if !ok {
		return nil, fmt.Errorf("match %s: %w", matchID, repository.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMatches) CanScore(_ context.Context, _, userID string) (bool, error) {
	return f.scorers[userID], nil
}

type fakeRosters struct {
	members map[string]map[string]bool
}

func (f *fakeRosters) IsMember(_ context.Context, teamID, playerID string) (bool, error) {
	return f.members[teamID][playerID], nil
}

func (f *fakeRosters) RosterSize(_ context.Context, teamID string) (int, error) {
	return len(f.members[teamID]), nil
}

func uniqueViolation() error {
	return &pq.Error{Code: "23505"}
}

type fakeInnings struct {
	innings map[string]*store.Inning
	balls   map[string][]store.Ball
	tokens  map[string]bool
	cards   *fakeCards
}

func newFakeInnings(cards *fakeCards) *fakeInnings {
	return &fakeInnings{
		innings: make(map[string]*store.Inning),
		balls:   make(map[string][]store.Ball),
		tokens:  make(map[string]bool),
		cards:   cards,
	}
}

func (f *fakeInnings) CreateInning(_ context.Context, in *store.Inning) error {
	for _, existing := range f.innings {
		if existing.MatchID == in.MatchID && existing.InningNumber == in.InningNumber {
			return uniqueViolation()
		}
	}
	cp := *in
	f.innings[in.InningID] = &cp
	return nil
}

func (f *fakeInnings) GetInning(_ context.Context, inningID string) (*store.Inning, error) {
	in, ok := f.innings[inningID]
	if !ok {
		return nil, fmt.Errorf("inning %s: %w", inningID, repository.ErrNotFound)
	}
	cp := *in
	return &cp, nil
}

func (f *fakeInnings) UpdateInningPlayers(_ context.Context, in *store.Inning) error {
	stored, ok := f.innings[in.InningID]
	if !ok {
		return fmt.Errorf("inning %s: %w", in.InningID, repository.ErrNotFound)
	}
	stored.StrikerID = in.StrikerID
	stored.NonStrikerID = in.NonStrikerID
	stored.CurrentBowlerID = in.CurrentBowlerID
	stored.UpdatedAt = time.Now()
	return nil
}

func (f *fakeInnings) HighestEarlierTotal(_ context.Context, matchID string, beforeNumber int) (int, error) {
	best := 0
	for _, in := range f.innings {
		if in.MatchID == matchID && in.InningNumber < beforeNumber && in.Runs > best {
			best = in.Runs
		}
	}
	return best, nil
}

func (f *fakeInnings) ApplyDelivery(_ context.Context, in *store.Inning, ball *store.Ball, batting []*store.BattingEntry, bowling *store.BowlingEntry) error {
	if ball.DeliveryToken.Valid {
		key := in.InningID + "|" + ball.DeliveryToken.String
		if f.tokens[key] {
			return uniqueViolation()
		}
		f.tokens[key] = true
	}

	ball.Seq = len(f.balls[in.InningID]) + 1
	f.balls[in.InningID] = append(f.balls[in.InningID], *ball)

	cp := *in
	f.innings[in.InningID] = &cp

	for _, e := range batting {
		f.cards.putBatting(e)
	}
	f.cards.putBowling(bowling)
	return nil
}

func (f *fakeInnings) ListBalls(_ context.Context, inningID string) ([]store.Ball, error) {
	return append([]store.Ball(nil), f.balls[inningID]...), nil
}

func (f *fakeInnings) ExtrasBreakdown(_ context.Context, inningID string) (*store.Extras, error) {
	ex := &store.Extras{}
	for _, b := range f.balls[inningID] {
		switch b.BallType {
		case store.BallWide:
			ex.Wides += b.Runs + 1
		case store.BallNoBall:
			ex.NoBalls++
		case store.BallBye:
			ex.Byes += b.Runs
		case store.BallLegBye:
			ex.LegByes += b.Runs
		case store.BallPenalty:
			ex.Penalties += b.Runs + 1
		}
	}
	return ex, nil
}

type fakeCards struct {
	batting map[string]map[string]*store.BattingEntry
	bowling map[string]map[string]*store.BowlingEntry
}

func newFakeCards() *fakeCards {
	return &fakeCards{
		batting: make(map[string]map[string]*store.BattingEntry),
		bowling: make(map[string]map[string]*store.BowlingEntry),
	}
}

func (f *fakeCards) putBatting(e *store.BattingEntry) {
	if f.batting[e.InningID] == nil {
		f.batting[e.InningID] = make(map[string]*store.BattingEntry)
	}
	cp := *e
	f.batting[e.InningID][e.PlayerID] = &cp
}

func (f *fakeCards) putBowling(e *store.BowlingEntry) {
	if f.bowling[e.InningID] == nil {
		f.bowling[e.InningID] = make(map[string]*store.BowlingEntry)
	}
	cp := *e
	f.bowling[e.InningID][e.PlayerID] = &cp
}

func (f *fakeCards) GetBattingEntry(_ context.Context, inningID, playerID string) (*store.BattingEntry, error) {
	e, ok := f.batting[inningID][playerID]
	if !ok {
		return nil, fmt.Errorf("batting entry: %w", repository.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (f *fakeCards) GetBowlingEntry(_ context.Context, inningID, playerID string) (*store.BowlingEntry, error) {
	e, ok := f.bowling[inningID][playerID]
	if !ok {
		return nil, fmt.Errorf("bowling entry: %w", repository.ErrNotFound)
	}
	cp := *e
	return &cp, nil
}

func (f *fakeCards) MaxBattingOrder(_ context.Context, inningID string) (int, error) {
	max := 0
	for _, e := range f.batting[inningID] {
		if e.BattingOrder > max {
			max = e.BattingOrder
		}
	}
	return max, nil
}

func (f *fakeCards) BattingEntries(_ context.Context, inningID string) ([]store.BattingEntry, error) {
	var out []store.BattingEntry
	for _, e := range f.batting[inningID] {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BattingOrder < out[j].BattingOrder })
	return out, nil
}

func (f *fakeCards) BowlingEntries(_ context.Context, inningID string) ([]store.BowlingEntry, error) {
	var out []store.BowlingEntry
	for _, e := range f.bowling[inningID] {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out, nil
}

type fakeCache struct {
	data map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	v, ok := f.data[key]
	if !ok {
		return "", fmt.Errorf("cache miss")
	}
	return v, nil
}

type fakePublisher struct {
	events []interface{}
}

func (f *fakePublisher) PublishBallEvent(_ context.Context, event interface{}) error {
	f.events = append(f.events, event)
	return nil
}

// fixture wires a scoring service over the fakes with one live match:
// batting side "falcons" (five players), bowling side "ravens", scorer user
// "uma".
type fixture struct {
	svc     *ScoringService
	matches *fakeMatches
	rosters *fakeRosters
	innings *fakeInnings
	cards   *fakeCards
	cache   *fakeCache
	pub     *fakePublisher
}

func newFixture() *fixture {
	matches := &fakeMatches{
		matches: map[string]*store.Match{
			"m1": {
				MatchID:      "m1",
				TournamentID: "t1",
				TeamAID:      "falcons",
				TeamBID:      "ravens",
				BallsPerOver: 6,
				OversLimit:   20,
				Status:       store.MatchLive,
				OrganizerID:  "org",
			},
		},
		scorers: map[string]bool{"uma": true},
	}
	rosters := &fakeRosters{
		members: map[string]map[string]bool{
			"falcons": {"anaya": true, "bela": true, "chitra": true, "divya": true, "esha": true},
			"ravens":  {"kiran": true, "meena": true, "nisha": true, "priya": true, "rhea": true},
		},
	}
	cards := newFakeCards()
	innings := newFakeInnings(cards)
	cache := newFakeCache()
	pub := &fakePublisher{}

	svc := NewScoringService(matches, rosters, innings, innings, cards, cache, pub, zerolog.Nop())
	return &fixture{
		svc:     svc,
		matches: matches,
		rosters: rosters,
		innings: innings,
		cards:   cards,
		cache:   cache,
		pub:     pub,
	}
}

// addInning seeds a started innings with openers anaya/bela and kiran
// bowling.
func (f *fixture) addInning(number int) *store.Inning {
	in := &store.Inning{
		InningID:        fmt.Sprintf("in%d", number),
		MatchID:         "m1",
		InningNumber:    number,
		BattingTeamID:   "falcons",
		BowlingTeamID:   "ravens",
		StrikerID:       nullable("anaya"),
		NonStrikerID:    nullable("bela"),
		CurrentBowlerID: nullable("kiran"),
		Status:          store.InningInProgress,
	}
	f.innings.innings[in.InningID] = in
	return in
}
