// Package service orchestrates the scoring engine over the store: permission
// gating, per-inning serialization, the atomic per-ball write unit, cache
// refresh and live event publishing.
package service

import (
	"context"
	"time"

	"github.com/fortuna/crease/internal/store"
)

// MatchProvider exposes per-match configuration and the acting-user
// permission check. Match lifecycle is an out-of-scope collaborator.
type MatchProvider interface {
	GetMatch(ctx context.Context, matchID string) (*store.Match, error)
	CanScore(ctx context.Context, matchID, userID string) (bool, error)
}

// RosterProvider resolves team membership for batter/bowler eligibility.
type RosterProvider interface {
	IsMember(ctx context.Context, teamID, playerID string) (bool, error)
	RosterSize(ctx context.Context, teamID string) (int, error)
}

// InningStore persists the innings aggregate. ApplyDelivery must commit the
// ball insert, the aggregate update and the scorecard upserts atomically.
type InningStore interface {
	CreateInning(ctx context.Context, in *store.Inning) error
	GetInning(ctx context.Context, inningID string) (*store.Inning, error)
	UpdateInningPlayers(ctx context.Context, in *store.Inning) error
	HighestEarlierTotal(ctx context.Context, matchID string, beforeNumber int) (int, error)
	ApplyDelivery(ctx context.Context, in *store.Inning, ball *store.Ball, batting []*store.BattingEntry, bowling *store.BowlingEntry) error
}

// BallStore reads the append-only ball log.
type BallStore interface {
	ListBalls(ctx context.Context, inningID string) ([]store.Ball, error)
	ExtrasBreakdown(ctx context.Context, inningID string) (*store.Extras, error)
}

// ScorecardStore reads per-player summary rows.
type ScorecardStore interface {
	GetBattingEntry(ctx context.Context, inningID, playerID string) (*store.BattingEntry, error)
	GetBowlingEntry(ctx context.Context, inningID, playerID string) (*store.BowlingEntry, error)
	MaxBattingOrder(ctx context.Context, inningID string) (int, error)
	BattingEntries(ctx context.Context, inningID string) ([]store.BattingEntry, error)
	BowlingEntries(ctx context.Context, inningID string) ([]store.BowlingEntry, error)
}

// LiveCache stores the live innings snapshot for cheap reads; failures are
// logged, never surfaced.
type LiveCache interface {
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
}

// BallPublisher pushes accepted deliveries to the live stream consumed by
// the WebSocket relay.
type BallPublisher interface {
	PublishBallEvent(ctx context.Context, event interface{}) error
}
