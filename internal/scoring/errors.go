package scoring

import "errors"

var (
	// ErrInningOver rejects deliveries against a completed innings; the
	// terminal state has no outgoing transitions.
	ErrInningOver = errors.New("inning has ended")

	// ErrSelectionPending rejects deliveries while a batter or bowler slot
	// is empty. No ball is recorded.
	ErrSelectionPending = errors.New("player selection pending")

	// ErrInvalidDelivery rejects malformed delivery input before any state
	// change.
	ErrInvalidDelivery = errors.New("invalid delivery")
)
