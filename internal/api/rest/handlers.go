package rest

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/fortuna/crease/internal/apperr"
	"github.com/fortuna/crease/internal/scoring"
	"github.com/fortuna/crease/internal/service"
	"github.com/fortuna/crease/internal/store"
)

// Handler contains dependencies for HTTP handlers.
type Handler struct {
	scoring *service.ScoringService
	logger  zerolog.Logger
}

// NewHandler creates a new handler.
func NewHandler(scoring *service.ScoringService, logger zerolog.Logger) *Handler {
	return &Handler{scoring: scoring, logger: logger}
}

// HealthCheck handles health check requests.
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "crease",
	})
}

type startInningRequest struct {
	InningNumber  int    `json:"inning_number"`
	BattingTeamID string `json:"batting_team_id"`
	BowlingTeamID string `json:"bowling_team_id"`
	StrikerID     string `json:"striker_id"`
	NonStrikerID  string `json:"non_striker_id"`
	BowlerID      string `json:"bowler_id"`
}

// StartInning opens scoring for an innings of a match.
func (h *Handler) StartInning(w http.ResponseWriter, r *http.Request) {
	matchID := mux.Vars(r)["matchID"]

	var req startInningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := h.scoring.StartInning(r.Context(), service.StartInningInput{
		MatchID:       matchID,
		InningNumber:  req.InningNumber,
		BattingTeamID: req.BattingTeamID,
		BowlingTeamID: req.BowlingTeamID,
		StrikerID:     req.StrikerID,
		NonStrikerID:  req.NonStrikerID,
		BowlerID:      req.BowlerID,
		ActingUserID:  actingUser(r),
	})
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, in)
}

type recordBallRequest struct {
	Runs               int             `json:"runs"`
	BallType           string          `json:"ball_type"`
	Wicket             *wicketRequest  `json:"wicket,omitempty"`
	ManualStrikeChange bool            `json:"manual_strike_change"`
	Shot               json.RawMessage `json:"shot,omitempty"`
	DeliveryToken      string          `json:"delivery_token,omitempty"`
}

type wicketRequest struct {
	Kind              string `json:"kind"`
	DismissedPlayerID string `json:"dismissed_player_id"`
}

// RecordBall ingests one delivery for an innings.
func (h *Handler) RecordBall(w http.ResponseWriter, r *http.Request) {
	inningID := mux.Vars(r)["inningID"]

	var req recordBallRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ballType, err := store.ParseBallType(req.BallType)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid ball type", err)
		return
	}

	input := service.DeliveryInput{
		Runs:               req.Runs,
		BallType:           ballType,
		ManualStrikeChange: req.ManualStrikeChange,
		ShotMeta:           req.Shot,
		DeliveryToken:      req.DeliveryToken,
		ActingUserID:       actingUser(r),
	}
	if req.Wicket != nil {
		kind, err := store.ParseDismissalKind(req.Wicket.Kind)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid dismissal kind", err)
			return
		}
		input.Wicket = &scoring.Wicket{
			Kind:              kind,
			DismissedPlayerID: req.Wicket.DismissedPlayerID,
		}
	}

	result, err := h.scoring.RecordBall(r.Context(), inningID, input)
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, result)
}

type selectPlayerRequest struct {
	PlayerID string `json:"player_id"`
}

// SelectBatsman fills a batting slot cleared by a wicket.
func (h *Handler) SelectBatsman(w http.ResponseWriter, r *http.Request) {
	inningID := mux.Vars(r)["inningID"]

	var req selectPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := h.scoring.SelectBatsman(r.Context(), inningID, req.PlayerID, actingUser(r))
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, in)
}

// SelectBowler assigns the bowler for the next over.
func (h *Handler) SelectBowler(w http.ResponseWriter, r *http.Request) {
	inningID := mux.Vars(r)["inningID"]

	var req selectPlayerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	in, err := h.scoring.SelectBowler(r.Context(), inningID, req.PlayerID, actingUser(r))
	if err != nil {
		respondAppError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, in)
}

// GetInningState returns the live innings snapshot.
func (h *Handler) GetInningState(w http.ResponseWriter, r *http.Request) {
	snap, err := h.scoring.GetInningState(r.Context(), mux.Vars(r)["inningID"])
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, snap)
}

// GetScorecard returns the innings batting/bowling cards.
func (h *Handler) GetScorecard(w http.ResponseWriter, r *http.Request) {
	card, err := h.scoring.GetScorecard(r.Context(), mux.Vars(r)["inningID"])
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, card)
}

// GetChase returns chase metrics for a second-or-later innings.
func (h *Handler) GetChase(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.scoring.GetChase(r.Context(), mux.Vars(r)["inningID"])
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, metrics)
}

// ListBalls returns the innings ball log.
func (h *Handler) ListBalls(w http.ResponseWriter, r *http.Request) {
	balls, err := h.scoring.ListBalls(r.Context(), mux.Vars(r)["inningID"])
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"balls": balls,
		"count": len(balls),
	})
}

// RebuildInning replays the ball log and reports consistency with the
// stored aggregate.
func (h *Handler) RebuildInning(w http.ResponseWriter, r *http.Request) {
	res, err := h.scoring.RebuildInning(r.Context(), mux.Vars(r)["inningID"])
	if err != nil {
		respondAppError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

// actingUser identifies the scorer. Token validation belongs to the auth
// collaborator upstream; this service still enforces the per-match
// permission check.
func actingUser(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError writes an error response.
func respondError(w http.ResponseWriter, status int, message string, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]interface{}{
		"error":  message,
		"status": status,
	}
	if err != nil {
		response["details"] = err.Error()
	}

	json.NewEncoder(w).Encode(response)
}

// respondAppError maps the service error taxonomy onto HTTP status codes.
// Internal errors stay generic on the wire.
func respondAppError(w http.ResponseWriter, err error) {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		respondError(w, http.StatusBadRequest, err.Error(), nil)
	case apperr.Conflict:
		respondError(w, http.StatusConflict, err.Error(), nil)
	case apperr.Permission:
		respondError(w, http.StatusForbidden, err.Error(), nil)
	case apperr.NotFound:
		respondError(w, http.StatusNotFound, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "Internal server error", nil)
	}
}
