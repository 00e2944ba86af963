package server

import (
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"chain-arena/internal/api"
	"chain-arena/internal/battle"
	"chain-arena/internal/config"
	"chain-arena/internal/constants"
	"chain-arena/internal/domain"
	"chain-arena/internal/middleware"
	"chain-arena/internal/service"

	"github.com/rs/zerolog"
)

var seasonPattern = regexp.MustCompile(`^s\d{1,4}$`)

// ArenaServer exposes the battle and leaderboard JSON API.
type ArenaServer struct {
	battles      *service.BattleService
	rankings     *service.RankingService
	adminSecret  string
	imageBaseURL string
	logger       zerolog.Logger
}

func NewArenaServer(battles *service.BattleService, rankings *service.RankingService, cfg *config.Config, logger zerolog.Logger) *ArenaServer {
	return &ArenaServer{
		battles:      battles,
		rankings:     rankings,
		adminSecret:  cfg.AdminSecret,
		imageBaseURL: cfg.ImageBaseURL,
		logger:       logger,
	}
}

// Register mounts all routes on the mux.
func (s *ArenaServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/battle", s.handleBattle)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("POST /api/leaderboard/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/season", s.handleSeason)
	mux.HandleFunc("GET /api/history/{address}", s.handleHistory)
	mux.HandleFunc("GET /api/health", s.handleHealth)
}

type battleRequest struct {
	Address1 string `json:"address1"`
	Address2 string `json:"address2"`
	Nonce    string `json:"nonce,omitempty"`
}

type battleResponse struct {
	Result         *domain.BattleResult `json:"result"`
	BattleImageURL string               `json:"battleImageUrl,omitempty"`
	OGImageURL     string               `json:"ogImageUrl,omitempty"`
	Cached         bool                 `json:"cached"`
}

func (s *ArenaServer) handleBattle(w http.ResponseWriter, r *http.Request) {
	var req battleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	out, err := s.battles.Battle(r.Context(), req.Address1, req.Address2, req.Nonce, middleware.ClientIP(r))
	if err != nil {
		s.writeBattleError(w, r, out, err)
		return
	}

	resp := battleResponse{Result: out.Result, Cached: out.Cached}
	if s.imageBaseURL != "" {
		result := out.Result
		resp.BattleImageURL = s.imageBaseURL + "/battle/" + result.Fighters[0].Address + "/" + result.Fighters[1].Address + "?nonce=" + result.Nonce
		resp.OGImageURL = s.imageBaseURL + "/og/battle/" + result.Fighters[0].Address + "/" + result.Fighters[1].Address + "?nonce=" + result.Nonce
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *ArenaServer) writeBattleError(w http.ResponseWriter, r *http.Request, out *service.BattleOutcome, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, "invalid_address", "address must be a 0x-hex wallet address or an ENS name")
	case errors.Is(err, service.ErrInvalidNonce):
		writeError(w, http.StatusBadRequest, "invalid_nonce", "nonce may only contain letters, digits, - and _")
	case errors.Is(err, service.ErrRateLimited):
		if out != nil && out.ResetAt > 0 {
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(out.ResetAt, 10))
		}
		writeError(w, http.StatusTooManyRequests, "rate_limited", "too many battles, slow down")
	case errors.Is(err, api.ErrEmptyWallet):
		writeError(w, http.StatusUnprocessableEntity, "empty_wallet", "this wallet has no on-chain activity to build a character from")
	case errors.Is(err, battle.ErrInvalidFighter):
		writeError(w, http.StatusUnprocessableEntity, "invalid_fighter", "character sheet has malformed stats")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("battle request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "battle could not be completed")
	}
}

func (s *ArenaServer) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q, ok := parseLeaderboardQuery(w, r)
	if !ok {
		return
	}

	resp, err := s.rankings.Leaderboard(r.Context(), q)
	if err != nil {
		if errors.Is(err, service.ErrNoSeason) {
			writeError(w, http.StatusNotFound, "no_season", "unknown season")
			return
		}
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("leaderboard request failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "leaderboard unavailable")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func parseLeaderboardQuery(w http.ResponseWriter, r *http.Request) (service.LeaderboardQuery, bool) {
	q := service.LeaderboardQuery{
		Type:  domain.LeaderboardPower,
		Page:  1,
		Limit: constants.DefaultPageLimit,
	}

	switch t := r.URL.Query().Get("type"); t {
	case "", string(domain.LeaderboardPower):
	case string(domain.LeaderboardBattle):
		q.Type = domain.LeaderboardBattle
	case string(domain.LeaderboardExplorer):
		q.Type = domain.LeaderboardExplorer
	default:
		writeError(w, http.StatusBadRequest, "invalid_type", "type must be power, battle or explorer")
		return q, false
	}

	if season := r.URL.Query().Get("season"); season != "" {
		if !seasonPattern.MatchString(season) {
			writeError(w, http.StatusBadRequest, "invalid_season", "season must match s<number>")
			return q, false
		}
		q.SeasonID = season
	}

	q.Address = strings.TrimSpace(r.URL.Query().Get("address"))

	if raw := r.URL.Query().Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			writeError(w, http.StatusBadRequest, "invalid_page", "page must be a positive integer")
			return q, false
		}
		q.Page = page
	}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > constants.MaxPageLimit {
			writeError(w, http.StatusBadRequest, "invalid_limit", "limit must be between 1 and 100")
			return q, false
		}
		q.Limit = limit
	}
	return q, true
}

func (s *ArenaServer) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.authorized(r) {
		writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid credentials")
		return
	}
	if err := s.rankings.Refresh(r.Context()); err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("leaderboard refresh failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "refresh failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// authorized compares the bearer credential in constant time.
func (s *ArenaServer) authorized(r *http.Request) bool {
	auth := r.Header.Get("Authorization")
	token, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok || s.adminSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(s.adminSecret)) == 1
}

func (s *ArenaServer) handleSeason(w http.ResponseWriter, r *http.Request) {
	current, remaining, err := s.rankings.SeasonStatus(r.Context())
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("season status failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "season unavailable")
		return
	}
	if current == nil {
		writeError(w, http.StatusNotFound, "no_season", "no season has started yet")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"season":    current,
		"remaining": remaining,
	})
}

func (s *ArenaServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	address := r.PathValue("address")
	records, err := s.rankings.BattleHistory(r.Context(), address, constants.DefaultPageLimit)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("battle history failed")
		writeError(w, http.StatusInternalServerError, "internal_error", "history unavailable")
		return
	}
	if records == nil {
		records = []domain.BattleRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"battles": records})
}

func (s *ArenaServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"caches": s.battles.CacheReport(),
	})
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]errorBody{"error": {Code: code, Message: message}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
