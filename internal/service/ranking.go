package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"chain-arena/internal/constants"
	"chain-arena/internal/domain"
	"chain-arena/internal/ranking"
	"chain-arena/internal/repository"
	"chain-arena/internal/season"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// ErrNoSeason means the store is configured but holds no season yet and the
// request named one explicitly.
var ErrNoSeason = errors.New("no ranking season exists")

// RankingService records battle outcomes and serves leaderboard snapshots.
// Every store interaction is best-effort: failures degrade to empty results
// instead of propagating into the battle response path.
type RankingService struct {
	store  *repository.RankingStore
	logger zerolog.Logger
	now    func() time.Time
}

func NewRankingService(store *repository.RankingStore, logger zerolog.Logger) *RankingService {
	return &RankingService{store: store, logger: logger, now: time.Now}
}

// RecordBattle updates both fighters' season aggregates and battle history.
// The two fighters' writes run in parallel and fail independently; there is
// no cross-record transaction.
func (s *RankingService) RecordBattle(ctx context.Context, result *domain.BattleResult) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	current := s.ensureSeason(ctx)
	if current == nil {
		return
	}

	now := s.now().UnixMilli()
	g := new(errgroup.Group)
	for i := range result.Fighters {
		g.Go(func() error {
			f := result.Fighters[i]
			opp := result.Fighters[1-i]
			won := result.Winner == i
			addr := strings.ToLower(f.Address)

			rec := domain.PlayerRecord{
				Address:           addr,
				ENSName:           f.ENSName,
				ClassID:           f.ClassID,
				Power:             f.Stats.Power,
				Level:             f.Stats.Level,
				AchievementCounts: domain.CountTiers(f.Achievements),
				LastSeenAt:        now,
			}
			if err := s.store.ApplyBattleOutcome(ctx, current.ID, rec, won); err != nil {
				s.logger.Warn().Err(err).Str("address", addr).Msg("failed to update player record")
			}

			battleRec := domain.BattleRecord{
				SeasonID:        current.ID,
				Address:         addr,
				OpponentAddress: strings.ToLower(opp.Address),
				Won:             won,
				Power:           f.Stats.Power,
				OpponentPower:   opp.Stats.Power,
				Nonce:           result.Nonce,
				RecordedAt:      now,
			}
			if err := s.store.AppendBattleRecord(ctx, battleRec); err != nil {
				s.logger.Warn().Err(err).Str("address", addr).Msg("failed to append battle record")
			}
			return nil
		})
	}
	g.Wait()
}

// LeaderboardQuery selects one page of one ranking.
type LeaderboardQuery struct {
	Type     domain.LeaderboardType
	SeasonID string // empty = current season
	Address  string // optional rank lookup
	Page     int
	Limit    int
}

type LeaderboardResponse struct {
	Season       *domain.Season            `json:"season,omitempty"`
	Type         domain.LeaderboardType    `json:"type"`
	Entries      []domain.LeaderboardEntry `json:"entries"`
	Page         int                       `json:"page"`
	Limit        int                       `json:"limit"`
	TotalPlayers int                       `json:"totalPlayers"`
	UpdatedAt    int64                     `json:"updatedAt,omitempty"`
	PlayerRank   *int                      `json:"playerRank,omitempty"`
}

// Leaderboard serves the requested snapshot page. Missing data degrades to
// an empty board; only an explicitly named unknown season is an error.
func (s *RankingService) Leaderboard(ctx context.Context, q LeaderboardQuery) (*LeaderboardResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	resp := &LeaderboardResponse{
		Type:    q.Type,
		Entries: []domain.LeaderboardEntry{},
		Page:    q.Page,
		Limit:   q.Limit,
	}

	var target *domain.Season
	if q.SeasonID == "" {
		cur, err := s.store.CurrentSeason(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to resolve current season")
			return resp, nil
		}
		target = cur
	} else {
		se, err := s.store.GetSeason(ctx, q.SeasonID)
		if err != nil {
			s.logger.Warn().Err(err).Str("season", q.SeasonID).Msg("failed to load season")
			return resp, nil
		}
		if se == nil {
			return nil, ErrNoSeason
		}
		target = se
	}
	if target == nil {
		return resp, nil
	}
	resp.Season = target

	snap, err := s.store.GetSnapshot(ctx, target.ID, q.Type)
	if err != nil {
		s.logger.Warn().Err(err).Str("season", target.ID).Msg("failed to load snapshot")
		return resp, nil
	}
	if snap == nil {
		return resp, nil
	}

	resp.TotalPlayers = snap.TotalPlayers
	resp.UpdatedAt = snap.UpdatedAt

	if q.Address != "" {
		if rank, ok := ranking.FindPlayerRank(snap.Entries, q.Address); ok {
			resp.PlayerRank = &rank
		}
	}

	start := (q.Page - 1) * q.Limit
	if start < len(snap.Entries) {
		end := start + q.Limit
		if end > len(snap.Entries) {
			end = len(snap.Entries)
		}
		resp.Entries = snap.Entries[start:end]
	}
	return resp, nil
}

// Refresh performs the scheduled season-expiry check and recomputes all three
// leaderboard snapshots from the full player-record set.
func (s *RankingService) Refresh(ctx context.Context) error {
	current := s.ensureSeason(ctx)
	if current == nil {
		return nil
	}

	records, err := s.store.ListPlayerRecords(ctx, current.ID)
	if err != nil {
		return err
	}

	updatedAt := s.now().UnixMilli()
	for _, t := range []domain.LeaderboardType{domain.LeaderboardPower, domain.LeaderboardBattle, domain.LeaderboardExplorer} {
		entries := ranking.Rank(t, records)
		snap := domain.LeaderboardSnapshot{
			SeasonID:     current.ID,
			Type:         t,
			UpdatedAt:    updatedAt,
			Entries:      entries,
			TotalPlayers: len(entries),
		}
		if err := s.store.SaveSnapshot(ctx, snap); err != nil {
			s.logger.Error().Err(err).Str("type", string(t)).Msg("failed to save leaderboard snapshot")
			return err
		}
	}

	s.logger.Info().
		Str("season", current.ID).
		Int("players", len(records)).
		Msg("leaderboard snapshots refreshed")
	return nil
}

// SeasonStatus reports the current season with its remaining time.
func (s *RankingService) SeasonStatus(ctx context.Context) (*domain.Season, *season.TimeRemaining, error) {
	cur, err := s.store.CurrentSeason(ctx)
	if err != nil || cur == nil {
		return nil, nil, err
	}
	remaining := season.Remaining(*cur, s.now())
	return cur, &remaining, nil
}

// BattleHistory returns a fighter's recent battles in the current season.
func (s *RankingService) BattleHistory(ctx context.Context, address string, limit int) ([]domain.BattleRecord, error) {
	cur, err := s.store.CurrentSeason(ctx)
	if err != nil || cur == nil {
		return nil, err
	}
	return s.store.BattleHistory(ctx, cur.ID, strings.ToLower(address), limit)
}

// ensureSeason resolves the current season, creating the genesis season or
// rolling an expired one over. Rollover is read-check-act with no distributed
// lock; overlapping triggers race last-writer-wins, which is harmless since
// both compute the same new-season shape.
func (s *RankingService) ensureSeason(ctx context.Context) *domain.Season {
	cur, err := s.store.CurrentSeason(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to read current season")
		return nil
	}

	now := s.now()
	if cur == nil {
		genesis := season.New(nil, now)
		if err := s.store.SetCurrentSeason(ctx, genesis); err != nil {
			s.logger.Warn().Err(err).Msg("failed to create genesis season")
			return nil
		}
		s.logger.Info().Str("season", genesis.ID).Msg("created genesis season")
		return &genesis
	}

	if !season.IsExpired(*cur, now) {
		return cur
	}

	ended := season.End(*cur)
	if err := s.store.UpdateSeason(ctx, ended); err != nil {
		s.logger.Warn().Err(err).Str("season", cur.ID).Msg("failed to end expired season")
	}
	next := season.New(cur, now)
	if err := s.store.SetCurrentSeason(ctx, next); err != nil {
		s.logger.Warn().Err(err).Msg("failed to roll over season")
		return nil
	}
	s.logger.Info().
		Str("ended", cur.ID).
		Str("started", next.ID).
		Msg("season rolled over")
	return &next
}
