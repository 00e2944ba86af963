package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"chain-arena/internal/constants"
	"chain-arena/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

// RankingStore persists seasons, player records, battle history and
// leaderboard snapshots. With no database configured every read returns
// empty and every write is a no-op: ranking is best-effort and must never
// break the battle response path.
type RankingStore struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewRankingStore(db *sql.DB, logger zerolog.Logger) *RankingStore {
	return &RankingStore{db: db, logger: logger}
}

func (s *RankingStore) unconfigured() bool {
	return s == nil || s.db == nil
}

// CurrentSeason resolves the current-season pointer. Returns nil with no
// error when no season exists yet.
func (s *RankingStore) CurrentSeason(ctx context.Context) (*domain.Season, error) {
	if s.unconfigured() {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT se.id, se.number, se.name, se.started_at, se.ends_at, se.is_active
		 FROM current_season cs JOIN seasons se ON se.id = cs.season_id
		 WHERE cs.slot = 0`)
	return scanSeason(row)
}

// GetSeason loads a season by id; nil when unknown.
func (s *RankingStore) GetSeason(ctx context.Context, id string) (*domain.Season, error) {
	if s.unconfigured() {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT id, number, name, started_at, ends_at, is_active FROM seasons WHERE id = ?`, id)
	return scanSeason(row)
}

// SetCurrentSeason persists the season and points the current-season slot at
// it. Concurrent rollovers race last-writer-wins on the pointer; rollover is
// idempotent in effect so the race is tolerated.
func (s *RankingStore) SetCurrentSeason(ctx context.Context, season domain.Season) error {
	if s.unconfigured() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := upsertSeason(ctx, tx, season); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO current_season (slot, season_id) VALUES (0, ?)
		 ON CONFLICT(slot) DO UPDATE SET season_id = excluded.season_id`,
		season.ID); err != nil {
		return fmt.Errorf("failed to set current season pointer: %w", err)
	}
	return tx.Commit()
}

// UpdateSeason rewrites a season row, used when a season is ended.
func (s *RankingStore) UpdateSeason(ctx context.Context, season domain.Season) error {
	if s.unconfigured() {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()
	if err := upsertSeason(ctx, tx, season); err != nil {
		return err
	}
	return tx.Commit()
}

func upsertSeason(ctx context.Context, tx *sql.Tx, season domain.Season) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO seasons (id, number, name, started_at, ends_at, is_active)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   number = excluded.number, name = excluded.name,
		   started_at = excluded.started_at, ends_at = excluded.ends_at,
		   is_active = excluded.is_active`,
		season.ID, season.Number, season.Name, season.StartedAt, season.EndsAt, season.IsActive)
	if err != nil {
		return fmt.Errorf("failed to upsert season %s: %w", season.ID, err)
	}
	return nil
}

// ApplyBattleOutcome upserts one fighter's season aggregate: first battle in
// a season creates the record, later battles increment wins/losses and
// overwrite power/level/ens with the latest sheet.
func (s *RankingStore) ApplyBattleOutcome(ctx context.Context, seasonID string, p domain.PlayerRecord, won bool) error {
	if s.unconfigured() {
		return nil
	}
	wins, losses := 0, 1
	if won {
		wins, losses = 1, 0
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO player_records
		   (season_id, address, ens_name, class_id, power, level, wins, losses,
		    legendary_count, epic_count, rare_count, common_count, last_seen_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(season_id, address) DO UPDATE SET
		   ens_name = excluded.ens_name,
		   class_id = excluded.class_id,
		   power = excluded.power,
		   level = excluded.level,
		   wins = player_records.wins + excluded.wins,
		   losses = player_records.losses + excluded.losses,
		   legendary_count = excluded.legendary_count,
		   epic_count = excluded.epic_count,
		   rare_count = excluded.rare_count,
		   common_count = excluded.common_count,
		   last_seen_at = excluded.last_seen_at`,
		seasonID, p.Address, p.ENSName, string(p.ClassID), p.Power, p.Level, wins, losses,
		p.AchievementCounts.Legendary, p.AchievementCounts.Epic,
		p.AchievementCounts.Rare, p.AchievementCounts.Common, p.LastSeenAt)
	if err != nil {
		return fmt.Errorf("failed to apply battle outcome for %s: %w", p.Address, err)
	}
	return nil
}

// ListPlayerRecords scans a season's full player set for aggregation.
func (s *RankingStore) ListPlayerRecords(ctx context.Context, seasonID string) ([]domain.PlayerRecord, error) {
	if s.unconfigured() {
		return nil, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT address, ens_name, class_id, power, level, wins, losses,
		        legendary_count, epic_count, rare_count, common_count, last_seen_at
		 FROM player_records WHERE season_id = ?`, seasonID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.PlayerRecord
	for rows.Next() {
		var r domain.PlayerRecord
		var classID string
		if err := rows.Scan(&r.Address, &r.ENSName, &classID, &r.Power, &r.Level,
			&r.Wins, &r.Losses,
			&r.AchievementCounts.Legendary, &r.AchievementCounts.Epic,
			&r.AchievementCounts.Rare, &r.AchievementCounts.Common,
			&r.LastSeenAt); err != nil {
			return nil, err
		}
		r.ClassID = domain.ClassID(classID)
		records = append(records, r)
	}
	return records, rows.Err()
}

// AppendBattleRecord inserts one battle row and trims the fighter's history
// to the most recent entries — a capped list, not a time window.
func (s *RankingStore) AppendBattleRecord(ctx context.Context, rec domain.BattleRecord) error {
	if s.unconfigured() {
		return nil
	}
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO battle_records
		   (id, season_id, address, opponent_address, won, power, opponent_power, nonce, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, rec.SeasonID, rec.Address, rec.OpponentAddress, rec.Won,
		rec.Power, rec.OpponentPower, rec.Nonce, rec.RecordedAt); err != nil {
		return fmt.Errorf("failed to insert battle record: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM battle_records
		 WHERE season_id = ? AND address = ? AND id NOT IN (
		   SELECT id FROM battle_records
		   WHERE season_id = ? AND address = ?
		   ORDER BY recorded_at DESC, id DESC LIMIT ?)`,
		rec.SeasonID, rec.Address, rec.SeasonID, rec.Address, constants.BattleHistoryCap); err != nil {
		return fmt.Errorf("failed to trim battle history: %w", err)
	}

	return tx.Commit()
}

// BattleHistory returns the most recent battles for one fighter.
func (s *RankingStore) BattleHistory(ctx context.Context, seasonID, address string, limit int) ([]domain.BattleRecord, error) {
	if s.unconfigured() {
		return nil, nil
	}
	if limit <= 0 || limit > constants.BattleHistoryCap {
		limit = constants.BattleHistoryCap
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT season_id, address, opponent_address, won, power, opponent_power, nonce, recorded_at
		 FROM battle_records
		 WHERE season_id = ? AND address = ?
		 ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		seasonID, address, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []domain.BattleRecord
	for rows.Next() {
		var r domain.BattleRecord
		if err := rows.Scan(&r.SeasonID, &r.Address, &r.OpponentAddress, &r.Won,
			&r.Power, &r.OpponentPower, &r.Nonce, &r.RecordedAt); err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// SaveSnapshot overwrites the snapshot slot for (season, type).
func (s *RankingStore) SaveSnapshot(ctx context.Context, snap domain.LeaderboardSnapshot) error {
	if s.unconfigured() {
		return nil
	}
	entries, err := json.Marshal(snap.Entries)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot entries: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leaderboard_snapshots (season_id, type, updated_at, total_players, entries)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(season_id, type) DO UPDATE SET
		   updated_at = excluded.updated_at,
		   total_players = excluded.total_players,
		   entries = excluded.entries`,
		snap.SeasonID, string(snap.Type), snap.UpdatedAt, snap.TotalPlayers, entries)
	if err != nil {
		return fmt.Errorf("failed to save snapshot %s/%s: %w", snap.SeasonID, snap.Type, err)
	}
	return nil
}

// GetSnapshot loads the snapshot for (season, type); nil when none exists.
func (s *RankingStore) GetSnapshot(ctx context.Context, seasonID string, t domain.LeaderboardType) (*domain.LeaderboardSnapshot, error) {
	if s.unconfigured() {
		return nil, nil
	}
	var snap domain.LeaderboardSnapshot
	var entries []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT season_id, type, updated_at, total_players, entries
		 FROM leaderboard_snapshots WHERE season_id = ? AND type = ?`,
		seasonID, string(t)).
		Scan(&snap.SeasonID, &snap.Type, &snap.UpdatedAt, &snap.TotalPlayers, &entries)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(entries, &snap.Entries); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot entries: %w", err)
	}
	return &snap, nil
}

func scanSeason(row *sql.Row) (*domain.Season, error) {
	var s domain.Season
	err := row.Scan(&s.ID, &s.Number, &s.Name, &s.StartedAt, &s.EndsAt, &s.IsActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}
