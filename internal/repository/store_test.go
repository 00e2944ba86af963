package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"chain-arena/internal/config"
	"chain-arena/internal/database"
	"chain-arena/internal/domain"

	"github.com/rs/zerolog"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	cfg := &config.Config{DBPath: filepath.Join(t.TempDir(), "test.db")}
	db, err := database.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("database.New err: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestKVStore_SetGetExpiry(t *testing.T) {
	db := openTestDB(t)
	kv := NewKVStore(db, zerolog.Nop())
	ctx := context.Background()

	base := time.Now()
	kv.now = func() time.Time { return base }

	if err := kv.SetWithTTL(ctx, "k", []byte("v"), time.Minute); err != nil {
		t.Fatalf("SetWithTTL err: %v", err)
	}
	got, ok, err := kv.Get(ctx, "k")
	if err != nil || !ok || string(got) != "v" {
		t.Fatalf("Get = (%q, %v, %v), want (v, true, nil)", got, ok, err)
	}

	kv.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, ok, err := kv.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expired entry Get = (_, %v, %v), want (false, nil)", ok, err)
	}
}

func TestKVStore_IncrWithTTL(t *testing.T) {
	db := openTestDB(t)
	kv := NewKVStore(db, zerolog.Nop())
	ctx := context.Background()

	base := time.Now()
	kv.now = func() time.Time { return base }

	for i := int64(1); i <= 3; i++ {
		count, _, err := kv.IncrWithTTL(ctx, "ratelimit:1.2.3.4", time.Minute)
		if err != nil {
			t.Fatalf("IncrWithTTL err: %v", err)
		}
		if count != i {
			t.Fatalf("count = %d, want %d", count, i)
		}
	}

	// past the window the counter restarts
	kv.now = func() time.Time { return base.Add(2 * time.Minute) }
	count, resetAt, err := kv.IncrWithTTL(ctx, "ratelimit:1.2.3.4", time.Minute)
	if err != nil {
		t.Fatalf("IncrWithTTL err: %v", err)
	}
	if count != 1 {
		t.Fatalf("count after window = %d, want 1", count)
	}
	if !resetAt.After(base.Add(2 * time.Minute)) {
		t.Fatalf("resetAt = %v, want after window restart", resetAt)
	}
}

func TestRankingStore_SeasonPointer(t *testing.T) {
	db := openTestDB(t)
	store := NewRankingStore(db, zerolog.Nop())
	ctx := context.Background()

	cur, err := store.CurrentSeason(ctx)
	if err != nil || cur != nil {
		t.Fatalf("empty store CurrentSeason = (%v, %v), want (nil, nil)", cur, err)
	}

	s1 := domain.Season{ID: "s1", Number: 1, Name: "Genesis Season", StartedAt: 1000, EndsAt: 2000, IsActive: true}
	if err := store.SetCurrentSeason(ctx, s1); err != nil {
		t.Fatalf("SetCurrentSeason err: %v", err)
	}
	cur, err = store.CurrentSeason(ctx)
	if err != nil || cur == nil || cur.ID != "s1" || !cur.IsActive {
		t.Fatalf("CurrentSeason = (%+v, %v)", cur, err)
	}

	// rollover: end s1, point at s2 (last writer wins on the pointer)
	if err := store.UpdateSeason(ctx, domain.Season{ID: "s1", Number: 1, Name: "Genesis Season", StartedAt: 1000, EndsAt: 2000, IsActive: false}); err != nil {
		t.Fatalf("UpdateSeason err: %v", err)
	}
	s2 := domain.Season{ID: "s2", Number: 2, Name: "Iron Season", StartedAt: 2000, EndsAt: 3000, IsActive: true}
	if err := store.SetCurrentSeason(ctx, s2); err != nil {
		t.Fatalf("SetCurrentSeason s2 err: %v", err)
	}
	cur, _ = store.CurrentSeason(ctx)
	if cur == nil || cur.ID != "s2" {
		t.Fatalf("CurrentSeason after rollover = %+v, want s2", cur)
	}
	old, err := store.GetSeason(ctx, "s1")
	if err != nil || old == nil || old.IsActive {
		t.Fatalf("GetSeason(s1) = (%+v, %v), want ended season", old, err)
	}
}

func TestRankingStore_ApplyBattleOutcome(t *testing.T) {
	db := openTestDB(t)
	store := NewRankingStore(db, zerolog.Nop())
	ctx := context.Background()

	rec := domain.PlayerRecord{
		Address: "0xabc", ClassID: domain.ClassWarrior,
		Power: 800, Level: 20, LastSeenAt: 1,
		AchievementCounts: domain.TierCounts{Rare: 1},
	}
	if err := store.ApplyBattleOutcome(ctx, "s1", rec, true); err != nil {
		t.Fatalf("ApplyBattleOutcome err: %v", err)
	}
	rec.Power = 900 // latest sheet overwrites power
	if err := store.ApplyBattleOutcome(ctx, "s1", rec, false); err != nil {
		t.Fatalf("ApplyBattleOutcome err: %v", err)
	}

	records, err := store.ListPlayerRecords(ctx, "s1")
	if err != nil {
		t.Fatalf("ListPlayerRecords err: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	got := records[0]
	if got.Wins != 1 || got.Losses != 1 {
		t.Errorf("wins/losses = %d/%d, want 1/1", got.Wins, got.Losses)
	}
	if got.Power != 900 {
		t.Errorf("power = %v, want 900 (overwritten with latest)", got.Power)
	}
	if got.AchievementCounts.Rare != 1 {
		t.Errorf("rare count = %d, want 1", got.AchievementCounts.Rare)
	}
}

func TestRankingStore_BattleHistoryCap(t *testing.T) {
	db := openTestDB(t)
	store := NewRankingStore(db, zerolog.Nop())
	ctx := context.Background()

	for i := 0; i < 205; i++ {
		rec := domain.BattleRecord{
			SeasonID: "s1", Address: "0xabc", OpponentAddress: "0xdef",
			Won: i%2 == 0, Power: 100, OpponentPower: 90,
			Nonce: "n", RecordedAt: int64(i),
		}
		if err := store.AppendBattleRecord(ctx, rec); err != nil {
			t.Fatalf("AppendBattleRecord %d err: %v", i, err)
		}
	}

	history, err := store.BattleHistory(ctx, "s1", "0xabc", 0)
	if err != nil {
		t.Fatalf("BattleHistory err: %v", err)
	}
	if len(history) != 200 {
		t.Fatalf("history length = %d, want 200 (oldest trimmed)", len(history))
	}
	if history[0].RecordedAt != 204 {
		t.Errorf("newest record recordedAt = %d, want 204", history[0].RecordedAt)
	}
	if history[len(history)-1].RecordedAt != 5 {
		t.Errorf("oldest kept record recordedAt = %d, want 5", history[len(history)-1].RecordedAt)
	}
}

func TestRankingStore_SnapshotRoundTrip(t *testing.T) {
	db := openTestDB(t)
	store := NewRankingStore(db, zerolog.Nop())
	ctx := context.Background()

	wins, losses, winRate, rating := 6, 2, 75, 139
	snap := domain.LeaderboardSnapshot{
		SeasonID: "s1", Type: domain.LeaderboardBattle, UpdatedAt: 42, TotalPlayers: 1,
		Entries: []domain.LeaderboardEntry{{
			Rank: 1, Address: "0xabc", ClassID: domain.ClassRogue, Power: 900,
			Wins: &wins, Losses: &losses, WinRate: &winRate, RatingScore: &rating,
		}},
	}
	if err := store.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot err: %v", err)
	}

	got, err := store.GetSnapshot(ctx, "s1", domain.LeaderboardBattle)
	if err != nil || got == nil {
		t.Fatalf("GetSnapshot = (%v, %v)", got, err)
	}
	if got.UpdatedAt != 42 || got.TotalPlayers != 1 || len(got.Entries) != 1 {
		t.Fatalf("snapshot round trip mismatch: %+v", got)
	}
	if got.Entries[0].RatingScore == nil || *got.Entries[0].RatingScore != 139 {
		t.Fatalf("ratingScore lost in round trip: %+v", got.Entries[0])
	}
	if missing, err := store.GetSnapshot(ctx, "s1", domain.LeaderboardPower); err != nil || missing != nil {
		t.Fatalf("missing snapshot = (%v, %v), want (nil, nil)", missing, err)
	}
}

func TestStores_UnconfiguredNoOps(t *testing.T) {
	store := NewRankingStore(nil, zerolog.Nop())
	ctx := context.Background()

	if cur, err := store.CurrentSeason(ctx); cur != nil || err != nil {
		t.Fatal("unconfigured CurrentSeason should be a silent no-op")
	}
	if err := store.SetCurrentSeason(ctx, domain.Season{ID: "s1"}); err != nil {
		t.Fatal("unconfigured SetCurrentSeason should be a silent no-op")
	}
	if err := store.AppendBattleRecord(ctx, domain.BattleRecord{}); err != nil {
		t.Fatal("unconfigured AppendBattleRecord should be a silent no-op")
	}
	if recs, err := store.ListPlayerRecords(ctx, "s1"); recs != nil || err != nil {
		t.Fatal("unconfigured ListPlayerRecords should return empty")
	}
}
