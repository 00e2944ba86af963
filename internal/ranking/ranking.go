package ranking

import (
	"math"
	"sort"
	"strings"

	"chain-arena/internal/constants"
	"chain-arena/internal/domain"
)

// Explorer score weights per achievement tier.
const (
	legendaryWeight = 100
	epicWeight      = 40
	rareWeight      = 15
	commonWeight    = 5
)

// PowerRanking ranks a season's players by power, ties broken by address.
func PowerRanking(records []domain.PlayerRecord) []domain.LeaderboardEntry {
	sorted := append([]domain.PlayerRecord(nil), records...)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Power != sorted[j].Power {
			return sorted[i].Power > sorted[j].Power
		}
		return sorted[i].Address < sorted[j].Address
	})
	sorted = capRecords(sorted)

	entries := make([]domain.LeaderboardEntry, len(sorted))
	for i, r := range sorted {
		entries[i] = baseEntry(i+1, r)
	}
	return entries
}

// BattleRanking ranks players by rating score. Players with fewer than five
// recorded battles are excluded to keep noise off the board.
func BattleRanking(records []domain.PlayerRecord) []domain.LeaderboardEntry {
	type scored struct {
		rec     domain.PlayerRecord
		winRate int
		rating  int
	}
	eligible := make([]scored, 0, len(records))
	for _, r := range records {
		total := r.Wins + r.Losses
		if total < constants.BattleRankingFloor {
			continue
		}
		winRate := int(math.Round(float64(r.Wins) / float64(total) * 100))
		rating := r.Wins*10 + r.Losses*2 + winRate
		eligible = append(eligible, scored{rec: r, winRate: winRate, rating: rating})
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].rating != eligible[j].rating {
			return eligible[i].rating > eligible[j].rating
		}
		return eligible[i].rec.Address < eligible[j].rec.Address
	})
	if len(eligible) > constants.LeaderboardCap {
		eligible = eligible[:constants.LeaderboardCap]
	}

	entries := make([]domain.LeaderboardEntry, len(eligible))
	for i, s := range eligible {
		e := baseEntry(i+1, s.rec)
		wins, losses, winRate, rating := s.rec.Wins, s.rec.Losses, s.winRate, s.rating
		e.Wins = &wins
		e.Losses = &losses
		e.WinRate = &winRate
		e.RatingScore = &rating
		entries[i] = e
	}
	return entries
}

// ExplorerRanking ranks players by achievement score; zero scores are omitted.
func ExplorerRanking(records []domain.PlayerRecord) []domain.LeaderboardEntry {
	type scored struct {
		rec   domain.PlayerRecord
		score int
	}
	eligible := make([]scored, 0, len(records))
	for _, r := range records {
		score := ExplorerScore(r.AchievementCounts)
		if score <= 0 {
			continue
		}
		eligible = append(eligible, scored{rec: r, score: score})
	}
	sort.Slice(eligible, func(i, j int) bool {
		if eligible[i].score != eligible[j].score {
			return eligible[i].score > eligible[j].score
		}
		return eligible[i].rec.Address < eligible[j].rec.Address
	})
	if len(eligible) > constants.LeaderboardCap {
		eligible = eligible[:constants.LeaderboardCap]
	}

	entries := make([]domain.LeaderboardEntry, len(eligible))
	for i, s := range eligible {
		e := baseEntry(i+1, s.rec)
		count, score := s.rec.AchievementCounts.Total(), s.score
		e.AchievementCount = &count
		e.ExplorerScore = &score
		entries[i] = e
	}
	return entries
}

// ExplorerScore is the weighted sum of a player's achievement-tier counts.
func ExplorerScore(c domain.TierCounts) int {
	return c.Legendary*legendaryWeight + c.Epic*epicWeight + c.Rare*rareWeight + c.Common*commonWeight
}

// Rank computes the ranking of the given type over a season's records.
func Rank(t domain.LeaderboardType, records []domain.PlayerRecord) []domain.LeaderboardEntry {
	switch t {
	case domain.LeaderboardBattle:
		return BattleRanking(records)
	case domain.LeaderboardExplorer:
		return ExplorerRanking(records)
	default:
		return PowerRanking(records)
	}
}

// FindPlayerRank looks up a player's 1-based rank in an already-ranked list,
// matching the address case-insensitively. Independent of pagination.
func FindPlayerRank(entries []domain.LeaderboardEntry, address string) (int, bool) {
	needle := strings.ToLower(address)
	for _, e := range entries {
		if strings.ToLower(e.Address) == needle {
			return e.Rank, true
		}
	}
	return 0, false
}

func baseEntry(rank int, r domain.PlayerRecord) domain.LeaderboardEntry {
	return domain.LeaderboardEntry{
		Rank:    rank,
		Address: r.Address,
		ENSName: r.ENSName,
		ClassID: r.ClassID,
		Power:   r.Power,
	}
}

func capRecords(records []domain.PlayerRecord) []domain.PlayerRecord {
	if len(records) > constants.LeaderboardCap {
		return records[:constants.LeaderboardCap]
	}
	return records
}
