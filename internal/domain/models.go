package domain

// ClassID identifies one of the eight playable character classes.
type ClassID string

const (
	ClassWarrior     ClassID = "warrior"
	ClassRogue       ClassID = "rogue"
	ClassMerchant    ClassID = "merchant"
	ClassPriest      ClassID = "priest"
	ClassElderWizard ClassID = "elder_wizard"
	ClassHunter      ClassID = "hunter"
	ClassSummoner    ClassID = "summoner"
	ClassGuardian    ClassID = "guardian"
)

// AllClasses lists every class in a stable order.
var AllClasses = []ClassID{
	ClassWarrior, ClassRogue, ClassMerchant, ClassPriest, ClassElderWizard,
	ClassHunter, ClassSummoner, ClassGuardian,
}

type AchievementTier string

const (
	TierLegendary AchievementTier = "legendary"
	TierEpic      AchievementTier = "epic"
	TierRare      AchievementTier = "rare"
	TierCommon    AchievementTier = "common"
)

type Achievement struct {
	ID   string          `json:"id"`
	Tier AchievementTier `json:"tier"`
}

type Stats struct {
	Level int     `json:"level"` // 1..60
	HP    int     `json:"hp"`
	MP    int     `json:"mp"`
	Str   int     `json:"str"`
	Int   int     `json:"int"`
	Dex   int     `json:"dex"`
	Luck  int     `json:"luck"`
	Power float64 `json:"power"`
}

// CharacterSheet is the externally derived character for a wallet address.
// It is immutable once built; the battle engine only borrows it.
type CharacterSheet struct {
	Address      string        `json:"address"`
	ENSName      string        `json:"ensName,omitempty"`
	ClassID      ClassID       `json:"classId"`
	Stats        Stats         `json:"stats"`
	Achievements []Achievement `json:"achievements"`
}

// BattleFighter is a CharacterSheet that has entered combat.
type BattleFighter struct {
	Address      string        `json:"address"`
	ENSName      string        `json:"ensName,omitempty"`
	ClassID      ClassID       `json:"classId"`
	Stats        Stats         `json:"stats"`
	Achievements []Achievement `json:"achievements"`
}

// Fighter projects a sheet into a battle.
func (c CharacterSheet) Fighter() BattleFighter {
	return BattleFighter{
		Address:      c.Address,
		ENSName:      c.ENSName,
		ClassID:      c.ClassID,
		Stats:        c.Stats,
		Achievements: c.Achievements,
	}
}

// BattleAction records a single turn. Optional effect fields are zero when
// the effect did not trigger and omitted from JSON.
type BattleAction struct {
	Turn       int    `json:"turn"`
	ActorIndex int    `json:"actorIndex"`
	Narrative  string `json:"narrative"`
	Damage     int    `json:"damage"`
	IsDodge    bool   `json:"isDodge,omitempty"`
	IsCrit     bool   `json:"isCrit,omitempty"`
	IsStun     bool   `json:"isStun,omitempty"`
	Reflected  int    `json:"reflected,omitempty"`
	MPDrained  int    `json:"mpDrained,omitempty"`
	Healed     int    `json:"healed,omitempty"`
}

// BattleResult is the full transcript of one simulated battle.
// Same fighters + same nonce always reproduce the same turns and winner.
type BattleResult struct {
	Fighters [2]BattleFighter `json:"fighters"`
	Turns    []BattleAction   `json:"turns"`
	Winner   int              `json:"winner"` // 0 or 1
	Nonce    string           `json:"nonce"`
}

type Advantage string

const (
	Advantaged    Advantage = "advantaged"
	Disadvantaged Advantage = "disadvantaged"
	Neutral       Advantage = "neutral"
)

// MatchupResult holds the mirrored advantage relation between two fighters.
type MatchupResult struct {
	FighterA Advantage `json:"fighterA"`
	FighterB Advantage `json:"fighterB"`
}

// Season is one ranking epoch. Timestamps are epoch milliseconds.
type Season struct {
	ID        string `json:"id"` // "s1", "s2", ...
	Number    int    `json:"number"`
	Name      string `json:"name"`
	StartedAt int64  `json:"startedAt"`
	EndsAt    int64  `json:"endsAt"`
	IsActive  bool   `json:"isActive"`
}

type TierCounts struct {
	Legendary int `json:"legendary"`
	Epic      int `json:"epic"`
	Rare      int `json:"rare"`
	Common    int `json:"common"`
}

// CountTiers tallies achievements per tier.
func CountTiers(achievements []Achievement) TierCounts {
	var c TierCounts
	for _, a := range achievements {
		switch a.Tier {
		case TierLegendary:
			c.Legendary++
		case TierEpic:
			c.Epic++
		case TierRare:
			c.Rare++
		case TierCommon:
			c.Common++
		}
	}
	return c
}

// Total returns the number of achievements across all tiers.
func (c TierCounts) Total() int {
	return c.Legendary + c.Epic + c.Rare + c.Common
}

// PlayerRecord is the season-scoped aggregate for one address.
type PlayerRecord struct {
	Address           string     `json:"address"`
	ENSName           string     `json:"ensName,omitempty"`
	ClassID           ClassID    `json:"classId"`
	Power             float64    `json:"power"`
	Level             int        `json:"level"`
	Wins              int        `json:"wins"`
	Losses            int        `json:"losses"`
	AchievementCounts TierCounts `json:"achievementCounts"`
	LastSeenAt        int64      `json:"lastSeenAt"`
}

// BattleRecord is one persisted battle row per fighter, capped at the most
// recent 200 per (season, address).
type BattleRecord struct {
	SeasonID        string  `json:"seasonId"`
	Address         string  `json:"address"`
	OpponentAddress string  `json:"opponentAddress"`
	Won             bool    `json:"won"`
	Power           float64 `json:"power"`
	OpponentPower   float64 `json:"opponentPower"`
	Nonce           string  `json:"nonce"`
	RecordedAt      int64   `json:"recordedAt"`
}

type LeaderboardType string

const (
	LeaderboardPower    LeaderboardType = "power"
	LeaderboardBattle   LeaderboardType = "battle"
	LeaderboardExplorer LeaderboardType = "explorer"
)

// LeaderboardEntry is one ranked row. Variant-specific fields are pointers so
// a power entry never serializes battle fields and vice versa.
type LeaderboardEntry struct {
	Rank             int     `json:"rank"`
	Address          string  `json:"address"`
	ENSName          string  `json:"ensName,omitempty"`
	ClassID          ClassID `json:"classId"`
	Power            float64 `json:"power"`
	Wins             *int    `json:"wins,omitempty"`
	Losses           *int    `json:"losses,omitempty"`
	WinRate          *int    `json:"winRate,omitempty"`
	RatingScore      *int    `json:"ratingScore,omitempty"`
	AchievementCount *int    `json:"achievementCount,omitempty"`
	ExplorerScore    *int    `json:"explorerScore,omitempty"`
}

// LeaderboardSnapshot is a point-in-time materialization of one ranking,
// recomputed on a schedule and served to readers as-is.
type LeaderboardSnapshot struct {
	SeasonID     string             `json:"seasonId"`
	Type         LeaderboardType    `json:"type"`
	UpdatedAt    int64              `json:"updatedAt"`
	Entries      []LeaderboardEntry `json:"entries"`
	TotalPlayers int                `json:"totalPlayers"`
}

// CacheStats is the process-local health view of one cache instance.
type CacheStats struct {
	Size    int     `json:"size"`
	HitRate float64 `json:"hitRate"`
}
