package battle

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"chain-arena/internal/constants"
	"chain-arena/internal/domain"
	"chain-arena/internal/matchup"
)

// ErrInvalidFighter rejects malformed stats before simulation starts; a
// partial transcript is never produced.
var ErrInvalidFighter = errors.New("invalid fighter")

const magicCost = 10

type fighterState struct {
	f         domain.BattleFighter
	advantage domain.Advantage
	hp        int
	mp        int
	maxHP     int
	stunned   bool
}

// Simulate runs a full battle between two fighters. All randomness is drawn
// from a PRNG seeded by the nonce, so the same fighters and nonce reproduce
// the same transcript and winner on every run. The simulator performs no I/O.
func Simulate(f0, f1 domain.BattleFighter, nonce string) (*domain.BattleResult, error) {
	if err := validate(f0); err != nil {
		return nil, fmt.Errorf("fighter 0 (%s): %w", f0.Address, err)
	}
	if err := validate(f1); err != nil {
		return nil, fmt.Errorf("fighter 1 (%s): %w", f1.Address, err)
	}

	m := matchup.Resolve(f0.ClassID, f1.ClassID)
	rng := newRNG(nonce)

	states := [2]*fighterState{
		{f: f0, advantage: m.FighterA, hp: f0.Stats.HP, mp: f0.Stats.MP, maxHP: f0.Stats.HP},
		{f: f1, advantage: m.FighterB, hp: f1.Stats.HP, mp: f1.Stats.MP, maxHP: f1.Stats.HP},
	}

	turns := make([]domain.BattleAction, 0, constants.MaxBattleTurns)
	winner := -1

	for turn := 1; turn <= constants.MaxBattleTurns; turn++ {
		ai := (turn - 1) % 2 // strict 0,1,0,1 alternation
		actor, defender := states[ai], states[1-ai]
		action := domain.BattleAction{Turn: turn, ActorIndex: ai}

		if actor.stunned {
			actor.stunned = false
			action.Narrative = fmt.Sprintf("%s is stunned and skips the turn", displayName(actor.f))
			turns = append(turns, action)
			continue
		}

		verb := attackVerb(rng, actor)

		if rng.Float64() < dodgeChance(defender.f.Stats.Dex) {
			action.IsDodge = true
			action.Narrative = fmt.Sprintf("%s %s %s, but %s dodges the blow",
				displayName(actor.f), verb, displayName(defender.f), displayName(defender.f))
			turns = append(turns, action)
			continue
		}

		useMagic := actor.f.Stats.Int > actor.f.Stats.Str && actor.mp >= magicCost
		offStat := actor.f.Stats.Str
		if useMagic {
			offStat = actor.f.Stats.Int
			actor.mp -= magicCost
		}

		dmg := (float64(offStat)*0.4 + float64(actor.f.Stats.Level)*0.8) *
			(0.85 + rng.Float64()*0.3)
		dmg *= matchup.DamageModifier(actor.advantage)
		dmg *= matchup.ReceiveModifier(defender.advantage)

		if rng.Float64() < critChance(actor.f.Stats.Luck) {
			action.IsCrit = true
			dmg *= 1.5 + rng.Float64()*0.5
		}
		damage := int(math.Max(1, math.Floor(dmg)))
		action.Damage = damage

		// secondary effects, each recorded only when it actually triggers
		if action.IsCrit && actor.f.Stats.Str >= 120 && rng.Float64() < 0.20 {
			defender.stunned = true
			action.IsStun = true
		}
		if useMagic && rng.Float64() < 0.25 {
			drained := min(defender.mp, actor.f.Stats.Int/4)
			if drained > 0 {
				defender.mp -= drained
				actor.mp = min(actor.mp+drained, actor.f.Stats.MP)
				action.MPDrained = drained
			}
		}
		if lifestealEligible(actor) && rng.Float64() < 0.20 {
			healed := min(damage/4, actor.maxHP-actor.hp)
			if healed > 0 {
				actor.hp += healed
				action.Healed = healed
			}
		}
		if defender.f.ClassID == domain.ClassGuardian && rng.Float64() < 0.25 {
			reflected := damage / 5
			if reflected > 0 {
				actor.hp = max(0, actor.hp-reflected)
				action.Reflected = reflected
			}
		}

		defender.hp = max(0, defender.hp-damage)
		action.Narrative = hitNarrative(actor.f, defender.f, verb, action)
		turns = append(turns, action)

		if defender.hp == 0 {
			winner = ai
			break
		}
		if actor.hp == 0 {
			// killed by reflection
			winner = 1 - ai
			break
		}
	}

	if winner < 0 {
		// turn cap reached: higher remaining HP fraction wins, fighter 0 on tie
		frac0 := float64(states[0].hp) / float64(states[0].maxHP)
		frac1 := float64(states[1].hp) / float64(states[1].maxHP)
		if frac1 > frac0 {
			winner = 1
		} else {
			winner = 0
		}
	}

	return &domain.BattleResult{
		Fighters: [2]domain.BattleFighter{f0, f1},
		Turns:    turns,
		Winner:   winner,
		Nonce:    nonce,
	}, nil
}

func validate(f domain.BattleFighter) error {
	s := f.Stats
	if f.Address == "" {
		return fmt.Errorf("%w: missing address", ErrInvalidFighter)
	}
	if s.HP <= 0 {
		return fmt.Errorf("%w: hp must be positive, got %d", ErrInvalidFighter, s.HP)
	}
	if s.Level < 1 || s.Level > 60 {
		return fmt.Errorf("%w: level must be in [1,60], got %d", ErrInvalidFighter, s.Level)
	}
	if s.MP < 0 || s.Str < 0 || s.Int < 0 || s.Dex < 0 || s.Luck < 0 {
		return fmt.Errorf("%w: negative stat", ErrInvalidFighter)
	}
	return nil
}

func dodgeChance(dex int) float64 {
	return math.Min(0.05+float64(dex)*0.001, 0.25)
}

func critChance(luck int) float64 {
	return math.Min(0.05+float64(luck)*0.002, 0.35)
}

func lifestealEligible(s *fighterState) bool {
	if s.f.ClassID == domain.ClassPriest || s.f.ClassID == domain.ClassElderWizard {
		return true
	}
	return s.hp*2 < s.maxHP
}

var physicalVerbs = []string{"strikes", "slashes at", "charges", "lunges at"}
var magicVerbs = []string{"hurls an arcane bolt at", "channels a spell toward", "unleashes raw mana at"}

func attackVerb(rng *rand.Rand, actor *fighterState) string {
	if actor.f.Stats.Int > actor.f.Stats.Str && actor.mp >= magicCost {
		return magicVerbs[rng.Intn(len(magicVerbs))]
	}
	return physicalVerbs[rng.Intn(len(physicalVerbs))]
}

func hitNarrative(actor, defender domain.BattleFighter, verb string, a domain.BattleAction) string {
	s := fmt.Sprintf("%s %s %s for %d damage", displayName(actor), verb, displayName(defender), a.Damage)
	if a.IsCrit {
		s = "Critical hit! " + s
	}
	if a.IsStun {
		s += ", leaving them stunned"
	}
	return s
}

func displayName(f domain.BattleFighter) string {
	if f.ENSName != "" {
		return f.ENSName
	}
	if len(f.Address) > 10 {
		return f.Address[:6] + "…" + f.Address[len(f.Address)-4:]
	}
	return f.Address
}
