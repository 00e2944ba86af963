package matchup

import (
	"chain-arena/internal/domain"
)

// Advantage rings. Within a ring, each class beats the next one around the
// cycle and loses to the previous one; non-adjacent same-ring pairs, all
// cross-ring pairs and self-pairs are neutral.
var ringA = []domain.ClassID{
	domain.ClassWarrior,
	domain.ClassRogue,
	domain.ClassMerchant,
	domain.ClassPriest,
	domain.ClassElderWizard,
}

var ringB = []domain.ClassID{
	domain.ClassHunter,
	domain.ClassSummoner,
	domain.ClassGuardian,
}

var damageModifier = map[domain.Advantage]float64{
	domain.Advantaged:    1.15,
	domain.Disadvantaged: 0.80,
	domain.Neutral:       1.0,
}

var receiveModifier = map[domain.Advantage]float64{
	domain.Advantaged:    0.80,
	domain.Disadvantaged: 1.15,
	domain.Neutral:       1.0,
}

// Edges holds the precomputed matchup lists for one class.
type Edges struct {
	StrongAgainst []domain.ClassID
	WeakAgainst   []domain.ClassID
}

var classEdges map[domain.ClassID]Edges

func init() {
	classEdges = make(map[domain.ClassID]Edges, len(domain.AllClasses))
	for _, a := range domain.AllClasses {
		var e Edges
		for _, b := range domain.AllClasses {
			switch Resolve(a, b).FighterA {
			case domain.Advantaged:
				e.StrongAgainst = append(e.StrongAgainst, b)
			case domain.Disadvantaged:
				e.WeakAgainst = append(e.WeakAgainst, b)
			}
		}
		classEdges[a] = e
	}
}

// Resolve returns the mirrored advantage relation between two classes.
func Resolve(a, b domain.ClassID) domain.MatchupResult {
	adv := relation(a, b)
	return domain.MatchupResult{FighterA: adv, FighterB: invert(adv)}
}

func relation(a, b domain.ClassID) domain.Advantage {
	if a == b {
		return domain.Neutral
	}
	for _, ring := range [][]domain.ClassID{ringA, ringB} {
		ia, ib := indexOf(ring, a), indexOf(ring, b)
		if ia < 0 || ib < 0 {
			continue
		}
		n := len(ring)
		if (ia+1)%n == ib {
			return domain.Advantaged
		}
		if (ib+1)%n == ia {
			return domain.Disadvantaged
		}
		return domain.Neutral
	}
	return domain.Neutral
}

func invert(a domain.Advantage) domain.Advantage {
	switch a {
	case domain.Advantaged:
		return domain.Disadvantaged
	case domain.Disadvantaged:
		return domain.Advantaged
	default:
		return domain.Neutral
	}
}

func indexOf(ring []domain.ClassID, c domain.ClassID) int {
	for i, v := range ring {
		if v == c {
			return i
		}
	}
	return -1
}

// DamageModifier scales damage dealt by a fighter with the given advantage.
func DamageModifier(a domain.Advantage) float64 {
	if m, ok := damageModifier[a]; ok {
		return m
	}
	return 1.0
}

// ReceiveModifier scales damage received by a fighter with the given advantage.
func ReceiveModifier(a domain.Advantage) float64 {
	if m, ok := receiveModifier[a]; ok {
		return m
	}
	return 1.0
}

// EdgesFor returns the precomputed strong/weak class lists for card display.
func EdgesFor(c domain.ClassID) Edges {
	return classEdges[c]
}
