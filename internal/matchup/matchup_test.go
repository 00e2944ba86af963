package matchup

import (
	"testing"

	"chain-arena/internal/domain"
)

func TestResolve_RingAdjacency(t *testing.T) {
	cases := []struct {
		a, b domain.ClassID
		want domain.Advantage
	}{
		{domain.ClassWarrior, domain.ClassRogue, domain.Advantaged},
		{domain.ClassRogue, domain.ClassWarrior, domain.Disadvantaged},
		{domain.ClassElderWizard, domain.ClassWarrior, domain.Advantaged}, // wraparound
		{domain.ClassWarrior, domain.ClassElderWizard, domain.Disadvantaged},
		{domain.ClassWarrior, domain.ClassPriest, domain.Neutral}, // non-adjacent
		{domain.ClassHunter, domain.ClassSummoner, domain.Advantaged},
		{domain.ClassGuardian, domain.ClassHunter, domain.Advantaged}, // ring B wraparound
		{domain.ClassHunter, domain.ClassGuardian, domain.Disadvantaged},
	}
	for _, tc := range cases {
		got := Resolve(tc.a, tc.b)
		if got.FighterA != tc.want {
			t.Errorf("Resolve(%s, %s).FighterA = %s, want %s", tc.a, tc.b, got.FighterA, tc.want)
		}
	}
}

func TestResolve_CrossRingAndSelfNeutral(t *testing.T) {
	got := Resolve(domain.ClassWarrior, domain.ClassHunter)
	if got.FighterA != domain.Neutral || got.FighterB != domain.Neutral {
		t.Fatalf("cross-ring pair should be neutral, got %+v", got)
	}
	for _, c := range domain.AllClasses {
		got := Resolve(c, c)
		if got.FighterA != domain.Neutral || got.FighterB != domain.Neutral {
			t.Fatalf("self-pair %s should be neutral, got %+v", c, got)
		}
	}
}

func TestResolve_Symmetry(t *testing.T) {
	for _, a := range domain.AllClasses {
		for _, b := range domain.AllClasses {
			ab := Resolve(a, b)
			ba := Resolve(b, a)
			if ab.FighterA != ba.FighterB || ab.FighterB != ba.FighterA {
				t.Fatalf("Resolve(%s, %s)=%+v is not the mirror of Resolve(%s, %s)=%+v", a, b, ab, b, a, ba)
			}
			if ab.FighterB != invert(ab.FighterA) {
				t.Fatalf("Resolve(%s, %s)=%+v is not internally mirrored", a, b, ab)
			}
		}
	}
}

func TestModifiers(t *testing.T) {
	if m := DamageModifier(domain.Advantaged); m != 1.15 {
		t.Errorf("DamageModifier(advantaged) = %v, want 1.15", m)
	}
	if m := DamageModifier(domain.Disadvantaged); m != 0.80 {
		t.Errorf("DamageModifier(disadvantaged) = %v, want 0.80", m)
	}
	if m := ReceiveModifier(domain.Advantaged); m != 0.80 {
		t.Errorf("ReceiveModifier(advantaged) = %v, want 0.80", m)
	}
	if m := ReceiveModifier(domain.Neutral); m != 1.0 {
		t.Errorf("ReceiveModifier(neutral) = %v, want 1.0", m)
	}
}

func TestEdgesFor_Precomputed(t *testing.T) {
	e := EdgesFor(domain.ClassWarrior)
	if len(e.StrongAgainst) != 1 || e.StrongAgainst[0] != domain.ClassRogue {
		t.Errorf("warrior strong list = %v, want [rogue]", e.StrongAgainst)
	}
	if len(e.WeakAgainst) != 1 || e.WeakAgainst[0] != domain.ClassElderWizard {
		t.Errorf("warrior weak list = %v, want [elder_wizard]", e.WeakAgainst)
	}
	// every class has exactly one strong and one weak edge
	for _, c := range domain.AllClasses {
		e := EdgesFor(c)
		if len(e.StrongAgainst) != 1 || len(e.WeakAgainst) != 1 {
			t.Errorf("class %s edges = %+v, want one strong and one weak", c, e)
		}
	}
}
