package season

import (
	"testing"
	"time"

	"chain-arena/internal/domain"
)

func TestNew_Genesis(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(nil, now)

	if s.Number != 1 {
		t.Errorf("number = %d, want 1", s.Number)
	}
	if s.ID != "s1" {
		t.Errorf("id = %s, want s1", s.ID)
	}
	if s.Name != "Genesis Season" {
		t.Errorf("name = %q, want Genesis Season", s.Name)
	}
	if !s.IsActive {
		t.Error("new season should be active")
	}
	wantEnd := now.Add(90 * 24 * time.Hour).UnixMilli()
	if s.EndsAt != wantEnd {
		t.Errorf("endsAt = %d, want %d (exactly 90 days)", s.EndsAt, wantEnd)
	}
}

func TestNew_IncrementAndNameCycle(t *testing.T) {
	now := time.Now()
	prev := New(nil, now)
	for i := 2; i <= 10; i++ {
		s := New(&prev, now)
		if s.Number != i {
			t.Fatalf("season %d number = %d", i, s.Number)
		}
		prev = s
	}
	// season 9 wraps back to the first name
	nine := domain.Season{Number: 8}
	s9 := New(&nine, now)
	if s9.Name != "Genesis Season" {
		t.Errorf("season 9 name = %q, want Genesis Season", s9.Name)
	}
	if s9.ID != "s9" {
		t.Errorf("season 9 id = %s, want s9", s9.ID)
	}
}

func TestIsExpired_InclusiveBoundary(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(nil, now)

	if IsExpired(s, now) {
		t.Error("fresh season reported expired")
	}
	end := time.UnixMilli(s.EndsAt)
	if !IsExpired(s, end) {
		t.Error("season at exact end instant should be expired")
	}
	if !IsExpired(s, end.Add(time.Millisecond)) {
		t.Error("season past end should be expired")
	}
}

func TestEnd_PureCopy(t *testing.T) {
	s := New(nil, time.Now())
	ended := End(s)
	if ended.IsActive {
		t.Error("ended copy should be inactive")
	}
	if !s.IsActive {
		t.Error("original season was mutated")
	}
}

func TestRemaining_ClampsToZero(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := New(nil, now)

	r := Remaining(s, now.Add(45*24*time.Hour))
	if r.Days != 45 || r.Hours != 0 {
		t.Errorf("remaining = %d days %d hours, want 45 days 0 hours", r.Days, r.Hours)
	}

	r = Remaining(s, now.Add(200*24*time.Hour))
	if r.Days != 0 || r.Hours != 0 || r.TotalMs != 0 {
		t.Errorf("past-end remaining = %+v, want all zero", r)
	}
}
