package score

import (
	"math"
	"testing"
)

func TestNew(t *testing.T) {
	s := New(30)

	if s.TotalTargets != 30 || s.RemainingTargets != 30 || s.BlocksRemaining != 30 {
		t.Errorf("unexpected counters %+v", s)
	}
	if s.BlocksRemainingText != "30" {
		t.Errorf("BlocksRemainingText = %q, want %q", s.BlocksRemainingText, "30")
	}
	if s.Score != 1 || s.Rank != RankFirst {
		t.Errorf("Score/Rank = %f/%s, want 1/first", s.Score, s.Rank)
	}
}

func TestRecordEvent_EightHits(t *testing.T) {
	s := New(30)
	for i := 0; i < 8; i++ {
		s = RecordEvent(s, Hit)
	}

	if s.Hits != 8 {
		t.Errorf("Hits = %d, want 8", s.Hits)
	}
	want := 22.0 / 30.0
	if math.Abs(s.Score-want) > 1e-9 {
		t.Errorf("Score = %f, want %f", s.Score, want)
	}
	if s.Rank != RankSecond {
		t.Errorf("Rank = %s, want %s", s.Rank, RankSecond)
	}
	if s.RemainingTargets != 22 {
		t.Errorf("RemainingTargets = %d, want 22", s.RemainingTargets)
	}
	if s.BlocksRemainingText != "22" {
		t.Errorf("BlocksRemainingText = %q, want %q", s.BlocksRemainingText, "22")
	}
}

func TestRecordEvent_AlternatingExhaustsBudget(t *testing.T) {
	s := New(30)
	for i := 0; i < 30; i++ {
		o := Hit
		if i%2 == 1 {
			o = Miss
		}
		s = RecordEvent(s, o)
	}

	if s.RemainingTargets != 0 {
		t.Errorf("RemainingTargets = %d, want 0", s.RemainingTargets)
	}
	if s.Hits != 15 {
		t.Errorf("Hits = %d, want 15", s.Hits)
	}
	if s.Rank != RankFor(s.Score) {
		t.Errorf("Rank = %s, want %s for score %f", s.Rank, RankFor(s.Score), s.Score)
	}
	if !s.Completed() {
		t.Error("Completed() should be true once the budget is spent")
	}
}

func TestRecordEvent_NoOpWhenExhausted(t *testing.T) {
	s := New(2)
	s = RecordEvent(s, Miss)
	s = RecordEvent(s, Miss)

	before := s
	s = RecordEvent(s, Hit)
	if s != before {
		t.Errorf("RecordEvent after exhaustion changed state: %+v -> %+v", before, s)
	}
}

func TestRecordEvent_MissLeavesScore(t *testing.T) {
	s := RecordEvent(New(30), Miss)

	if s.Hits != 0 || s.Score != 1 || s.Rank != RankFirst || s.BlocksRemaining != 30 {
		t.Errorf("miss should only consume a target, got %+v", s)
	}
	if s.RemainingTargets != 29 {
		t.Errorf("RemainingTargets = %d, want 29", s.RemainingTargets)
	}
}

func TestRecordEvent_ZeroScoreClamped(t *testing.T) {
	s := New(15)
	for i := 0; i < 15; i++ {
		s = RecordEvent(s, Hit)
	}

	if s.Score != MinScore {
		t.Errorf("Score = %f, want %f", s.Score, MinScore)
	}
	if s.Rank != RankFourth {
		t.Errorf("Rank = %s, want %s", s.Rank, RankFourth)
	}
	if s.BlocksRemainingText != "00" {
		t.Errorf("BlocksRemainingText = %q, want %q", s.BlocksRemainingText, "00")
	}
}

func TestRecordEvent_HitsPlusRemainingBounded(t *testing.T) {
	s := New(15)
	for i := 0; i < 40; i++ {
		o := Hit
		if i%3 == 0 {
			o = Miss
		}
		s = RecordEvent(s, o)
		if s.Hits+s.RemainingTargets > s.TotalTargets {
			t.Fatalf("hits+remaining = %d exceeds total %d", s.Hits+s.RemainingTargets, s.TotalTargets)
		}
		if s.RemainingTargets < 0 {
			t.Fatalf("RemainingTargets went negative: %d", s.RemainingTargets)
		}
	}
}

func TestRankFor(t *testing.T) {
	tests := []struct {
		score float64
		want  Rank
	}{
		{1, RankFirst},
		{0.75, RankFirst},
		{0.74, RankSecond},
		{0.5, RankSecond},
		{0.49, RankThird},
		{0.25, RankThird},
		{0.24, RankFourth},
		{MinScore, RankFourth},
	}

	for _, tt := range tests {
		if got := RankFor(tt.score); got != tt.want {
			t.Errorf("RankFor(%f) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestBlocksText(t *testing.T) {
	tests := map[int]string{0: "00", 9: "09", 10: "10", 59: "59"}
	for n, want := range tests {
		if got := blocksText(n); got != want {
			t.Errorf("blocksText(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestParseOutcome(t *testing.T) {
	for _, s := range []string{"hit", "miss"} {
		if _, err := ParseOutcome(s); err != nil {
			t.Errorf("ParseOutcome(%q) error = %v", s, err)
		}
	}
	if _, err := ParseOutcome("bounce"); err == nil {
		t.Error("ParseOutcome should reject unknown outcomes")
	}
}
