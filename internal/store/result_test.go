package store

import (
	"errors"
	"testing"
	"time"
)

func seedResults(t *testing.T, r *ResultRepository) []*Result {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	results := []*Result{
		{SessionID: "s1", Speed: "default", TotalTargets: 30, Hits: 8, Score: 0.733, Rank: "second", CompletedAt: base},
		{SessionID: "s2", Speed: "frantic", TotalTargets: 60, Hits: 3, Score: 0.95, Rank: "first", CompletedAt: base.Add(time.Minute)},
		{SessionID: "s3", Speed: "relaxed", TotalTargets: 15, Hits: 12, Score: 0.2, Rank: "fourth", CompletedAt: base.Add(2 * time.Minute)},
		{SessionID: "s4", Speed: "default", TotalTargets: 30, Hits: 8, Score: 0.733, Rank: "second", CompletedAt: base.Add(3 * time.Minute)},
	}
	for _, res := range results {
		if err := r.Create(res); err != nil {
			t.Fatalf("Create(%s): %v", res.SessionID, err)
		}
	}
	return results
}

func TestResultRepository_CreateAndGet(t *testing.T) {
	r := newTestStore(t).Results()

	res := &Result{SessionID: "abc", Speed: "default", TotalTargets: 30, Hits: 4, Score: 0.8667, Rank: "first"}
	if err := r.Create(res); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if res.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if res.CompletedAt.IsZero() {
		t.Fatal("Create should set CompletedAt")
	}

	got, err := r.GetByID(res.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.SessionID != "abc" || got.Hits != 4 || got.Rank != "first" || got.TotalTargets != 30 {
		t.Errorf("GetByID = %+v", got)
	}
	if !got.CompletedAt.Equal(res.CompletedAt) {
		t.Errorf("CompletedAt = %v, want %v", got.CompletedAt, res.CompletedAt)
	}
}

func TestResultRepository_GetByID_NotFound(t *testing.T) {
	r := newTestStore(t).Results()

	if _, err := r.GetByID("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestResultRepository_RejectsUnknownRank(t *testing.T) {
	r := newTestStore(t).Results()

	if err := r.Create(&Result{SessionID: "x", Speed: "default", Rank: "fifth"}); err == nil {
		t.Error("expected CHECK constraint failure")
	}
}

func TestResultRepository_List(t *testing.T) {
	r := newTestStore(t).Results()
	seedResults(t, r)

	got, err := r.List(0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"s4", "s3", "s2", "s1"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].SessionID != id {
			t.Errorf("List[%d] = %s, want %s", i, got[i].SessionID, id)
		}
	}

	got, err = r.List(2)
	if err != nil {
		t.Fatalf("List(2): %v", err)
	}
	if len(got) != 2 {
		t.Errorf("List(2) len = %d", len(got))
	}
}

func TestResultRepository_Best(t *testing.T) {
	r := newTestStore(t).Results()
	seedResults(t, r)

	got, err := r.Best(3)
	if err != nil {
		t.Fatalf("Best: %v", err)
	}
	want := []string{"s2", "s1", "s4"}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i, id := range want {
		if got[i].SessionID != id {
			t.Errorf("Best[%d] = %s, want %s", i, got[i].SessionID, id)
		}
	}
}

func TestResultRepository_DeleteCascadesShares(t *testing.T) {
	s := newTestStore(t)
	res := &Result{SessionID: "s", Speed: "default", TotalTargets: 30, Score: 1, Rank: "first"}
	if err := s.Results().Create(res); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Shares().Add(&Share{ResultID: res.ID, Plugin: "share-link", URL: "https://example.test/r/1"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := s.Results().Delete(res.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Results().Delete(res.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete err = %v, want ErrNotFound", err)
	}

	shares, err := s.Shares().ListByResult(res.ID)
	if err != nil {
		t.Fatalf("ListByResult: %v", err)
	}
	if len(shares) != 0 {
		t.Errorf("shares survived delete: %d", len(shares))
	}
}

func TestShareRepository(t *testing.T) {
	s := newTestStore(t)
	res := &Result{SessionID: "s", Speed: "default", TotalTargets: 30, Score: 1, Rank: "first"}
	if err := s.Results().Create(res); err != nil {
		t.Fatalf("Create: %v", err)
	}

	first := &Share{ResultID: res.ID, Plugin: "share-link", URL: "https://example.test/a"}
	second := &Share{ResultID: res.ID, Plugin: "share-link", URL: "https://example.test/b"}
	for _, sh := range []*Share{first, second} {
		if err := s.Shares().Add(sh); err != nil {
			t.Fatalf("Add: %v", err)
		}
		if sh.ID == 0 {
			t.Error("Add should assign an ID")
		}
	}

	got, err := s.Shares().ListByResult(res.ID)
	if err != nil {
		t.Fatalf("ListByResult: %v", err)
	}
	if len(got) != 2 || got[0].URL != first.URL || got[1].URL != second.URL {
		t.Errorf("ListByResult = %+v", got)
	}

	if err := s.Shares().Add(&Share{ResultID: "missing", Plugin: "p", URL: "u"}); err == nil {
		t.Error("expected foreign key failure for unknown result")
	}
}
