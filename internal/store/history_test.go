package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/HerbHall/aciclean/pkg/models"
)

func newHistory(t *testing.T) *History {
	t.Helper()
	h, err := NewHistory(context.Background(), tempDB(t))
	if err != nil {
		t.Fatalf("NewHistory: %v", err)
	}
	return h
}

func sampleReport(id string, started time.Time) *models.PurgeReport {
	return &models.PurgeReport{
		RunID:      id,
		Controller: "https://apic.example.net",
		Scope:      models.Scope{Tenant: "prod", AppProfile: "web", EPG: "frontend"},
		EPGDN:      "uni/tn-prod/ap-web/epg-frontend",
		Attempted:  []models.DN{"ep-1", "ep-2", "ep-3"},
		Succeeded:  []models.DN{"ep-1", "ep-3"},
		Failed:     []models.OperationResult{{DN: "ep-2", Detail: "404 - not found"}},
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
	}
}

func TestNewHistory_Idempotent(t *testing.T) {
	s := tempDB(t)
	for i := 0; i < 2; i++ {
		if _, err := NewHistory(context.Background(), s); err != nil {
			t.Fatalf("NewHistory #%d: %v", i+1, err)
		}
	}
}

func TestRecordRun_RoundTrip(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	if err := h.RecordRun(ctx, sampleReport("run-1", started), errors.New("1 endpoint deletion(s) failed")); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}

	runs, err := h.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	got := runs[0]
	if got.ID != "run-1" || got.Status != models.RunPartial {
		t.Errorf("run = %+v, want run-1 partial", got)
	}
	if got.Attempted != 3 || got.Succeeded != 2 || got.Failed != 1 {
		t.Errorf("counts = %d/%d/%d, want 3/2/1", got.Attempted, got.Succeeded, got.Failed)
	}
	if got.Scope.EPG != "frontend" || got.EPGDN != "uni/tn-prod/ap-web/epg-frontend" {
		t.Errorf("scope = %+v dn = %q", got.Scope, got.EPGDN)
	}
	if !got.StartedAt.Equal(started) {
		t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
	}

	results, err := h.RunResults(ctx, "run-1")
	if err != nil {
		t.Fatalf("RunResults: %v", err)
	}
	want := []models.OperationResult{
		{DN: "ep-1", Success: true},
		{DN: "ep-2", Detail: "404 - not found"},
		{DN: "ep-3", Success: true},
	}
	if len(results) != len(want) {
		t.Fatalf("got %d results, want %d", len(results), len(want))
	}
	for i := range want {
		if results[i] != want[i] {
			t.Errorf("result[%d] = %+v, want %+v", i, results[i], want[i])
		}
	}
}

func TestListRuns_NewestFirstWithLimit(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i, id := range []string{"old", "mid", "new"} {
		r := sampleReport(id, base.Add(time.Duration(i)*time.Hour))
		r.Failed = nil
		r.Succeeded = r.Attempted
		if err := h.RecordRun(ctx, r, nil); err != nil {
			t.Fatalf("RecordRun %s: %v", id, err)
		}
	}

	runs, err := h.ListRuns(ctx, 2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 || runs[0].ID != "new" || runs[1].ID != "mid" {
		t.Errorf("runs = %+v, want [new mid]", runs)
	}
	if runs[0].Status != models.RunSucceeded {
		t.Errorf("status = %q, want success", runs[0].Status)
	}
}

func TestRecordRun_DryRun(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()
	r := &models.PurgeReport{
		RunID:     "dry",
		Scope:     models.Scope{Tenant: "t", AppProfile: "a", EPG: "e"},
		EPGDN:     "uni/tn-t/ap-a/epg-e",
		DryRun:    true,
		Attempted: []models.DN{"ep-1"},
		StartedAt: time.Now(), FinishedAt: time.Now(),
	}
	if err := h.RecordRun(ctx, r, nil); err != nil {
		t.Fatalf("RecordRun: %v", err)
	}
	runs, err := h.ListRuns(ctx, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 1 || runs[0].Status != models.RunDryRun || !runs[0].DryRun {
		t.Errorf("runs = %+v, want one dry_run", runs)
	}
	results, err := h.RunResults(ctx, "dry")
	if err != nil {
		t.Fatalf("RunResults: %v", err)
	}
	if len(results) != 1 || results[0].Success {
		t.Errorf("results = %+v, want one non-deleted entry", results)
	}
}

func TestRecordRun_DuplicateIDRejected(t *testing.T) {
	h := newHistory(t)
	ctx := context.Background()
	r := sampleReport("dup", time.Now())
	if err := h.RecordRun(ctx, r, nil); err != nil {
		t.Fatalf("first RecordRun: %v", err)
	}
	if err := h.RecordRun(ctx, r, nil); err == nil {
		t.Error("expected error for duplicate run id")
	}
}
