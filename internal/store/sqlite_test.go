package store

import (
	"context"
	"testing"

	"github.com/andes-group/invest-cli/internal/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func testReq() model.ReportRequest {
	return model.ReportRequest{
		ListingURL:  "https://example.com/depto/1",
		PrincipalUF: 9200,
		RentCLP:     2_300_000,
	}
}

func TestSQLite_CreateAndGetRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testReq())
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if run.Status != model.RunStatusQueued {
		t.Errorf("status = %q, want queued", run.Status)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Request.ListingURL != "https://example.com/depto/1" {
		t.Errorf("request url = %q", got.Request.ListingURL)
	}
	if got.Request.PrincipalUF != 9200 {
		t.Errorf("principal = %v", got.Request.PrincipalUF)
	}
}

func TestSQLite_RunLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testReq())
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}

	if err := s.UpdateRunStatus(ctx, run.ID, model.RunStatusRunning); err != nil {
		t.Fatalf("UpdateRunStatus: %v", err)
	}

	report := &model.FinalReport{
		Analysis: &model.AnalysisResult{Origin: model.OriginModel},
		Meta:     model.ReportMeta{ReportID: "r1", ConfidencePct: 80},
	}
	if err := s.CompleteRun(ctx, run.ID, report); err != nil {
		t.Fatalf("CompleteRun: %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != model.RunStatusComplete {
		t.Errorf("status = %q, want complete", got.Status)
	}
	if got.Report == nil || got.Report.Meta.ConfidencePct != 80 {
		t.Errorf("report = %+v", got.Report)
	}
}

func TestSQLite_FailRun(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	run, err := s.CreateRun(ctx, testReq())
	if err != nil {
		t.Fatalf("CreateRun: %v", err)
	}
	if err := s.FailRun(ctx, run.ID, "invalid listing URL"); err != nil {
		t.Fatalf("FailRun: %v", err)
	}

	got, err := s.GetRun(ctx, run.ID)
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if got.Status != model.RunStatusFailed {
		t.Errorf("status = %q, want failed", got.Status)
	}
	if got.Error != "invalid listing URL" {
		t.Errorf("error = %q", got.Error)
	}
}

func TestSQLite_UpdateMissingRun(t *testing.T) {
	s := newTestStore(t)
	if err := s.UpdateRunStatus(context.Background(), "nope", model.RunStatusRunning); err == nil {
		t.Error("updating a missing run must fail")
	}
}

func TestSQLite_ListRuns(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a, _ := s.CreateRun(ctx, testReq())
	b, _ := s.CreateRun(ctx, model.ReportRequest{ListingURL: "https://example.com/depto/2", PrincipalUF: 4000})
	if err := s.FailRun(ctx, b.ID, "down"); err != nil {
		t.Fatalf("FailRun: %v", err)
	}

	all, err := s.ListRuns(ctx, RunFilter{})
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("len = %d, want 2", len(all))
	}

	failed, err := s.ListRuns(ctx, RunFilter{Status: model.RunStatusFailed})
	if err != nil {
		t.Fatalf("ListRuns failed filter: %v", err)
	}
	if len(failed) != 1 || failed[0].ID != b.ID {
		t.Errorf("failed filter = %+v", failed)
	}

	byURL, err := s.ListRuns(ctx, RunFilter{ListingURL: "https://example.com/depto/1"})
	if err != nil {
		t.Fatalf("ListRuns url filter: %v", err)
	}
	if len(byURL) != 1 || byURL[0].ID != a.ID {
		t.Errorf("url filter = %+v", byURL)
	}
}

func TestSQLite_GetMissingRun(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.GetRun(context.Background(), "missing"); err == nil {
		t.Error("missing run must return an error")
	}
}
