package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashureev/lohmm-traces/internal/domain"
)

func newTestStore(t *testing.T) Repository {
	t.Helper()
	repo, err := NewSQLite(filepath.Join(t.TempDir(), "db", "lohmm.db"))
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func sampleRun(started time.Time) *domain.Run {
	run := domain.NewRun(10, started)
	run.FinishedAt = started.Add(2 * time.Second)
	run.Sources = []string{"scientist-1", "scientist-2"}
	run.Stats = domain.Stats{Sources: 2, Blocks: 5, KeptSessions: 2, Events: 7, Paths: 3}
	run.ManifestDigest = "abc123"
	return run
}

func sampleSessions(runID string) []domain.StoredSession {
	return []domain.StoredSession{
		{RunID: runID, Source: "scientist-1", Ordinal: 0, Base: "/user/bob", EventCount: 3, Fact: "lohmm([mkdir('/x'),com,com])."},
		{RunID: runID, Source: "scientist-2", Ordinal: 4, Base: "", EventCount: 4, Fact: "lohmm([com,com,com,cd()])."},
	}
}

func TestSaveAndGetRun(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	run := sampleRun(time.Unix(1_700_000_000, 0))

	if err := repo.SaveRun(ctx, run, sampleSessions(run.RunID), []string{"/b", "/a", "/c"}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	got, err := repo.GetRun(ctx, run.RunID)
	if err != nil {
		t.Fatalf("GetRun failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetRun returned nil")
	}
	if got.Window != 10 || got.ManifestDigest != "abc123" {
		t.Errorf("run = %+v", got)
	}
	if !got.StartedAt.Equal(run.StartedAt) || got.Duration() != 2*time.Second {
		t.Errorf("times = %v..%v", got.StartedAt, got.FinishedAt)
	}
	if len(got.Sources) != 2 || got.Sources[1] != "scientist-2" {
		t.Errorf("Sources = %v", got.Sources)
	}
	if got.Stats != run.Stats {
		t.Errorf("Stats = %+v, want %+v", got.Stats, run.Stats)
	}
}

func TestGetRunMissing(t *testing.T) {
	repo := newTestStore(t)
	got, err := repo.GetRun(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Errorf("GetRun = %+v, want nil", got)
	}
}

func TestSaveRunDuplicateFails(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	run := sampleRun(time.Unix(1_700_000_000, 0))

	if err := repo.SaveRun(ctx, run, nil, nil); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}
	if err := repo.SaveRun(ctx, run, nil, nil); err == nil {
		t.Fatal("expected duplicate run to fail")
	}
}

func TestListRunsNewestFirst(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()

	older := sampleRun(time.Unix(1_700_000_000, 0))
	newer := sampleRun(time.Unix(1_700_000_500, 0))
	for _, r := range []*domain.Run{older, newer} {
		if err := repo.SaveRun(ctx, r, nil, nil); err != nil {
			t.Fatalf("SaveRun failed: %v", err)
		}
	}

	runs, err := repo.ListRuns(ctx, 10)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 2 || runs[0].RunID != newer.RunID {
		t.Fatalf("ListRuns order wrong: %+v", runs)
	}

	runs, err = repo.ListRuns(ctx, 1)
	if err != nil {
		t.Fatalf("ListRuns failed: %v", err)
	}
	if len(runs) != 1 {
		t.Errorf("limit ignored: %d runs", len(runs))
	}
}

func TestListSessionsKeepsCorpusOrder(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	run := sampleRun(time.Unix(1_700_000_000, 0))
	if err := repo.SaveRun(ctx, run, sampleSessions(run.RunID), nil); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	all, err := repo.ListSessions(ctx, run.RunID, 0, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(all) != 2 || all[0].Source != "scientist-1" || all[1].Ordinal != 4 {
		t.Fatalf("sessions = %+v", all)
	}
	if all[1].Fact != "lohmm([com,com,com,cd()])." {
		t.Errorf("Fact = %q", all[1].Fact)
	}

	page, err := repo.ListSessions(ctx, run.RunID, 1, 1)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(page) != 1 || page[0].Source != "scientist-2" {
		t.Errorf("page = %+v", page)
	}
}

func TestListPathsSorted(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	run := sampleRun(time.Unix(1_700_000_000, 0))
	if err := repo.SaveRun(ctx, run, nil, []string{"/user/bob/z", "/user/bob/a", "/user/bob/a"}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	paths, err := repo.ListPaths(ctx, run.RunID)
	if err != nil {
		t.Fatalf("ListPaths failed: %v", err)
	}
	if len(paths) != 2 || paths[0] != "/user/bob/a" || paths[1] != "/user/bob/z" {
		t.Errorf("paths = %v", paths)
	}
}

func TestDeleteRunCascades(t *testing.T) {
	repo := newTestStore(t)
	ctx := context.Background()
	run := sampleRun(time.Unix(1_700_000_000, 0))
	if err := repo.SaveRun(ctx, run, sampleSessions(run.RunID), []string{"/a"}); err != nil {
		t.Fatalf("SaveRun failed: %v", err)
	}

	deleted, err := repo.DeleteRun(ctx, run.RunID)
	if err != nil || !deleted {
		t.Fatalf("DeleteRun = %v, %v", deleted, err)
	}

	sessions, err := repo.ListSessions(ctx, run.RunID, 0, 0)
	if err != nil {
		t.Fatalf("ListSessions failed: %v", err)
	}
	if len(sessions) != 0 {
		t.Errorf("sessions survived delete: %d", len(sessions))
	}
	paths, err := repo.ListPaths(ctx, run.RunID)
	if err != nil {
		t.Fatalf("ListPaths failed: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("paths survived delete: %v", paths)
	}

	deleted, err = repo.DeleteRun(ctx, run.RunID)
	if err != nil || deleted {
		t.Errorf("second DeleteRun = %v, %v", deleted, err)
	}
}

func TestPing(t *testing.T) {
	repo := newTestStore(t)
	if err := repo.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}
