package jobs_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"

	"shoebox/internal/jobs"
	"shoebox/internal/rules"
	"shoebox/internal/testsupport"
)

func newQueuedJob(t *testing.T, store *jobs.Store, kind jobs.Kind) *jobs.Job {
	t.Helper()
	job := &jobs.Job{
		ID:         uuid.NewString(),
		Kind:       kind,
		SourceRoot: "/photos/src",
		DestRoot:   "/photos/dst",
		Rules:      rules.Empty(),
	}
	return testsupport.NewJob(t, store, job)
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	set, err := rules.Parse([]byte("location_aliases:\n  nyc: NewYork\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	created := &jobs.Job{
		ID:         uuid.NewString(),
		Kind:       jobs.KindCopy,
		SourceRoot: "/photos/src",
		DestRoot:   "/photos/dst",
		Rules:      set,
	}
	if err := store.Create(ctx, created); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := store.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for existing job")
	}
	if got.State != jobs.StateQueued {
		t.Errorf("state = %s, want queued", got.State)
	}
	if got.Kind != jobs.KindCopy {
		t.Errorf("kind = %s", got.Kind)
	}
	if got.Rules == nil || got.Rules.Alias("nyc") != "NewYork" {
		t.Error("rules snapshot did not survive the round trip")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("timestamps not recorded")
	}
}

func TestGetUnknownIDReturnsNil(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	job, err := store.Get(context.Background(), "no-such-id")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job != nil {
		t.Fatal("expected nil for unknown id")
	}
}

func TestClaimNextMovesOldestQueuedToRunning(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	first := newQueuedJob(t, store, jobs.KindPreview)
	newQueuedJob(t, store, jobs.KindCopy)

	claimed, err := store.ClaimNext(ctx)
	if err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}
	if claimed == nil {
		t.Fatal("ClaimNext returned nil with queued jobs present")
	}
	if claimed.ID != first.ID {
		t.Errorf("claimed %s, want oldest %s", claimed.ID, first.ID)
	}
	if claimed.State != jobs.StateRunning {
		t.Errorf("state = %s, want running", claimed.State)
	}
	if claimed.StartedAt == nil {
		t.Error("started_at not set on claim")
	}

	// Second claim picks the remaining job, third finds the queue empty.
	if second, err := store.ClaimNext(ctx); err != nil || second == nil {
		t.Fatalf("second ClaimNext = (%v, %v)", second, err)
	}
	if third, err := store.ClaimNext(ctx); err != nil || third != nil {
		t.Fatalf("third ClaimNext = (%v, %v), want empty queue", third, err)
	}
}

func TestUpdatePersistsProgressAndResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newQueuedJob(t, store, jobs.KindPreview)
	job, err := store.ClaimNext(ctx)
	if err != nil || job == nil {
		t.Fatalf("ClaimNext: (%v, %v)", job, err)
	}

	job.Progress = jobs.Progress{Processed: 3, Total: 10}
	job.Preview = &jobs.PreviewResult{Groups: []jobs.GroupSummary{
		{Folder: "2022/07/Paris", FileCount: 3, TotalBytes: 999, SampleFiles: []string{"a.jpg"}},
	}}
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err := store.Get(ctx, job.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Progress.Processed != 3 || got.Progress.Total != 10 {
		t.Errorf("progress = %+v", got.Progress)
	}
	if got.Preview == nil || len(got.Preview.Groups) != 1 || got.Preview.Groups[0].Folder != "2022/07/Paris" {
		t.Errorf("preview = %+v", got.Preview)
	}
}

func TestTerminalJobsAreImmutable(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newQueuedJob(t, store, jobs.KindCopy)
	job, _ := store.ClaimNext(ctx)

	job.State = jobs.StateDone
	job.Progress = jobs.Progress{Processed: 5, Total: 5}
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("finishing Update: %v", err)
	}

	// A later write against the terminal row must be a no-op.
	job.Progress.Processed = 99
	job.State = jobs.StateRunning
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("post-terminal Update: %v", err)
	}

	got, _ := store.Get(ctx, job.ID)
	if got.State != jobs.StateDone {
		t.Errorf("state = %s, want done", got.State)
	}
	if got.Progress.Processed != 5 {
		t.Errorf("processed = %d, want 5", got.Progress.Processed)
	}
}

func TestRequestCancelQueuedJobCancelsImmediately(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	job := newQueuedJob(t, store, jobs.KindPreview)
	ok, err := store.RequestCancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if !ok {
		t.Fatal("cancel of queued job reported no effect")
	}

	got, _ := store.Get(ctx, job.ID)
	if got.State != jobs.StateCancelled {
		t.Errorf("state = %s, want cancelled", got.State)
	}
	if got.FinishedAt == nil {
		t.Error("finished_at not set")
	}
}

func TestRequestCancelRunningJobSetsFlag(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newQueuedJob(t, store, jobs.KindCopy)
	job, _ := store.ClaimNext(ctx)

	ok, err := store.RequestCancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if !ok {
		t.Fatal("cancel of running job reported no effect")
	}

	flagged, err := store.CancelRequested(ctx, job.ID)
	if err != nil {
		t.Fatalf("CancelRequested: %v", err)
	}
	if !flagged {
		t.Fatal("cancel flag not visible")
	}
	got, _ := store.Get(ctx, job.ID)
	if got.State != jobs.StateRunning {
		t.Errorf("state = %s, running job must transition only via its worker", got.State)
	}
}

func TestRequestCancelTerminalJobIsNoOp(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newQueuedJob(t, store, jobs.KindCopy)
	job, _ := store.ClaimNext(ctx)
	job.State = jobs.StateDone
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	ok, err := store.RequestCancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if ok {
		t.Fatal("cancel of terminal job reported effect")
	}
	got, _ := store.Get(ctx, job.ID)
	if got.State != jobs.StateDone {
		t.Errorf("state = %s, want done", got.State)
	}
}

func TestListFiltersByState(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newQueuedJob(t, store, jobs.KindPreview)
	newQueuedJob(t, store, jobs.KindCopy)
	if _, err := store.ClaimNext(ctx); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	queued, err := store.List(ctx, jobs.StateQueued)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(queued) != 1 {
		t.Errorf("queued = %d, want 1", len(queued))
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("all = %d, want 2", len(all))
	}
}

func TestStatsAndClearTerminal(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newQueuedJob(t, store, jobs.KindPreview)
	newQueuedJob(t, store, jobs.KindCopy)
	job, _ := store.ClaimNext(ctx)
	job.State = jobs.StateDone
	if err := store.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats[jobs.StateQueued] != 1 || stats[jobs.StateDone] != 1 {
		t.Errorf("stats = %v", stats)
	}

	removed, err := store.ClearTerminal(ctx)
	if err != nil {
		t.Fatalf("ClearTerminal: %v", err)
	}
	if removed != 1 {
		t.Errorf("removed = %d, want 1", removed)
	}
	remaining, _ := store.List(ctx)
	if len(remaining) != 1 {
		t.Errorf("remaining = %d, want 1", len(remaining))
	}
}

func TestStateTerminalClassification(t *testing.T) {
	terminal := []jobs.State{jobs.StateDone, jobs.StateFailed, jobs.StateCancelled}
	for _, state := range terminal {
		if !state.IsTerminal() {
			t.Errorf("%s should be terminal", state)
		}
	}
	for _, state := range []jobs.State{jobs.StateQueued, jobs.StateRunning} {
		if state.IsTerminal() {
			t.Errorf("%s should not be terminal", state)
		}
	}
}

func TestRequestCancelSucceedsUnderConcurrentWrites(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	newQueuedJob(t, store, jobs.KindPreview)
	worker, err := store.ClaimNext(ctx)
	if err != nil || worker == nil {
		t.Fatalf("ClaimNext: (%v, %v)", worker, err)
	}
	target := newQueuedJob(t, store, jobs.KindCopy)

	// A per-file progress loop keeps the database write-hot while the cancel
	// lands; the cancel must not bounce off a busy connection.
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-done:
				return
			default:
			}
			worker.Progress.Processed++
			if err := store.Update(ctx, worker); err != nil {
				t.Errorf("Update: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 20; i++ {
		id := uuid.NewString()
		if err := store.Create(ctx, &jobs.Job{ID: id, Kind: jobs.KindPreview, SourceRoot: "/photos/src", Rules: rules.Empty()}); err != nil {
			t.Fatalf("Create: %v", err)
		}
	}

	cancelled, err := store.RequestCancel(ctx, target.ID)
	close(done)
	wg.Wait()
	if err != nil {
		t.Fatalf("RequestCancel: %v", err)
	}
	if !cancelled {
		t.Fatal("queued job not cancelled")
	}

	got, err := store.Get(ctx, target.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.State != jobs.StateCancelled {
		t.Errorf("state = %s, want cancelled", got.State)
	}
}
