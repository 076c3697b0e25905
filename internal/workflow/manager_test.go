package workflow_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"shoebox/internal/jobs"
	"shoebox/internal/rules"
	"shoebox/internal/testsupport"
	"shoebox/internal/workflow"
)

func waitForState(t *testing.T, store *jobs.Store, id string, want jobs.State) *jobs.Job {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job, err := store.Get(context.Background(), id)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if job != nil && job.State == want {
			return job
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("job %s never reached %s", id, want)
	return nil
}

func TestManagerDrainsQueuedJobs(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	source := testsupport.WriteMediaTree(t, "a.jpg", "b.jpg")

	first := testsupport.NewJob(t, store, &jobs.Job{
		ID:         uuid.NewString(),
		Kind:       jobs.KindPreview,
		SourceRoot: source,
		Rules:      rules.Empty(),
	})
	second := testsupport.NewJob(t, store, &jobs.Job{
		ID:         uuid.NewString(),
		Kind:       jobs.KindPreview,
		SourceRoot: source,
		Rules:      rules.Empty(),
	})

	manager := workflow.NewManager(cfg, store, nil)
	manager.Start(context.Background())
	defer manager.Stop()

	for _, job := range []*jobs.Job{first, second} {
		done := waitForState(t, store, job.ID, jobs.StateDone)
		if done.Preview == nil {
			t.Errorf("job %s finished without a preview", job.ID)
		}
	}
}

func TestManagerRunsWithMultipleWorkers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWorkers(2))
	store := testsupport.MustOpenStore(t, cfg)
	source := testsupport.WriteMediaTree(t, "a.jpg")

	var ids []string
	for i := 0; i < 4; i++ {
		job := testsupport.NewJob(t, store, &jobs.Job{
			ID:         uuid.NewString(),
			Kind:       jobs.KindPreview,
			SourceRoot: source,
			Rules:      rules.Empty(),
		})
		ids = append(ids, job.ID)
	}

	manager := workflow.NewManager(cfg, store, nil)
	manager.Start(context.Background())
	defer manager.Stop()

	for _, id := range ids {
		waitForState(t, store, id, jobs.StateDone)
	}
}

func TestManagerStopIsIdempotent(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	manager := workflow.NewManager(cfg, store, nil)
	manager.Start(context.Background())
	manager.Stop()
	manager.Stop()

	// Start after Stop spins up a fresh pool.
	manager.Start(context.Background())
	manager.Stop()
}
