package services_test

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"testing"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge-backend/internal/pkg/dbctx"
	apperrors "github.com/clipforge/clipforge-backend/internal/pkg/errors"
	"github.com/clipforge/clipforge-backend/internal/repos"
	"github.com/clipforge/clipforge-backend/internal/repos/testutil"
	"github.com/clipforge/clipforge-backend/internal/services"
	"github.com/clipforge/clipforge-backend/internal/types"
)

const testThreshold = 6.0

func newBatchService(t *testing.T) (services.BatchService, repos.JobRepo) {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	jobRepo := repos.NewJobRepo(db, log)
	batchRepo := repos.NewBatchRepo(db, log)
	jobSvc := services.NewJobService(log, jobRepo, types.DefaultPresets(), nil)
	return services.NewBatchService(log, db, batchRepo, jobRepo, jobSvc, nil, testThreshold), jobRepo
}

func batchRequests(n int) []services.CreateJobRequest {
	reqs := make([]services.CreateJobRequest, n)
	for i := range reqs {
		reqs[i] = services.CreateJobRequest{
			SourceRef: "https://www.tiktok.com/@u/video/1",
			Options:   types.JobOptions{TargetPlatform: "youtube", Duration: 30},
		}
	}
	return reqs
}

func TestBatchCreateIsAtomic(t *testing.T) {
	svc, repo := newBatchService(t)
	ctx := context.Background()

	reqs := batchRequests(3)
	reqs[2].Options.Duration = -1 // invalid child

	if _, err := svc.Create(ctx, reqs); !stderrors.Is(err, apperrors.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
	// Nothing from the failed batch may survive.
	jobs, total, err := repo.List(dbctx.Context{Ctx: ctx}, repos.JobListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 0 || len(jobs) != 0 {
		t.Fatalf("found %d jobs after failed batch create, want 0", total)
	}
}

func TestBatchCreateAppliesSharedDefaults(t *testing.T) {
	svc, repo := newBatchService(t)
	ctx := context.Background()

	// A batch of bare source refs gets the default options per child.
	reqs := []services.CreateJobRequest{
		{SourceRef: "https://www.youtube.com/watch?v=a"},
		{SourceRef: "https://www.youtube.com/watch?v=b"},
	}
	view, err := svc.Create(ctx, reqs)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Counts.Total != 2 {
		t.Fatalf("total = %d, want 2", view.Counts.Total)
	}
	jobs, _, err := repo.List(dbctx.Context{Ctx: ctx}, repos.JobListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	for _, job := range jobs {
		opts, err := job.DecodeOptions()
		if err != nil {
			t.Fatalf("decode options: %v", err)
		}
		if opts.Duration != 60 {
			t.Fatalf("child duration = %d, want default 60", opts.Duration)
		}
		if opts.VideoType != "short" || opts.Flow != types.FlowAuto {
			t.Fatalf("child defaults not applied: %+v", opts)
		}
	}
}

func TestBatchCreateRejectsEmpty(t *testing.T) {
	svc, _ := newBatchService(t)
	if _, err := svc.Create(context.Background(), nil); !stderrors.Is(err, apperrors.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}
}

func TestBatchChildrenHeldUntilStart(t *testing.T) {
	svc, repo := newBatchService(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	view, err := svc.Create(ctx, batchRequests(2))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if view.Status != types.BatchStatusCreated {
		t.Fatalf("status = %s, want created", view.Status)
	}

	// Before Start nothing is claimable.
	if claimed, _ := repo.ClaimNextRunnable(dbc); claimed != nil {
		t.Fatalf("job %s claimable before batch start", claimed.ID)
	}

	started, err := svc.Start(ctx, view.ID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.Status != types.BatchStatusRunning {
		t.Fatalf("status = %s, want running", started.Status)
	}
	claimed, err := repo.ClaimNextRunnable(dbc)
	if err != nil || claimed == nil {
		t.Fatalf("claim after start = (%v, %v), want a job", claimed, err)
	}

	// Start again: idempotent, no error, still running.
	again, err := svc.Start(ctx, view.ID)
	if err != nil {
		t.Fatalf("second start: %v", err)
	}
	if again.Status != types.BatchStatusRunning {
		t.Fatalf("status after second start = %s", again.Status)
	}
}

func TestBatchStatusAggregates(t *testing.T) {
	svc, repo := newBatchService(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	view, err := svc.Create(ctx, batchRequests(4))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Start(ctx, view.ID); err != nil {
		t.Fatalf("start: %v", err)
	}

	ids := view.JobIDs
	highScore, _ := json.Marshal(map[string]any{"score": 8.5})
	lowScore, _ := json.Marshal(map[string]any{"score": 3.0})

	set := func(id uuid.UUID, updates map[string]interface{}) {
		t.Helper()
		if err := repo.UpdateFields(dbc, id, updates); err != nil {
			t.Fatalf("update %s: %v", id, err)
		}
	}
	set(ids[0], map[string]interface{}{"status": types.JobStatusCompleted, "progress": 100, "analysis": highScore})
	set(ids[1], map[string]interface{}{"status": types.JobStatusProcessing, "progress": 60, "analysis": lowScore})
	set(ids[2], map[string]interface{}{"status": types.JobStatusFailed, "error_message": "boom"})
	// ids[3] stays pending

	got, err := svc.Status(ctx, view.ID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	c := got.Counts
	if c.Total != 4 || c.Processed != 1 || c.Analyzed != 1 || c.Failed != 1 || c.Pending != 1 {
		t.Fatalf("counts = %+v", c)
	}
	if c.Recommended != 1 {
		t.Fatalf("recommended = %d, want 1 (threshold %.1f)", c.Recommended, testThreshold)
	}
	if got.Status != types.BatchStatusRunning {
		t.Fatalf("status = %s, want running with live children", got.Status)
	}

	// Counts always sum to the child total.
	if c.Pending+c.Analyzed+c.Processed+c.Failed+c.Cancelled != c.Total {
		t.Fatalf("count buckets do not sum to total: %+v", c)
	}
}

func TestBatchTerminalStatus(t *testing.T) {
	cases := []struct {
		name     string
		statuses []types.JobStatus
		want     types.BatchStatus
	}{
		{"all failed", []types.JobStatus{types.JobStatusFailed, types.JobStatusFailed}, types.BatchStatusFailed},
		{"any cancelled", []types.JobStatus{types.JobStatusCompleted, types.JobStatusCancelled}, types.BatchStatusCancelled},
		{"mixed outcome", []types.JobStatus{types.JobStatusCompleted, types.JobStatusFailed}, types.BatchStatusCompleted},
		{"all completed", []types.JobStatus{types.JobStatusCompleted, types.JobStatusCompleted}, types.BatchStatusCompleted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, repo := newBatchService(t)
			ctx := context.Background()
			dbc := dbctx.Context{Ctx: ctx}

			view, err := svc.Create(ctx, batchRequests(len(tc.statuses)))
			if err != nil {
				t.Fatalf("create: %v", err)
			}
			if _, err := svc.Start(ctx, view.ID); err != nil {
				t.Fatalf("start: %v", err)
			}
			for i, status := range tc.statuses {
				if err := repo.UpdateFields(dbc, view.JobIDs[i], map[string]interface{}{"status": status}); err != nil {
					t.Fatalf("update: %v", err)
				}
			}
			got, err := svc.Status(ctx, view.ID)
			if err != nil {
				t.Fatalf("status: %v", err)
			}
			if got.Status != tc.want {
				t.Fatalf("status = %s, want %s", got.Status, tc.want)
			}
		})
	}
}

func TestBatchCancelNeverAbortsSiblings(t *testing.T) {
	svc, repo := newBatchService(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	view, err := svc.Create(ctx, batchRequests(3))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Start(ctx, view.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	// One child already finished; cancelling the batch must leave it be.
	if err := repo.UpdateFields(dbc, view.JobIDs[0], map[string]interface{}{
		"status":     types.JobStatusCompleted,
		"output_ref": "/out/a.mp4",
	}); err != nil {
		t.Fatalf("complete child: %v", err)
	}

	got, err := svc.Cancel(ctx, view.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Counts.Processed != 1 {
		t.Fatalf("completed child touched by batch cancel: %+v", got.Counts)
	}
	if got.Counts.Cancelled != 2 {
		t.Fatalf("cancelled = %d, want 2", got.Counts.Cancelled)
	}
	if got.Status != types.BatchStatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
}

func TestBatchStatusMissingBatch(t *testing.T) {
	svc, _ := newBatchService(t)
	if _, err := svc.Status(context.Background(), uuid.New()); !stderrors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}
