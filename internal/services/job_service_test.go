package services_test

import (
	"context"
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

func newJobService(t *testing.T) (services.JobService, repos.JobRepo) {
	t.Helper()
	log := testutil.Logger(t)
	db := testutil.DB(t)
	repo := repos.NewJobRepo(db, log)
	svc := services.NewJobService(log, repo, types.DefaultPresets(), nil)
	return svc, repo
}

func validRequest() services.CreateJobRequest {
	return services.CreateJobRequest{
		Title:     "goal compilation",
		SourceRef: "https://www.youtube.com/watch?v=abc",
		Options: types.JobOptions{
			TargetPlatform: "tiktok",
			Duration:       30,
			Flow:           types.FlowAuto,
		},
	}
}

func TestCreatePersistsPendingJob(t *testing.T) {
	svc, _ := newJobService(t)
	job, err := svc.Create(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if job.Status != types.JobStatusPending {
		t.Fatalf("status = %s, want pending", job.Status)
	}
	if job.SourcePlatform != "youtube" {
		t.Fatalf("source platform = %q, want youtube", job.SourcePlatform)
	}
	opts, err := job.DecodeOptions()
	if err != nil {
		t.Fatalf("decode options: %v", err)
	}
	// The auto flow preset must be expanded before persisting.
	if !opts.Toggles.Subtitles || !opts.Toggles.RemoveWatermark {
		t.Fatalf("auto preset not applied: %+v", opts.Toggles)
	}
}

func TestCreateRejectsInvalidOptions(t *testing.T) {
	svc, _ := newJobService(t)
	bad := validRequest()
	bad.Options.Duration = -5
	if _, err := svc.Create(context.Background(), bad); !stderrors.Is(err, apperrors.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions", err)
	}

	bad = validRequest()
	bad.SourceRef = ""
	if _, err := svc.Create(context.Background(), bad); !stderrors.Is(err, apperrors.ErrInvalidOptions) {
		t.Fatalf("err = %v, want ErrInvalidOptions for missing source", err)
	}
}

func TestGetMissingJobIsNotFound(t *testing.T) {
	svc, _ := newJobService(t)
	if _, err := svc.Get(context.Background(), uuid.New()); !stderrors.Is(err, apperrors.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRetryOnlyFromFailed(t *testing.T) {
	svc, repo := newJobService(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}

	job, err := svc.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Pending jobs cannot be retried.
	if _, err := svc.Retry(ctx, job.ID); !stderrors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("retry pending: err = %v, want ErrInvalidState", err)
	}

	if err := repo.UpdateFields(dbc, job.ID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"error_message": "download blew up",
		"progress":      17,
	}); err != nil {
		t.Fatalf("fail job: %v", err)
	}

	retried, err := svc.Retry(ctx, job.ID)
	if err != nil {
		t.Fatalf("retry failed job: %v", err)
	}
	if retried.Status != types.JobStatusPending {
		t.Fatalf("status = %s, want pending", retried.Status)
	}
	if retried.ErrorMessage != "" {
		t.Fatalf("error not cleared: %q", retried.ErrorMessage)
	}
	if retried.Progress != 0 {
		t.Fatalf("progress = %d, want 0", retried.Progress)
	}
	if retried.RetryCount != 1 {
		t.Fatalf("retry_count = %d, want 1", retried.RetryCount)
	}
}

func TestRetryCompletedJobRejected(t *testing.T) {
	svc, repo := newJobService(t)
	ctx := context.Background()
	job, err := svc.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdateFields(dbctx.Context{Ctx: ctx}, job.ID, map[string]interface{}{
		"status": types.JobStatusCompleted,
	}); err != nil {
		t.Fatalf("complete job: %v", err)
	}
	if _, err := svc.Retry(ctx, job.ID); !stderrors.Is(err, apperrors.ErrInvalidState) {
		t.Fatalf("err = %v, want ErrInvalidState", err)
	}
}

func TestCancelPendingJobDirectly(t *testing.T) {
	svc, _ := newJobService(t)
	ctx := context.Background()
	job, err := svc.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	got, err := svc.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != types.JobStatusCancelled {
		t.Fatalf("status = %s, want cancelled", got.Status)
	}
	if got.CompletedAt == nil {
		t.Fatal("completed_at not set on cancellation")
	}
}

func TestCancelRunningJobSetsFlag(t *testing.T) {
	svc, repo := newJobService(t)
	ctx := context.Background()
	job, err := svc.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdateFields(dbctx.Context{Ctx: ctx}, job.ID, map[string]interface{}{
		"status": types.JobStatusProcessing,
	}); err != nil {
		t.Fatalf("advance job: %v", err)
	}

	got, err := svc.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	// A running job is not flipped synchronously; the executor observes
	// the flag at its next checkpoint.
	if got.Status != types.JobStatusProcessing {
		t.Fatalf("status = %s, want still processing", got.Status)
	}
	if !got.CancelRequested {
		t.Fatal("cancel_requested not set")
	}
}

func TestCancelTerminalJobIsNoOp(t *testing.T) {
	svc, repo := newJobService(t)
	ctx := context.Background()
	job, err := svc.Create(ctx, validRequest())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.UpdateFields(dbctx.Context{Ctx: ctx}, job.ID, map[string]interface{}{
		"status":     types.JobStatusCompleted,
		"output_ref": "/out/final.mp4",
	}); err != nil {
		t.Fatalf("complete job: %v", err)
	}

	got, err := svc.Cancel(ctx, job.ID)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != types.JobStatusCompleted || got.OutputRef != "/out/final.mp4" {
		t.Fatalf("terminal job mutated by cancel: %+v", got)
	}
}
