package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/clipforge/clipforge-backend/internal/repos"
	"github.com/clipforge/clipforge-backend/internal/repos/testutil"
)

func TestPoolHeartbeatRefreshesRow(t *testing.T) {
	log := testutil.Logger(t)
	db := testutil.DB(t)
	repo := repos.NewJobRepo(db, log)
	job := seedClaimedJob(t, repo)

	pool := NewPool(log, repo, nil, 1)
	pool.hbInterval = time.Millisecond

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	pool.heartbeat(ctx, job.ID)

	got := reload(t, repo, job.ID)
	if got.HeartbeatAt == nil {
		t.Fatal("heartbeat_at not refreshed while job was running")
	}
	if time.Since(*got.HeartbeatAt) > time.Minute {
		t.Fatalf("heartbeat_at stale: %v", got.HeartbeatAt)
	}
}
