package jobs

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/clipforge/clipforge-backend/internal/pkg/dbctx"
	"github.com/clipforge/clipforge-backend/internal/pkg/logger"
	"github.com/clipforge/clipforge-backend/internal/repos"
)

// Pool claims runnable jobs on a ticker and executes them on a bounded
// set of goroutines. The claim query is atomic, so multiple replicas
// can run pools against the same table.
type Pool struct {
	log        *logger.Logger
	jobs       repos.JobRepo
	exec       *Executor
	size       int64
	sem        *semaphore.Weighted
	interval   time.Duration
	hbInterval time.Duration
}

func NewPool(log *logger.Logger, jobRepo repos.JobRepo, exec *Executor, size int) *Pool {
	if size < 1 {
		size = 3
	}
	return &Pool{
		log:        log.With("component", "JobPool"),
		jobs:       jobRepo,
		exec:       exec,
		size:       int64(size),
		sem:        semaphore.NewWeighted(int64(size)),
		interval:   time.Second,
		hbInterval: 15 * time.Second,
	}
}

// Start launches the claim loop. It returns immediately; the loop stops
// when ctx is cancelled.
func (p *Pool) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.claimAvailable(ctx)
			}
		}
	}()
}

// claimAvailable claims as many runnable jobs as free worker slots
// allow, then returns to the ticker.
func (p *Pool) claimAvailable(ctx context.Context) {
	for p.sem.TryAcquire(1) {
		job, err := p.jobs.ClaimNextRunnable(dbctx.Context{Ctx: ctx})
		if err != nil {
			p.sem.Release(1)
			p.log.Warn("claim failed", "error", err)
			return
		}
		if job == nil {
			p.sem.Release(1)
			return
		}
		p.log.Info("job claimed", "jobID", job.ID, "platform", job.SourcePlatform)
		go func() {
			defer p.sem.Release(1)
			hbCtx, stopHB := context.WithCancel(ctx)
			defer stopHB()
			go p.heartbeat(hbCtx, job.ID)
			p.exec.Execute(ctx, job)
		}()
	}
}

// heartbeat refreshes heartbeat_at while a job executes, so a row whose
// worker died can be told apart from one that is still running.
func (p *Pool) heartbeat(ctx context.Context, id uuid.UUID) {
	ticker := time.NewTicker(p.hbInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.jobs.Heartbeat(dbctx.Context{Ctx: ctx}, id); err != nil {
				p.log.Warn("heartbeat failed", "jobID", id, "error", err)
			}
		}
	}
}

// Drain blocks until all in-flight jobs finish or ctx expires. New
// claims stop once the Start context is cancelled.
func (p *Pool) Drain(ctx context.Context) error {
	if err := p.sem.Acquire(ctx, p.size); err != nil {
		return err
	}
	p.sem.Release(p.size)
	return nil
}
