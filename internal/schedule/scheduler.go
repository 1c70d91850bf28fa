// internal/schedule/scheduler.go
package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
)

// Job is a unit of periodic work.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	Start(ctx context.Context)
	Stop()
}

// CronScheduler runs jobs on standard five-field cron specs (or @every
// descriptors). A job whose previous run is still going is skipped.
type CronScheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	entries map[string]cron.EntryID
	ctx     context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &CronScheduler{
		cron:    cron.New(cron.WithParser(parser)),
		entries: make(map[string]cron.EntryID),
		ctx:     context.Background(),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := zap.L().With(zap.String("job", name), zap.String("spec", spec))

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[name]; ok {
		return fmt.Errorf("job %q already scheduled", name)
	}
	entryID, err := c.cron.AddFunc(spec, c.wrap(job, spec))
	if err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return fmt.Errorf("invalid schedule %q for job %s: %w", spec, name, err)
	}
	c.entries[name] = entryID
	logger.Info("job scheduled")
	return nil
}

// Start begins dispatching. Jobs run with ctx, so cancelling it cancels any
// in-flight run.
func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.cron.Start()
}

// Stop waits for running jobs to return.
func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

// Next reports when the named job fires next.
func (c *CronScheduler) Next(name string) (time.Time, bool) {
	c.mu.Lock()
	id, ok := c.entries[name]
	c.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return c.cron.Entry(id).Next, true
}

func (c *CronScheduler) wrap(job Job, spec string) func() {
	var running atomic.Bool
	return func() {
		if !running.CompareAndSwap(false, true) {
			zap.L().Info("job skipped: still running",
				zap.String("job", job.Name()),
				zap.String("spec", spec),
			)
			return
		}
		defer running.Store(false)

		c.mu.Lock()
		ctx := c.ctx
		c.mu.Unlock()

		logger := logging.FromContext(ctx).With(
			zap.String("job", job.Name()),
			zap.String("spec", spec),
		)
		ctx = logging.NewContext(ctx, logger)

		start := time.Now()
		logger.Info("job started")
		err := job.Run(ctx)
		elapsed := time.Since(start)
		if err != nil {
			logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
			return
		}
		logger.Info("job finished", zap.Duration("duration", elapsed))
	}
}

var _ Scheduler = (*CronScheduler)(nil)
