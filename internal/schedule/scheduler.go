package schedule

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type Scheduler interface {
	AddJob(job Job, spec string) error
	RunNow(ctx context.Context, name string) error
	Start(ctx context.Context)
	Stop()
}

type scheduledJob struct {
	job     Job
	spec    string
	running atomic.Bool
}

// CronScheduler runs jobs on five field cron specs. A job never overlaps
// with itself; a tick that finds it still running is skipped.
type CronScheduler struct {
	mu   sync.Mutex
	cron *cron.Cron
	jobs map[string]*scheduledJob
	ctx  context.Context
}

func NewCronScheduler() *CronScheduler {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	return &CronScheduler{
		cron: cron.New(cron.WithParser(parser)),
		jobs: make(map[string]*scheduledJob),
		ctx:  context.Background(),
	}
}

func (c *CronScheduler) AddJob(job Job, spec string) error {
	name := job.Name()
	logger := logutil.GetLogger(context.Background()).With(zap.String("job", name), zap.String("spec", spec))
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.jobs[name]; ok {
		return fmt.Errorf("job %s already scheduled", name)
	}
	item := &scheduledJob{job: job, spec: spec}
	if _, err := c.cron.AddFunc(spec, func() {
		c.mu.Lock()
		ctx := c.ctx
		c.mu.Unlock()
		_ = c.execute(ctx, item)
	}); err != nil {
		logger.Error("schedule job failed", zap.Error(err))
		return err
	}
	c.jobs[name] = item
	logger.Info("job scheduled")
	return nil
}

// RunNow runs a registered job immediately on the calling goroutine.
func (c *CronScheduler) RunNow(ctx context.Context, name string) error {
	c.mu.Lock()
	item, ok := c.jobs[name]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s not found", name)
	}
	return c.execute(ctx, item)
}

func (c *CronScheduler) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	c.mu.Lock()
	c.ctx = ctx
	c.mu.Unlock()
	c.cron.Start()
}

func (c *CronScheduler) Stop() {
	ctx := c.cron.Stop()
	<-ctx.Done()
}

func (c *CronScheduler) execute(ctx context.Context, item *scheduledJob) error {
	logger := logutil.GetLogger(ctx).With(
		zap.String("job", item.job.Name()),
		zap.String("spec", item.spec),
	)
	if !item.running.CompareAndSwap(false, true) {
		logger.Info("job skipped: still running")
		return nil
	}
	defer item.running.Store(false)

	start := time.Now()
	logger.Info("job started")
	err := item.job.Run(ctx)
	elapsed := time.Since(start)
	if err != nil {
		logger.Error("job finished", zap.Error(err), zap.Duration("duration", elapsed))
		return err
	}
	logger.Info("job finished", zap.Duration("duration", elapsed))
	return nil
}
