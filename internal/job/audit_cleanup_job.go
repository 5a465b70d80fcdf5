package job

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

// AuditCleanupJob drops anonymous chat audit rows past retention. Audit
// rows carry millisecond timestamps.
type AuditCleanupJob struct {
	repo       Pruner
	maxAgeDays int
	now        func() time.Time
}

func NewAuditCleanupJob(repo Pruner, maxAgeDays int) *AuditCleanupJob {
	return &AuditCleanupJob{repo: repo, maxAgeDays: maxAgeDays, now: time.Now}
}

func (j *AuditCleanupJob) Name() string {
	return "chat_audit_cleanup"
}

func (j *AuditCleanupJob) Run(ctx context.Context) error {
	if j.repo == nil {
		return nil
	}
	cutoff := j.now().Add(-retention(j.maxAgeDays, 90)).UnixMilli()
	n, err := j.repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	logutil.GetLogger(ctx).Info("chat audit pruned", zap.Int64("rows", n))
	return nil
}
