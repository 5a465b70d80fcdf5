package schedule

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type countJob struct {
	name  string
	calls int
	err   error
}

func (j *countJob) Name() string { return j.name }

func (j *countJob) Run(ctx context.Context) error {
	j.calls++
	return j.err
}

func TestAddJobAndRunNow(t *testing.T) {
	s := NewCronScheduler()
	job := &countJob{name: "prune"}
	require.NoError(t, s.AddJob(job, "0 3 * * *"))
	require.Error(t, s.AddJob(job, "0 4 * * *"))

	require.NoError(t, s.RunNow(context.Background(), "prune"))
	require.Equal(t, 1, job.calls)
	require.Error(t, s.RunNow(context.Background(), "missing"))
}

func TestAddJobRejectsBadSpec(t *testing.T) {
	s := NewCronScheduler()
	require.Error(t, s.AddJob(&countJob{name: "x"}, "every day"))
}

func TestRunNowReturnsJobError(t *testing.T) {
	s := NewCronScheduler()
	require.NoError(t, s.AddJob(&countJob{name: "x", err: errors.New("db")}, "30 3 * * *"))
	require.EqualError(t, s.RunNow(context.Background(), "x"), "db")
}
