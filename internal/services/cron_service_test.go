package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPurger struct {
	calls int
	err   error
}

func (p *countingPurger) Purge(ctx context.Context) (int64, error) {
	p.calls++
	return 3, p.err
}

type countingExpirer struct{ calls int }

func (e *countingExpirer) ExpireIdle() int {
	e.calls++
	return 1
}

func TestCronService_StartSchedulesJobs(t *testing.T) {
	svc := NewCronService(&countingPurger{}, &countingExpirer{}, "0 0 3 * * *", quietLogger())
	require.NoError(t, svc.Start())
	defer svc.Stop()

	status := svc.JobStatus()
	assert.Equal(t, 2, status["job_count"])
	assert.Equal(t, true, status["running"])
}

func TestCronService_InvalidSchedule(t *testing.T) {
	svc := NewCronService(&countingPurger{}, &countingExpirer{}, "every night", quietLogger())
	assert.Error(t, svc.Start())
}

func TestCronService_Jobs(t *testing.T) {
	purger := &countingPurger{}
	expirer := &countingExpirer{}
	svc := NewCronService(purger, expirer, "0 0 3 * * *", quietLogger())

	svc.RunPurgeNow()
	svc.expireWizardsJob()
	assert.Equal(t, 1, purger.calls)
	assert.Equal(t, 1, expirer.calls)

	purger.err = errors.New("db down")
	svc.RunPurgeNow()
	assert.Equal(t, 2, purger.calls)
}
