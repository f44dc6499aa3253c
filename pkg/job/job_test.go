package job_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/invoicesnap/invoicesnap/pkg/job"
)

func TestScheduler_RunsImmediatelyAndOnTicks(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64

	s := job.NewScheduler().
		Register("counter", 10*time.Millisecond, func(ctx context.Context) error {
			runs.Add(1)
			return nil
		})

	s.Start(ctx)

	require.Eventually(t, func() bool {
		return runs.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	s.Stop()
}

func TestScheduler_TryRegisterDisabled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())

	var runs atomic.Int64

	s := job.NewScheduler().
		TryRegister(false, "disabled", time.Millisecond, func(ctx context.Context) error {
			runs.Add(1)
			return nil
		})

	s.Start(ctx)

	time.Sleep(50 * time.Millisecond)

	cancel()
	s.Stop()

	require.Zero(t, runs.Load())
}

func TestScheduler_RecoversFromPanicAndError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int64

	s := job.NewScheduler().
		Register("flaky", 10*time.Millisecond, func(ctx context.Context) error {
			switch runs.Add(1) {
			case 1:
				panic("boom")
			case 2:
				return errors.New("transient")
			}

			return nil
		})

	s.Start(ctx)

	// The job keeps running after a panic and after an error.
	require.Eventually(t, func() bool {
		return runs.Load() >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	s.Stop()
}
