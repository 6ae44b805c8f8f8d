package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/edition"
	"github.com/alanyoungcy/marketwire/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []string
	titles []string
}

func (n *recordingNotifier) Notify(_ context.Context, event, title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	n.titles = append(n.titles, title)
	return nil
}

func TestRunOnceRunsJobsInOrder(t *testing.T) {
	var order []string
	job := func(name string, err error) Job {
		return Job{Name: name, Interval: time.Hour, Run: func(context.Context) error {
			order = append(order, name)
			return err
		}}
	}
	n := &recordingNotifier{}
	s := NewScheduler(discardLogger(), NotifyFailures(n, discardLogger()),
		job("ingest", errors.New("gamma 502")),
		job("edition", nil),
	)

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorContains(t, err, "ingest: gamma 502")
	assert.Equal(t, []string{"ingest", "edition"}, order)
	assert.Equal(t, []string{"job_failed"}, n.events)
	assert.Equal(t, []string{"Job ingest failed"}, n.titles)
}

func TestRunRepeatsUntilCancelled(t *testing.T) {
	var runs atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	s := NewScheduler(discardLogger(), nil, Job{
		Name:     "tick",
		Interval: 5 * time.Millisecond,
		Run: func(context.Context) error {
			if runs.Add(1) == 3 {
				cancel()
			}
			return errors.New("keeps failing")
		},
	})

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.GreaterOrEqual(t, runs.Load(), int32(3))
}

func TestRunRejectsBadJobs(t *testing.T) {
	assert.Error(t, NewScheduler(discardLogger(), nil).Run(context.Background()))
	err := NewScheduler(discardLogger(), nil, Job{Name: "x", Run: func(context.Context) error { return nil }}).Run(context.Background())
	assert.ErrorContains(t, err, "interval must be positive")
}

type stubReconciler struct {
	res reconcile.Result
	err error
}

func (s stubReconciler) Run(context.Context) (reconcile.Result, error) { return s.res, s.err }

type stubEdition struct {
	res edition.Result
	err error
}

func (s stubEdition) Run(context.Context) (edition.Result, error) { return s.res, s.err }

func TestIngestJob(t *testing.T) {
	ok := IngestJob(stubReconciler{res: reconcile.Result{Merged: 3}}, time.Minute, discardLogger())
	assert.Equal(t, IngestJobName, ok.Name)
	assert.NoError(t, ok.Run(context.Background()))

	failing := IngestJob(stubReconciler{err: errors.New("db down")}, time.Minute, discardLogger())
	assert.EqualError(t, failing.Run(context.Background()), "db down")
}

func TestEditionJobSkipsHeldLock(t *testing.T) {
	n := &recordingNotifier{}
	j := EditionJob(stubEdition{err: fmt.Errorf("edition: acquire run lock: %w", domain.ErrLockHeld)}, n, time.Hour, discardLogger())
	assert.NoError(t, j.Run(context.Background()))
	assert.Empty(t, n.events)
}

func TestEditionJobNotifiesHalt(t *testing.T) {
	n := &recordingNotifier{}
	j := EditionJob(stubEdition{res: edition.Result{Halted: true, Errors: []string{"insufficient funds: balance 1 USDC, minimum 5"}}}, n, time.Hour, discardLogger())
	assert.NoError(t, j.Run(context.Background()))
	assert.Equal(t, []string{"edition_halted"}, n.events)
}

func TestEditionJobPropagatesSetupFailure(t *testing.T) {
	j := EditionJob(stubEdition{err: errors.New("create edition: conflict")}, nil, time.Hour, discardLogger())
	assert.Error(t, j.Run(context.Background()))
}
