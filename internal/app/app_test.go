package app

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/alanyoungcy/marketwire/internal/config"
	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/edition"
	"github.com/alanyoungcy/marketwire/internal/notify"
	"github.com/alanyoungcy/marketwire/internal/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testApp(mode string) *App {
	cfg := config.Defaults()
	cfg.Mode = mode
	return New(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func wiredDeps(a *App) *Dependencies {
	off := disabledFeed{source: domain.SourceKalshi}
	return &Dependencies{
		Reconciler: reconcile.New(off, off, nil, nil, reconcile.Config{}, a.logger),
		Editions:   edition.New(edition.Deps{}, edition.Config{}, a.logger),
		Notifier:   notify.NewNotifier(nil, nil, a.logger),
	}
}

func TestSchedulerPerMode(t *testing.T) {
	for _, mode := range []string{"ingest", "edition", "full", "FULL"} {
		t.Run(mode, func(t *testing.T) {
			a := testApp(mode)
			sched, err := a.scheduler(wiredDeps(a))
			require.NoError(t, err)
			assert.NotNil(t, sched)
		})
	}
}

func TestSchedulerRejectsMissingJobs(t *testing.T) {
	a := testApp("full")
	deps := wiredDeps(a)
	deps.Editions = nil
	_, err := a.scheduler(deps)
	assert.ErrorContains(t, err, "edition orchestrator not wired")

	a = testApp("ingest")
	deps = wiredDeps(a)
	deps.Reconciler = nil
	_, err = a.scheduler(deps)
	assert.ErrorContains(t, err, "reconciler not wired")

	a = testApp("trade")
	_, err = a.scheduler(wiredDeps(a))
	assert.ErrorContains(t, err, "unsupported mode")
}

func TestDisabledFeedIsEmpty(t *testing.T) {
	f := disabledFeed{source: domain.SourceKalshi}
	got, err := f.Fetch(context.Background(), 100)
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, domain.SourceKalshi, f.Source())
}

func TestCloseRunsClosersInReverse(t *testing.T) {
	a := testApp("full")
	var order []int
	a.closers = append(a.closers, func() { order = append(order, 1) }, func() { order = append(order, 2) })
	a.Close()
	a.Close()
	assert.Equal(t, []int{2, 1}, order)
}
