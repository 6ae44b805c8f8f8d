package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alanyoungcy/marketwire/internal/domain"
	"github.com/alanyoungcy/marketwire/internal/edition"
	"github.com/alanyoungcy/marketwire/internal/reconcile"
)

const (
	IngestJobName  = "ingest"
	EditionJobName = "edition"
)

type reconciler interface {
	Run(ctx context.Context) (reconcile.Result, error)
}

type editionRunner interface {
	Run(ctx context.Context) (edition.Result, error)
}

// IngestJob reconciles both venues into the market table.
func IngestJob(r reconciler, interval time.Duration, logger *slog.Logger) Job {
	logger = logger.With(slog.String("job", IngestJobName))
	return Job{
		Name:     IngestJobName,
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := r.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("markets reconciled",
				slog.Int("fetched_primary", res.FetchedPrimary),
				slog.Int("fetched_secondary", res.FetchedSecondary),
				slog.Int("merged", res.Merged),
				slog.Int("upserted", res.Upserted),
				slog.Int("snapshots", res.Snapshots),
				slog.Int64("total_markets", res.TotalMarkets),
			)
			return nil
		},
	}
}

// EditionJob publishes one edition per run. A run skipped because another
// process holds the lock is not a failure. A halted run notifies the
// operator.
func EditionJob(o editionRunner, n edition.Notifier, interval time.Duration, logger *slog.Logger) Job {
	logger = logger.With(slog.String("job", EditionJobName))
	return Job{
		Name:     EditionJobName,
		Interval: interval,
		Run: func(ctx context.Context) error {
			res, err := o.Run(ctx)
			if errors.Is(err, domain.ErrLockHeld) {
				logger.Info("edition skipped: another run holds the lock")
				return nil
			}
			if err != nil {
				return err
			}
			if res.Halted {
				logger.Warn("edition halted", slog.String("reason", strings.Join(res.Errors, "; ")))
				if n != nil {
					if nerr := n.Notify(ctx, "edition_halted", "Edition halted", strings.Join(res.Errors, "\n")); nerr != nil {
						logger.Warn("notify failed", slog.String("error", nerr.Error()))
					}
				}
				return nil
			}
			logger.Info("edition published",
				slog.String("edition_id", res.EditionID),
				slog.Int("volume", res.VolumeNumber),
				slog.Int("generated", res.Generated),
				slog.Int("failed", res.Failed),
			)
			for _, e := range res.Errors {
				logger.Warn("edition item error", slog.String("error", e))
			}
			return nil
		},
	}
}

// NotifyFailures turns job failures into operator notifications.
func NotifyFailures(n edition.Notifier, logger *slog.Logger) FailureHook {
	return func(ctx context.Context, job string, err error) {
		title := fmt.Sprintf("Job %s failed", job)
		if nerr := n.Notify(ctx, "job_failed", title, err.Error()); nerr != nil {
			logger.Warn("notify failed", slog.String("job", job), slog.String("error", nerr.Error()))
		}
	}
}
