package app

import (
	"fmt"
	"strings"

	"github.com/alanyoungcy/marketwire/internal/pipeline"
)

// scheduler builds the job set for the configured mode: ingest runs the
// reconciler, edition runs the orchestrator, full runs both.
func (a *App) scheduler(deps *Dependencies) (*pipeline.Scheduler, error) {
	var jobs []pipeline.Job
	if a.cfg.RunsIngest() {
		if deps.Reconciler == nil {
			return nil, fmt.Errorf("app: mode %s: reconciler not wired", a.cfg.Mode)
		}
		jobs = append(jobs, pipeline.IngestJob(deps.Reconciler, a.cfg.Ingest.Interval.Duration, a.logger))
	}
	if a.cfg.RunsEdition() {
		if deps.Editions == nil {
			return nil, fmt.Errorf("app: mode %s: edition orchestrator not wired", a.cfg.Mode)
		}
		jobs = append(jobs, pipeline.EditionJob(deps.Editions, deps.Notifier, a.cfg.Edition.Interval.Duration, a.logger))
	}
	if len(jobs) == 0 {
		return nil, fmt.Errorf("app: unsupported mode %q", strings.ToLower(a.cfg.Mode))
	}

	var onFailure pipeline.FailureHook
	if deps.Notifier != nil && deps.Notifier.Enabled() {
		onFailure = pipeline.NotifyFailures(deps.Notifier, a.logger)
	}
	return pipeline.NewScheduler(a.logger, onFailure, jobs...), nil
}
