// internal/extraction/poller.go
package extraction

import (
	"context"
	"time"

	"menuscan/internal/common/errors"
	"menuscan/internal/common/logger"
	"menuscan/internal/common/metrics"
)

// StatusFunc queries the current job snapshot once.
type StatusFunc func(ctx context.Context, handle JobHandle) (*Job, error)

// Observer receives the latest job snapshot after each poll tick. It is
// never invoked after Run returns or after the context is cancelled.
type Observer func(job Job)

// Poller drives a submitted job to a terminal state. Ticks are strictly
// sequential: the next tick is scheduled only after the previous request
// resolves, so a slow network never piles up concurrent status requests.
type Poller struct {
	status       StatusFunc
	interval     time.Duration
	maxTransport int
	logger       logger.Logger
}

type PollerOptions struct {
	// Interval between the resolution of one status request and the start
	// of the next. Defaults to 3 seconds.
	Interval time.Duration
	// MaxTransportRetries bounds consecutive transport failures before the
	// loop gives up with PollingExhausted. Defaults to 3.
	MaxTransportRetries int
}

func NewPoller(status StatusFunc, opts PollerOptions, log logger.Logger) *Poller {
	interval := opts.Interval
	if interval <= 0 {
		interval = 3 * time.Second
	}
	maxTransport := opts.MaxTransportRetries
	if maxTransport <= 0 {
		maxTransport = 3
	}
	return &Poller{
		status:       status,
		interval:     interval,
		maxTransport: maxTransport,
		logger:       log.WithFields(map[string]interface{}{"component": "extraction-poller"}),
	}
}

// Run polls the job until it completes, fails, or ctx is cancelled. Progress
// is forwarded through observe on every resolved tick, clamped so it never
// decreases. On completion the raw results are structurally validated and
// returned. Cancellation is deterministic: once ctx is done, no observe call
// and no further status request is made.
func (p *Poller) Run(ctx context.Context, handle JobHandle, observe Observer) ([]RawItem, error) {
	metrics.ExtractionJobsActive.Inc()
	defer metrics.ExtractionJobsActive.Dec()

	start := time.Now()
	log := p.logger.WithFields(map[string]interface{}{"jobId": handle.JobID})

	timer := time.NewTimer(0) // first tick fires immediately
	defer timer.Stop()

	consecutiveFailures := 0
	lastProgress := 0
	var lastErr error

	for {
		select {
		case <-ctx.Done():
			log.Info("polling cancelled", map[string]interface{}{
				"elapsed": time.Since(start).String(),
			})
			metrics.ExtractionPollTicks.WithLabelValues("cancelled").Inc()
			return nil, ctx.Err()
		case <-timer.C:
		}

		job, err := p.status(ctx, handle)
		if err != nil {
			// Cancellation during the in-flight request must not be
			// misreported as a transport failure.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			if errors.IsCode(err, errors.ErrCodeAuth) {
				return nil, err
			}

			consecutiveFailures++
			lastErr = err
			metrics.ExtractionPollTicks.WithLabelValues("transport_error").Inc()

			if consecutiveFailures >= p.maxTransport {
				log.Error("polling exhausted transport retries", map[string]interface{}{
					"consecutiveFailures": consecutiveFailures,
				})
				return nil, errors.NewPollingExhaustedError(handle.JobID, consecutiveFailures, lastErr)
			}

			log.Warn("poll tick failed, retrying at next tick", map[string]interface{}{
				"consecutiveFailures": consecutiveFailures,
				"error":               err.Error(),
			})
			timer.Reset(p.interval)
			continue
		}

		consecutiveFailures = 0
		metrics.ExtractionPollTicks.WithLabelValues("ok").Inc()

		if job.Progress < lastProgress {
			job.Progress = lastProgress
		}
		lastProgress = job.Progress

		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if observe != nil {
			observe(*job)
		}

		switch job.Status {
		case StatusCompleted:
			metrics.ExtractionJobsCompleted.WithLabelValues(string(StatusCompleted)).Inc()
			metrics.ExtractionJobDuration.Observe(time.Since(start).Seconds())
			if err := ValidateResults(job.Results); err != nil {
				return nil, err
			}
			log.Info("extraction job completed", map[string]interface{}{
				"items":   len(job.Results),
				"elapsed": time.Since(start).String(),
			})
			return job.Results, nil

		case StatusFailed:
			metrics.ExtractionJobsCompleted.WithLabelValues(string(StatusFailed)).Inc()
			metrics.ExtractionJobDuration.Observe(time.Since(start).Seconds())
			log.Warn("extraction job failed", map[string]interface{}{
				"jobError": job.Error,
			})
			return nil, errors.NewExtractionFailedError(handle.JobID, job.Error)
		}

		timer.Reset(p.interval)
	}
}
