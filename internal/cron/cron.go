// Package cron runs named background jobs on cron schedules. It wraps
// robfig/cron with per-job overlap protection: a tick is skipped when
// the previous run of the same job is still in flight.
package cron

import "context"

// Job is a periodic task registered with the Scheduler.
type Job interface {
	// Name identifies the job in logs. Must be unique per scheduler.
	Name() string

	// Schedule is a standard 5-field cron expression.
	Schedule() string

	// Run executes one tick. The context is cancelled on scheduler stop.
	Run(ctx context.Context) error
}
