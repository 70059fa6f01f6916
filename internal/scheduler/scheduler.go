// Package scheduler runs a job once a day at a fixed local wall-clock time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/54b3r/newsrag-go/internal/logging"
)

// DefaultAt is the default daily run time.
const DefaultAt = "09:00"

// Job is the work run on each tick. Its error is logged.
type Job func(ctx context.Context) error

// Daily runs a Job every day at Hour:Minute in Location.
type Daily struct {
	Hour     int
	Minute   int
	Location *time.Location

	job Job
	now func() time.Time
}

// NewDaily parses at ("HH:MM", 24-hour) and returns a Daily for job.
// A nil location means time.Local.
func NewDaily(at string, loc *time.Location, job Job) (*Daily, error) {
	if job == nil {
		return nil, fmt.Errorf("scheduler: job must not be nil")
	}
	if at == "" {
		at = DefaultAt
	}
	t, err := time.Parse("15:04", at)
	if err != nil {
		return nil, fmt.Errorf("scheduler: invalid time %q (want HH:MM): %w", at, err)
	}
	if loc == nil {
		loc = time.Local
	}
	return &Daily{Hour: t.Hour(), Minute: t.Minute(), Location: loc, job: job, now: time.Now}, nil
}

// Next returns the first run time strictly after from.
func (d *Daily) Next(from time.Time) time.Time {
	from = from.In(d.Location)
	next := time.Date(from.Year(), from.Month(), from.Day(), d.Hour, d.Minute, 0, 0, d.Location)
	if !next.After(from) {
		next = time.Date(from.Year(), from.Month(), from.Day()+1, d.Hour, d.Minute, 0, 0, d.Location)
	}
	return next
}

// Run blocks until ctx is cancelled, running the job at each scheduled
// time. Runs never overlap; a run that outlasts a day skips the missed slot.
func (d *Daily) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	for {
		next := d.Next(d.now())
		log.Info("scheduler: next run", slog.Time("at", next))

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		start := time.Now()
		if err := d.job(ctx); err != nil {
			log.Error("scheduler: job failed",
				slog.Any("error", err),
				slog.Duration("elapsed", time.Since(start)),
			)
			continue
		}
		log.Info("scheduler: job complete", slog.Duration("elapsed", time.Since(start)))
	}
}
