// Package schedule fires the recurring digest jobs, one independent entry
// per target room.
package schedule

import (
	"github.com/robfig/cron/v3"

	appLog "github.com/meri-leeworthy/matrix-bot-calendar/internal/log"
)

// Scheduler wraps a cron runner. Jobs run in cron's own goroutines and a
// panic or failure in one firing does not affect the next.
type Scheduler struct {
	cron *cron.Cron
}

func New() *Scheduler {
	return &Scheduler{cron: cron.New()}
}

// AddWeekly registers job under the given standard 5-field cron spec
// (e.g. "0 9 * * 0" for Sunday 09:00). The job repeats on that cadence
// for the process lifetime.
func (s *Scheduler) AddWeekly(spec string, job func()) error {
	if _, err := Parse(spec); err != nil {
		return err
	}
	_, err := s.cron.AddFunc(spec, job)
	return err
}

func (s *Scheduler) Start() {
	appLog.Info("scheduler started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop halts scheduling; running jobs are left to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// Parse exposes the next-occurrence computation for a standard cron spec
// so the firing cadence is testable without a running scheduler.
func Parse(spec string) (cron.Schedule, error) {
	return cron.ParseStandard(spec)
}
