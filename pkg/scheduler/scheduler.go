// Package scheduler runs the periodic re-sign check: a cron-scheduled
// call to Signer.CheckExpiry so an expired self-signed certificate is
// renewed on the next tick without waiting for the next Sign call.
package scheduler

import (
	"github.com/robfig/cron/v3"

	"pkgsign/internal/log"
	"pkgsign/pkg/metrics"
	"pkgsign/pkg/signer"
)

// Scheduler wraps a cron.Cron running a single job: Signer.CheckExpiry.
type Scheduler struct {
	cron   *cron.Cron
	signer *signer.Signer
	logger log.Logger
}

// New builds a Scheduler that calls s.CheckExpiry() on the given cron
// expression (standard five-field cron syntax).
func New(s *signer.Signer, spec string, logger log.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = log.Global()
	}
	c := cron.New()
	sched := &Scheduler{cron: c, signer: s, logger: logger}

	if _, err := c.AddFunc(spec, sched.runCheck); err != nil {
		return nil, err
	}
	return sched, nil
}

func (s *Scheduler) runCheck() {
	before := s.signer.Chain()
	if err := s.signer.CheckExpiry(); err != nil {
		s.logger.Error("periodic re-sign check failed", err, nil)
		return
	}
	if after := s.signer.Chain(); after != before {
		metrics.ResignsTotal.Inc()
		s.logger.Info("certificate renewed by periodic check", nil)
	}
}

// Start starts the cron scheduler in the background.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops the scheduler, blocking until the running job (if any)
// completes.
func (s *Scheduler) Stop() { <-s.cron.Stop().Done() }
