package jobs

import (
	"context"
	"time"

	"github.com/docdesk/docdesk/backend/go-services/pkg/logger"
)

// Scheduler submits a job on a fixed interval.
type Scheduler struct {
	submitter Submitter
	name      string
	args      interface{}
	every     time.Duration
	log       *logger.Logger
}

func NewScheduler(s Submitter, name string, args interface{}, every time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{submitter: s, name: name, args: args, every: every, log: log}
}

// Run blocks until ctx is cancelled. A non-positive interval disables it.
func (s *Scheduler) Run(ctx context.Context) {
	if s.every <= 0 {
		s.log.Infof("schedule for %s disabled", s.name)
		return
	}
	ticker := time.NewTicker(s.every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			id, err := s.submitter.Submit(ctx, s.name, s.args)
			if err != nil {
				s.log.Errorf("scheduled %s: %v", s.name, err)
				continue
			}
			s.log.Debugf("scheduled %s as %s", s.name, id)
		}
	}
}
