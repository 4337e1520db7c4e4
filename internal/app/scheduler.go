package app

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// scheduler runs the session's housekeeping jobs on cron expressions
// evaluated in UTC.
type scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func newScheduler(log zerolog.Logger) *scheduler {
	return &scheduler{
		cron: cron.New(cron.WithLocation(time.UTC)),
		log:  log.With().Str("component", "scheduler").Logger(),
	}
}

// add registers fn under name. An empty schedule disables the job.
func (s *scheduler) add(name, schedule string, fn func() error) error {
	if schedule == "" {
		return nil
	}
	_, err := s.cron.AddFunc(schedule, func() {
		s.log.Debug().Str("job", name).Msg("running job")
		if err := fn(); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("job failed")
		}
	})
	if err != nil {
		return err
	}
	s.log.Info().Str("schedule", schedule).Str("job", name).Msg("job registered")
	return nil
}

func (s *scheduler) start() { s.cron.Start() }

func (s *scheduler) stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}
