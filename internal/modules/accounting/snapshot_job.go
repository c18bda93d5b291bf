package accounting

import (
	"github.com/rs/zerolog"
)

// SnapshotJob values the book on a schedule and records the result. It
// satisfies the scheduler.Job interface.
type SnapshotJob struct {
	service *Service
	log     zerolog.Logger
}

// NewSnapshotJob creates a new valuation snapshot job
func NewSnapshotJob(service *Service, log zerolog.Logger) *SnapshotJob {
	return &SnapshotJob{
		service: service,
		log:     log.With().Str("job", "valuation_snapshot").Logger(),
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "valuation_snapshot"
}

// Run takes one valuation snapshot
func (j *SnapshotJob) Run() error {
	snap, err := j.service.TakeSnapshot()
	if err != nil {
		return err
	}

	j.log.Info().
		Str("date", snap.Date).
		Int("position_count", snap.PositionCount).
		Msg("Valuation snapshot taken")

	return nil
}
