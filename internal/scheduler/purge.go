package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// Runs while booking traffic is lowest.
	purgeCronExpr = "0 3 * * *"
	purgeTimeout  = time.Minute
)

// BookingPurger removes bookings dated before a cutoff.
type BookingPurger interface {
	DeleteBefore(ctx context.Context, cutoffDate string) (int64, error)
}

// RegisterPurgeJob schedules the nightly removal of bookings older than
// retentionDays. A non-positive retention disables the job.
func RegisterPurgeJob(purger BookingPurger, retentionDays int) error {
	if retentionDays <= 0 {
		log.Info().Msg("Booking purge disabled")
		return nil
	}

	_, err := AddJob("booking-purge", purgeCronExpr, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()

		cutoff := time.Now().AddDate(0, 0, -retentionDays).Format("2006-01-02")
		removed, err := purger.DeleteBefore(ctx, cutoff)
		if err != nil {
			log.Error().Err(err).Str("cutoff", cutoff).Msg("Booking purge failed")
			return
		}
		log.Info().Str("cutoff", cutoff).Int64("removed", removed).Msg("Booking purge completed")
	})
	return err
}
