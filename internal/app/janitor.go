package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Purger removes stale records; the Lobby implements it so the sweep
// also clears lobby-side state tied to collected rooms.
type Purger interface {
	PurgeStale(ctx context.Context, cutoff time.Time) (int, error)
}

// Janitor periodically purges stale records so abandoned rooms and
// detached users do not accumulate forever.
type Janitor struct {
	purger   Purger
	ttl      time.Duration
	interval time.Duration
}

func NewJanitor(purger Purger, ttl, interval time.Duration) *Janitor {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	if interval <= 0 {
		interval = time.Hour
	}
	return &Janitor{purger: purger, ttl: ttl, interval: interval}
}

// Run sweeps until ctx is canceled. Intended to run as a goroutine.
func (j *Janitor) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.janitor").Dur("ttl", j.ttl).Dur("interval", j.interval).Msg("janitor started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.janitor").Msg("janitor stopped")
			return
		case <-ticker.C:
			cutoff := time.Now().Add(-j.ttl)
			removed, err := j.purger.PurgeStale(ctx, cutoff)
			if err != nil {
				log.Error().Err(err).Str("module", "app.janitor").Msg("purge failed")
				continue
			}
			if removed > 0 {
				log.Info().Str("module", "app.janitor").Int("removed", removed).Msg("purged stale records")
			}
		}
	}
}
