package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openclaw/chat-gateway-go/internal/config"
	"github.com/openclaw/chat-gateway-go/internal/streaming"
)

// CleanupJob periodically reaps streaming sessions whose owning process
// died mid-generation. Without it an interrupted generation would stay
// listed as active forever.
type CleanupJob struct {
	streams  *streaming.Store
	interval time.Duration
	done     chan struct{}
}

func NewCleanupJob(streams *streaming.Store, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		streams:  streams,
		interval: interval,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := j.streams.DeleteStale(ctx, config.StreamStaleAfter)
	if err != nil {
		log.Error().Err(err).Msg("failed to cleanup stale streaming sessions")
	} else if count > 0 {
		log.Info().Int("count", count).Msg("cleaned up stale streaming sessions")
	}
}
