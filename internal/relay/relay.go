package relay

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openelec/telemetry-relay/internal/broker"
	"github.com/openelec/telemetry-relay/internal/domain"
	"github.com/openelec/telemetry-relay/internal/feed"
	"github.com/openelec/telemetry-relay/internal/tracker"
)

type Config struct {
	Topic string

	// RateDelay is the pause between consecutive publishes within a cycle.
	RateDelay time.Duration

	// ReplayInterval is the sleep between full passes over the source, so a
	// late-joining subscriber eventually observes full current state.
	ReplayInterval time.Duration
}

// Relay paces readings from a source feed onto the broker. Each published
// message carries a strictly increasing sequence number and an idempotency
// key; unchanged readings are suppressed by the tracker.
type Relay struct {
	cfg Config
	pub broker.Publisher
	trk *tracker.Tracker
	seq uint64
}

func New(pub broker.Publisher, trk *tracker.Tracker, cfg Config) *Relay {
	return &Relay{cfg: cfg, pub: pub, trk: trk}
}

// Run loops replay cycles until ctx is cancelled.
func (r *Relay) Run(ctx context.Context, src feed.Feed) error {
	for round := 1; ; round++ {
		sent, err := r.cycle(ctx, src)
		if err != nil {
			return err
		}
		log.Info().
			Int("round", round).
			Int("sent", sent).
			Dur("sleep", r.cfg.ReplayInterval).
			Msg("replay cycle complete")
		if err := r.sleep(ctx, r.cfg.ReplayInterval); err != nil {
			return err
		}
	}
}

// cycle walks the source once. A reading whose publish fails is not marked,
// so the next cycle retries it; there is no instant retry against a broker
// that just timed out.
func (r *Relay) cycle(ctx context.Context, src feed.Feed) (int, error) {
	readings, err := src.Readings()
	if err != nil {
		// The source may be mid-rewrite; wait for the next cycle.
		log.Error().Err(err).Msg("source feed load failed")
		return 0, nil
	}

	sent := 0
	for _, rd := range readings {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if !r.trk.ShouldPublish(rd) {
			continue
		}

		r.seq++
		msg := domain.NewMessage(r.seq, rd)
		payload, err := json.Marshal(msg)
		if err != nil {
			log.Error().Err(err).Str("facility", rd.FacilityID).Msg("encode failed, reading dropped")
			continue
		}

		if err := r.pub.Publish(ctx, r.cfg.Topic, payload); err != nil {
			if ctx.Err() != nil {
				return sent, ctx.Err()
			}
			log.Warn().
				Err(err).
				Str("facility", rd.FacilityID).
				Uint64("sequence", msg.Sequence).
				Msg("publish failed, retrying next cycle")
			continue
		}

		r.trk.MarkPublished(rd, msg.Sequence)
		sent++

		if err := r.sleep(ctx, r.cfg.RateDelay); err != nil {
			return sent, err
		}
	}
	return sent, nil
}

func (r *Relay) sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
