package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"

	"github.com/openelec/telemetry-relay/internal/broker"
	"github.com/openelec/telemetry-relay/internal/cache"
	"github.com/openelec/telemetry-relay/internal/config"
	"github.com/openelec/telemetry-relay/internal/httpapi"
	"github.com/openelec/telemetry-relay/internal/liveview"
	"github.com/openelec/telemetry-relay/internal/repository"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := broker.Connect(ctx, broker.Options{
		BrokerURL:       config.MQTTBroker(),
		QoS:             config.MQTTQoS(),
		AckTimeout:      config.MQTTAckTimeout(),
		ConnectAttempts: config.MQTTConnectAttempts(),
		BackoffMin:      config.MQTTBackoffMin(),
		BackoffMax:      config.MQTTBackoffMax(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect failed")
	}
	defer client.Close()

	view := liveview.New(liveview.Options{
		DedupWindow:  config.DedupWindow(),
		ChangeBuffer: config.ChangeBuffer(),
	})

	// Bounded hand-off between the broker client's delivery goroutine and the
	// single consuming loop. A full queue drops the message; QoS redelivery
	// and the next replay cycle cover it.
	inbound := make(chan []byte, config.InboundQueue())
	err = client.Subscribe(config.MQTTTopic(), func(_ string, payload []byte) {
		select {
		case inbound <- payload:
		default:
			log.Warn().Msg("inbound queue full, message dropped")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Msg("subscribe failed")
	}

	startSinks(ctx, view)

	go func() {
		if err := view.Run(ctx, inbound); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("liveview stopped")
		}
	}()

	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	httpapi.Register(app, view)
	go func() {
		if err := app.Listen(config.APIAddr()); err != nil && ctx.Err() == nil {
			log.Fatal().Err(err).Msg("http listen failed")
		}
	}()

	log.Info().
		Str("topic", config.MQTTTopic()).
		Str("addr", config.APIAddr()).
		Msg("dashboard running; Ctrl+C to stop")

	<-ctx.Done()
	if err := app.Shutdown(); err != nil {
		log.Error().Err(err).Msg("http shutdown failed")
	}
	log.Info().Msg("dashboard shut down")
}

// startSinks wires the optional archive and Redis mirror onto the change
// feed. Both are disabled unless configured.
func startSinks(ctx context.Context, view *liveview.LiveView) {
	var archive *repository.Archive
	if dsn := config.DBDSN(); dsn != "" {
		a, err := repository.Connect(dsn)
		if err != nil {
			log.Fatal().Err(err).Msg("db connect failed")
		}
		archive = a
		log.Info().Msg("archive enabled")
	}

	var mirror *cache.Mirror
	if addr := config.RedisAddr(); addr != "" {
		m, err := cache.Connect(ctx, addr)
		if err != nil {
			log.Fatal().Err(err).Msg("redis connect failed")
		}
		mirror = m
		log.Info().Str("addr", addr).Msg("redis mirror enabled")
	}

	if archive == nil && mirror == nil {
		return
	}

	changes, cancel := view.SubscribeChanges()
	go func() {
		defer cancel()
		defer func() {
			if archive != nil {
				archive.Close()
			}
			if mirror != nil {
				mirror.Close()
			}
		}()
		for {
			select {
			case <-ctx.Done():
				return
			case change, ok := <-changes:
				if !ok {
					return
				}
				sinkCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
				if archive != nil {
					if err := archive.InsertReading(sinkCtx, change.Reading); err != nil {
						log.Error().Err(err).Str("facility", change.FacilityID).Msg("archive insert failed")
					}
				}
				if mirror != nil {
					if err := mirror.Store(sinkCtx, change.Reading); err != nil {
						log.Error().Err(err).Str("facility", change.FacilityID).Msg("mirror store failed")
					}
				}
				done()
			}
		}
	}()
}
