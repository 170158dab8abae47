package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"github.com/openelec/telemetry-relay/internal/broker"
	"github.com/openelec/telemetry-relay/internal/config"
	"github.com/openelec/telemetry-relay/internal/feed"
	"github.com/openelec/telemetry-relay/internal/relay"
	"github.com/openelec/telemetry-relay/internal/tracker"
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
		Retain:          config.MQTTRetain(),
		AckTimeout:      config.MQTTAckTimeout(),
		ConnectAttempts: config.MQTTConnectAttempts(),
		BackoffMin:      config.MQTTBackoffMin(),
		BackoffMax:      config.MQTTBackoffMax(),
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect failed")
	}
	defer client.Close()

	r := relay.New(client, tracker.New(), relay.Config{
		Topic:          config.MQTTTopic(),
		RateDelay:      config.RateDelay(),
		ReplayInterval: config.ReplayInterval(),
	})

	log.Info().
		Str("topic", config.MQTTTopic()).
		Str("csv", config.SourceCSV()).
		Msg("relay running; Ctrl+C to stop")

	err = r.Run(ctx, &feed.CSV{Path: config.SourceCSV()})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("relay stopped")
	}
	log.Info().Msg("relay shut down")
}
