package broker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ErrAckTimeout means the broker did not acknowledge a publish within the
// configured window. The message is not retried immediately; the next replay
// cycle covers it.
var ErrAckTimeout = errors.New("broker: publish ack timeout")

type Options struct {
	BrokerURL string
	ClientID  string
	QoS       byte
	Retain    bool

	// AckTimeout bounds how long Publish waits for broker acknowledgment.
	AckTimeout time.Duration

	// ConnectAttempts is the retry budget for the initial connection.
	// Exhausting it is a terminal failure.
	ConnectAttempts int
	BackoffMin      time.Duration
	BackoffMax      time.Duration
}

func (o *Options) defaults() {
	if o.ClientID == "" {
		o.ClientID = "relay-" + uuid.NewString()[:8]
	}
	if o.AckTimeout <= 0 {
		o.AckTimeout = 5 * time.Second
	}
	if o.ConnectAttempts <= 0 {
		o.ConnectAttempts = 5
	}
	if o.BackoffMin <= 0 {
		o.BackoffMin = 500 * time.Millisecond
	}
	if o.BackoffMax <= 0 {
		o.BackoffMax = 30 * time.Second
	}
}

// Client wraps a paho MQTT connection behind the Publisher and Subscriber
// interfaces.
type Client struct {
	cli        mqtt.Client
	qos        byte
	retain     bool
	ackTimeout time.Duration
}

// Connect dials the broker, retrying with bounded exponential backoff until
// the attempt budget runs out.
func Connect(ctx context.Context, opts Options) (*Client, error) {
	opts.defaults()

	copts := mqtt.NewClientOptions().
		AddBroker(opts.BrokerURL).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetOrderMatters(true)
	cli := mqtt.NewClient(copts)

	dial := func() error {
		token := cli.Connect()
		token.Wait()
		return token.Error()
	}
	if err := connectWithBackoff(ctx, opts, dial); err != nil {
		return nil, err
	}

	log.Info().
		Str("broker", opts.BrokerURL).
		Str("client_id", opts.ClientID).
		Msg("mqtt connected")

	return &Client{
		cli:        cli,
		qos:        opts.QoS,
		retain:     opts.Retain,
		ackTimeout: opts.AckTimeout,
	}, nil
}

func connectWithBackoff(ctx context.Context, opts Options, dial func() error) error {
	interval := opts.BackoffMin
	for attempt := 1; ; attempt++ {
		err := dial()
		if err == nil {
			return nil
		}
		if attempt >= opts.ConnectAttempts {
			return fmt.Errorf("mqtt connect: budget of %d attempts exhausted: %w", opts.ConnectAttempts, err)
		}

		log.Warn().
			Err(err).
			Int("attempt", attempt).
			Dur("backoff", interval).
			Msg("mqtt connect failed, backing off")

		timer := time.NewTimer(jitter(interval))
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}

		interval *= 2
		if interval > opts.BackoffMax {
			interval = opts.BackoffMax
		}
	}
}

// jitter spreads the wait to 95-105% of base so reconnecting clients do not
// synchronize against a recovering broker.
func jitter(base time.Duration) time.Duration {
	return time.Duration(float64(base) * (0.95 + 0.1*rand.Float64()))
}

// Publish sends payload and waits for broker acknowledgment up to the ack
// timeout.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte) error {
	token := c.cli.Publish(topic, c.qos, c.retain, payload)

	timer := time.NewTimer(c.ackTimeout)
	defer timer.Stop()
	select {
	case <-token.Done():
		return token.Error()
	case <-timer.C:
		return ErrAckTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Subscribe registers handler for topic at the client's QoS.
func (c *Client) Subscribe(topic string, handler MessageHandler) error {
	token := c.cli.Subscribe(topic, c.qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if token.Wait(); token.Error() != nil {
		return fmt.Errorf("subscribe %s: %w", topic, token.Error())
	}
	return nil
}

func (c *Client) Close() {
	c.cli.Disconnect(250)
}
