package config

import (
	"time"

	"github.com/spf13/viper"
)

func Load() error {
	// Broker
	viper.SetDefault("MQTT_BROKER", "tcp://localhost:1883")
	viper.SetDefault("MQTT_TOPIC", "energy/facilities")
	viper.SetDefault("MQTT_QOS", 1)
	viper.SetDefault("MQTT_RETAIN", false)
	viper.SetDefault("MQTT_ACK_TIMEOUT", "5s")
	viper.SetDefault("MQTT_CONNECT_ATTEMPTS", 5)
	viper.SetDefault("MQTT_BACKOFF_MIN", "500ms")
	viper.SetDefault("MQTT_BACKOFF_MAX", "30s")

	// Relay
	viper.SetDefault("RELAY_SOURCE_CSV", "data/cleaned_data_mqtt.csv")
	viper.SetDefault("RELAY_RATE_DELAY", "100ms")
	viper.SetDefault("RELAY_REPLAY_INTERVAL", "60s")

	// Dashboard
	viper.SetDefault("API_ADDR", ":8080")
	viper.SetDefault("DEDUP_WINDOW", 4096)
	viper.SetDefault("CHANGE_BUFFER", 64)
	viper.SetDefault("INBOUND_QUEUE", 256)

	// Optional sinks (empty = disabled)
	viper.SetDefault("DB_DSN", "")
	viper.SetDefault("REDIS_ADDR", "")

	viper.AutomaticEnv()
	return nil
}

func MQTTBroker() string              { return viper.GetString("MQTT_BROKER") }
func MQTTTopic() string               { return viper.GetString("MQTT_TOPIC") }
func MQTTQoS() byte                   { return byte(viper.GetInt("MQTT_QOS")) }
func MQTTRetain() bool                { return viper.GetBool("MQTT_RETAIN") }
func MQTTAckTimeout() time.Duration   { return viper.GetDuration("MQTT_ACK_TIMEOUT") }
func MQTTConnectAttempts() int        { return viper.GetInt("MQTT_CONNECT_ATTEMPTS") }
func MQTTBackoffMin() time.Duration   { return viper.GetDuration("MQTT_BACKOFF_MIN") }
func MQTTBackoffMax() time.Duration   { return viper.GetDuration("MQTT_BACKOFF_MAX") }
func SourceCSV() string               { return viper.GetString("RELAY_SOURCE_CSV") }
func RateDelay() time.Duration        { return viper.GetDuration("RELAY_RATE_DELAY") }
func ReplayInterval() time.Duration   { return viper.GetDuration("RELAY_REPLAY_INTERVAL") }
func APIAddr() string                 { return viper.GetString("API_ADDR") }
func DedupWindow() int                { return viper.GetInt("DEDUP_WINDOW") }
func ChangeBuffer() int               { return viper.GetInt("CHANGE_BUFFER") }
func InboundQueue() int               { return viper.GetInt("INBOUND_QUEUE") }
func DBDSN() string                   { return viper.GetString("DB_DSN") }
func RedisAddr() string               { return viper.GetString("REDIS_ADDR") }
