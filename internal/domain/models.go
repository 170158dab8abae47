package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Reading is one telemetry observation for a facility. Immutable once built.
type Reading struct {
	FacilityID   string    `db:"facility_id" json:"facility_id"`
	FacilityName string    `db:"facility_name" json:"facility_name"`
	Region       string    `db:"region" json:"region"`
	FuelTech     string    `db:"fuel_tech" json:"fuel_tech"`
	Latitude     float64   `db:"latitude" json:"latitude"`
	Longitude    float64   `db:"longitude" json:"longitude"`
	PowerMW      float64   `db:"power_mw" json:"power_mw"`
	CO2Kg        float64   `db:"co2_kg" json:"co2_kg"`
	Timestamp    time.Time `db:"timestamp" json:"timestamp"`
}

// Key is deterministic in (facility_id, timestamp) so a consumer can detect
// re-delivery of the same logical reading. Nanosecond formatting keeps keys
// distinct for readings within the same second.
func (r Reading) Key() string {
	sum := sha256.Sum256([]byte(r.FacilityID + "|" + r.Timestamp.UTC().Format(time.RFC3339Nano)))
	return hex.EncodeToString(sum[:])
}

// Message is the wire envelope: the reading's fields inlined plus the
// producer-assigned sequence number and idempotency key.
type Message struct {
	Reading
	Sequence       uint64 `json:"sequence"`
	IdempotencyKey string `json:"idempotency_key"`
}

// NewMessage stamps a reading with its sequence number and idempotency key.
func NewMessage(seq uint64, r Reading) Message {
	return Message{Reading: r, Sequence: seq, IdempotencyKey: r.Key()}
}
