package repository

import (
	"context"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/openelec/telemetry-relay/internal/domain"
)

// Archive persists accepted readings for offline analysis. The relay core
// does not depend on it; the dashboard wires it in when DB_DSN is set.
type Archive struct {
	db *sqlx.DB
}

func Connect(dsn string) (*Archive, error) {
	db, err := sqlx.Connect("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &Archive{db: db}, nil
}

func (a *Archive) Close() error { return a.db.Close() }

func (a *Archive) InsertReading(ctx context.Context, r domain.Reading) error {
	_, err := a.db.ExecContext(ctx, `
		INSERT INTO readings(facility_id, facility_name, region, fuel_tech,
		                     latitude, longitude, power_mw, co2_kg, timestamp)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		r.FacilityID, r.FacilityName, r.Region, r.FuelTech,
		r.Latitude, r.Longitude, r.PowerMW, r.CO2Kg, r.Timestamp)
	return err
}

// LatestReadings returns the most recent archived reading per facility.
func (a *Archive) LatestReadings(ctx context.Context) ([]domain.Reading, error) {
	var out []domain.Reading
	err := a.db.SelectContext(ctx, &out, `
		SELECT DISTINCT ON (facility_id)
		       facility_id, facility_name, region, fuel_tech,
		       latitude, longitude, power_mw, co2_kg, timestamp
		FROM readings
		ORDER BY facility_id, timestamp DESC`)
	return out, err
}
