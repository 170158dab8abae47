package feed

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/openelec/telemetry-relay/internal/domain"
)

var csvColumns = []string{
	"facility_code", "facility_name", "timestamp",
	"power_mw", "co2_kg", "region", "fuel_tech", "lat", "lon",
}

// CSV reads facility readings from a cleaned CSV export. The file is
// re-read on every Readings call so edits show up on the next replay cycle.
// Rows without a parseable timestamp or coordinates are skipped.
type CSV struct {
	Path string
}

func (f *CSV) Readings() ([]domain.Reading, error) {
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open source csv: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range csvColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("source csv missing column %q", name)
		}
	}

	var out []domain.Reading
	skipped := 0
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv row: %w", err)
		}
		if len(rec) < len(header) {
			// Truncated row, e.g. the file is mid-rewrite.
			skipped++
			continue
		}

		ts, err := parseTimestamp(rec[col["timestamp"]])
		if err != nil {
			skipped++
			continue
		}
		lat, latErr := strconv.ParseFloat(rec[col["lat"]], 64)
		lon, lonErr := strconv.ParseFloat(rec[col["lon"]], 64)
		if latErr != nil || lonErr != nil {
			skipped++
			continue
		}

		out = append(out, domain.Reading{
			FacilityID:   rec[col["facility_code"]],
			FacilityName: stringOr(rec[col["facility_name"]], "Unknown"),
			Region:       rec[col["region"]],
			FuelTech:     rec[col["fuel_tech"]],
			Latitude:     lat,
			Longitude:    lon,
			PowerMW:      floatOrZero(rec[col["power_mw"]]),
			CO2Kg:        floatOrZero(rec[col["co2_kg"]]),
			Timestamp:    ts,
		})
	}

	// Chronological order, then facility code, so per-facility delivery is
	// non-decreasing in timestamp.
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.Before(out[j].Timestamp)
		}
		return out[i].FacilityID < out[j].FacilityID
	})

	if skipped > 0 {
		log.Debug().Int("skipped", skipped).Str("csv", f.Path).Msg("rows without timestamp or coordinates skipped")
	}
	return out, nil
}

var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

func parseTimestamp(s string) (time.Time, error) {
	var err error
	for _, layout := range timestampLayouts {
		var ts time.Time
		if ts, err = time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, err
}

func floatOrZero(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}

func stringOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
