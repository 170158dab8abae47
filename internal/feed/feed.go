package feed

import "github.com/openelec/telemetry-relay/internal/domain"

// Feed is a finite, repeatable sequence of readings. The relay walks it once
// per replay cycle; implementations may reload between calls.
type Feed interface {
	Readings() ([]domain.Reading, error)
}

// Static serves a fixed slice, mainly for tests and simulation.
type Static struct {
	Items []domain.Reading
}

func (s *Static) Readings() ([]domain.Reading, error) {
	out := make([]domain.Reading, len(s.Items))
	copy(out, s.Items)
	return out, nil
}
