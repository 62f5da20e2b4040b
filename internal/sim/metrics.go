package sim

import (
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/OCAP2/skirmish/internal/sim"

type instruments struct {
	shots        metric.Int64Counter
	damage       metric.Float64Counter
	tickDuration metric.Float64Histogram
}

// newInstruments uses the global meter, which is a no-op until a provider
// is installed.
func newInstruments() (*instruments, error) {
	m := otel.Meter(instrumentationName)
	var (
		in  instruments
		err error
	)
	in.shots, err = m.Int64Counter("sim.shots.fired",
		metric.WithDescription("Rounds fired"))
	if err != nil {
		return nil, fmt.Errorf("creating shots counter: %w", err)
	}
	in.damage, err = m.Float64Counter("sim.damage.dealt",
		metric.WithDescription("Damage applied to targets and pillars"))
	if err != nil {
		return nil, fmt.Errorf("creating damage counter: %w", err)
	}
	in.tickDuration, err = m.Float64Histogram("sim.tick.duration",
		metric.WithDescription("Wall time spent in one frame update"),
		metric.WithUnit("ms"))
	if err != nil {
		return nil, fmt.Errorf("creating tick histogram: %w", err)
	}
	return &in, nil
}
