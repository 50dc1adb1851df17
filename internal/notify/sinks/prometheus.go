package sinks

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vigilbot/vigil/internal/notify"
)

// PrometheusSink counts delivered transitions by event type.
type PrometheusSink struct {
	transitions *prometheus.CounterVec
}

// NewPrometheusSink registers its collector with the given registerer.
func NewPrometheusSink(reg prometheus.Registerer) *PrometheusSink {
	s := &PrometheusSink{
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vigil",
			Name:      "transitions_total",
			Help:      "Detected transitions by event type.",
		}, []string{"type"}),
	}
	if reg != nil {
		reg.MustRegister(s.transitions)
	}
	return s
}

// Deliver increments the counter for the event type.
func (s *PrometheusSink) Deliver(_ context.Context, evt notify.Event) error {
	s.transitions.WithLabelValues(string(evt.Type)).Inc()
	return nil
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error { return nil }
