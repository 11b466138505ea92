package broadcast

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	publishedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_events_published_total",
		Help: "Events published per event name.",
	}, []string{"event"})

	droppedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_events_dropped_total",
		Help: "Events dropped because a subscriber buffer was full.",
	}, []string{"event"})
)
