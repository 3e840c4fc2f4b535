package hostd

import "github.com/prometheus/client_golang/prometheus"

var (
	commandsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picoswitch",
			Subsystem: "serial",
			Name:      "commands_total",
			Help:      "Commands received from the device, by verb",
		},
		[]string{"verb"},
	)

	discardedLinesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "picoswitch",
			Subsystem: "serial",
			Name:      "discarded_lines_total",
			Help:      "Inbound lines that were not recognized commands",
		},
	)

	statusesSentTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "picoswitch",
			Subsystem: "serial",
			Name:      "statuses_sent_total",
			Help:      "Status lines written back to the device",
		},
	)

	runtimeQueryFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "picoswitch",
			Subsystem: "runtime",
			Name:      "query_failures_total",
			Help:      "Container runtime status queries that failed",
		},
	)

	samplerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "picoswitch",
			Subsystem: "sampler",
			Name:      "failures_total",
			Help:      "Resource sampler failures, by source",
		},
		[]string{"source"},
	)
)

func init() {
	prometheus.MustRegister(commandsTotal, discardedLinesTotal, statusesSentTotal,
		runtimeQueryFailures, samplerFailures)
}
