package middleware

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	commandsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "traffic_api_commands_total",
		Help: "Total number of envelope commands received, by command.",
	}, []string{"command"})
	observationsRecorded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traffic_api_observations_recorded_total",
		Help: "Total number of vehicle sightings appended to the ledger.",
	})
	observationsRetracted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "traffic_api_observations_retracted_total",
		Help: "Total number of compensating retraction entries appended.",
	})
)

func CountCommand(command string) {
	commandsTotal.WithLabelValues(command).Inc()
}

func ObservationRecorded() {
	observationsRecorded.Inc()
}

func ObservationRetracted() {
	observationsRetracted.Inc()
}
