package nbtls

//
// Metrics definitions
//

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metricConnectCount counts the terminal outcomes of ConnectTLS.
var metricConnectCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "nbtls_connect_total",
	Help: "Total number of secure connect attempts by failed operation and outcome",
}, []string{"operation", "outcome"})

// metricOutcome bounds the cardinality of the outcome label.
func metricOutcome(failure string) string {
	if prefix, _, found := strings.Cut(failure, ":"); found {
		return prefix
	}
	return failure
}
