package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	// Namespace for all metrics
	namespace = "fabline"
	// Subsystem for game service metrics
	subsystem = "game"
)

// Registry is the global Prometheus registry for all metrics.
// It stays nil until InitRegistry is called.
var Registry *prometheus.Registry

// InitRegistry initializes the Prometheus registry.
// Should be called once at application startup if metrics are enabled
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// Handler exposes the registry in the Prometheus text format.
func Handler() http.Handler {
	if Registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// Recorder is what the game service reports to. A nil *GameCollector is a valid no-op Recorder.
type Recorder interface {
	RecordTurn(level int)
	RecordGameFinished(level int, status string)
	SetActiveSessions(n int)
}
