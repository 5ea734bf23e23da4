package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// GameCollector handles all playthrough metrics
type GameCollector struct {
	turnsTotal     *prometheus.CounterVec
	gamesFinished  *prometheus.CounterVec
	sessionsActive prometheus.Gauge
}

// NewGameCollector creates a new game metrics collector
func NewGameCollector() *GameCollector {
	return &GameCollector{
		turnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "turns_confirmed_total",
				Help:      "Total number of confirmed turns by level",
			},
			[]string{"level"},
		),

		gamesFinished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "games_finished_total",
				Help:      "Total number of finished playthroughs by level and result",
			},
			[]string{"level", "status"},
		),

		sessionsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "sessions_active",
				Help:      "Number of sessions currently held in memory",
			},
		),
	}
}

// Register registers all game metrics with the Prometheus registry
func (c *GameCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	metrics := []prometheus.Collector{
		c.turnsTotal,
		c.gamesFinished,
		c.sessionsActive,
	}

	for _, metric := range metrics {
		if err := Registry.Register(metric); err != nil {
			return err
		}
	}

	return nil
}

// RecordTurn counts one confirmed turn
func (c *GameCollector) RecordTurn(level int) {
	if c == nil {
		return
	}
	c.turnsTotal.WithLabelValues(strconv.Itoa(level)).Inc()
}

// RecordGameFinished counts a playthrough reaching won or lost
func (c *GameCollector) RecordGameFinished(level int, status string) {
	if c == nil {
		return
	}
	c.gamesFinished.WithLabelValues(strconv.Itoa(level), status).Inc()
}

// SetActiveSessions reports the size of the session registry
func (c *GameCollector) SetActiveSessions(n int) {
	if c == nil {
		return
	}
	c.sessionsActive.Set(float64(n))
}
