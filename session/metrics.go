package session

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twipi/twigomoku/game"
)

const metricsNamespace = "twigomoku"

// Metrics collects statistics about the games of a Store.
type Metrics struct {
	started  prometheus.Counter
	finished *prometheus.CounterVec
	moves    *prometheus.CounterVec
	search   prometheus.Histogram
	running  prometheus.Gauge
}

// NewMetrics creates the game metrics and registers them on reg.
// If reg is nil, the metrics are kept but not registered anywhere.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "games_started_total",
			Help:      "Number of games started.",
		}),
		finished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "games_finished_total",
			Help:      "Number of games finished, by outcome.",
		}, []string{"outcome"}),
		moves: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "moves_total",
			Help:      "Number of moves made, by player.",
		}, []string{"player"}),
		search: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "search_duration_seconds",
			Help:      "Time taken by the computer to choose a move.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 10, 8),
		}),
		running: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "games_running",
			Help:      "Number of games currently kept in memory.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.started, m.finished, m.moves, m.search, m.running)
	}
	return m
}

func (m *Metrics) observeMove(p game.Player) {
	m.moves.WithLabelValues(playerLabel(p)).Inc()
}

func (m *Metrics) observeSearch(d time.Duration) {
	m.search.Observe(d.Seconds())
}

func (m *Metrics) observeFinished(o game.Outcome) {
	m.finished.WithLabelValues(outcomeLabel(o)).Inc()
}

func playerLabel(p game.Player) string {
	switch p {
	case game.Human:
		return "human"
	case game.Computer:
		return "computer"
	default:
		return "none"
	}
}

func outcomeLabel(o game.Outcome) string {
	switch o {
	case game.HumanWin:
		return "human"
	case game.ComputerWin:
		return "computer"
	case game.Draw:
		return "draw"
	default:
		return "unfinished"
	}
}
