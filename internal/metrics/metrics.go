package metrics

import (
	"net"
	"net/http"
	"strconv"
	"sync"

	"github.com/goodtune/posturr/internal/stats"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Today metrics
	TodayTotalSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "posturr_today_total_seconds",
			Help: "Seconds of active monitoring recorded today",
		},
	)

	TodaySlouchSeconds = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "posturr_today_slouch_seconds",
			Help: "Seconds spent slouching today",
		},
	)

	TodaySlouchCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "posturr_today_slouch_count",
			Help: "Slouch episodes started today",
		},
	)

	TodayPostureScore = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "posturr_today_posture_score",
			Help: "Today's posture score (0-100)",
		},
	)

	// Event metrics
	TrackCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posturr_track_calls_total",
			Help: "Total tracking intervals received",
		},
		[]string{"slouching"},
	)

	SlouchEventsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "posturr_slouch_events_total",
			Help: "Total slouch episodes recorded",
		},
	)

	RolloversTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "posturr_rollovers_total",
			Help: "Total day rollovers observed",
		},
	)

	// Storage metrics
	StorageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "posturr_storage_errors_total",
			Help: "Storage failures absorbed by the stats store",
		},
		[]string{"op"},
	)
)

func init() {
	// Register all metrics
	prometheus.MustRegister(
		TodayTotalSeconds,
		TodaySlouchSeconds,
		TodaySlouchCount,
		TodayPostureScore,
		TrackCallsTotal,
		SlouchEventsTotal,
		RolloversTotal,
		StorageErrorsTotal,
	)
}

// ObserveTrack counts one tracking interval.
func ObserveTrack(slouching bool) {
	TrackCallsTotal.WithLabelValues(strconv.FormatBool(slouching)).Inc()
}

// TodayObserver mirrors today's record into the today gauges. Pass its
// Observe method to stats.Store.Subscribe.
type TodayObserver struct {
	mu   sync.Mutex
	last stats.DailyRecord
}

// NewTodayObserver creates an observer seeded with the store's current record.
func NewTodayObserver(initial stats.DailyRecord) *TodayObserver {
	o := &TodayObserver{last: initial}
	setToday(initial)
	return o
}

// Observe updates the gauges and derives slouch event and rollover counts
// from the change since the previous record.
func (o *TodayObserver) Observe(today stats.DailyRecord) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if today.Key() != o.last.Key() {
		RolloversTotal.Inc()
		if today.SlouchCount > 0 {
			SlouchEventsTotal.Add(float64(today.SlouchCount))
		}
	} else if delta := today.SlouchCount - o.last.SlouchCount; delta > 0 {
		SlouchEventsTotal.Add(float64(delta))
	}

	o.last = today
	setToday(today)
}

func setToday(today stats.DailyRecord) {
	TodayTotalSeconds.Set(today.TotalSeconds)
	TodaySlouchSeconds.Set(today.SlouchSeconds)
	TodaySlouchCount.Set(float64(today.SlouchCount))
	TodayPostureScore.Set(today.PostureScore())
}

// StorageSink counts storage failures by operation.
type StorageSink struct{}

// StorageFailed implements stats.DiagnosticSink.
func (StorageSink) StorageFailed(err *stats.StorageError) {
	StorageErrorsTotal.WithLabelValues(err.Op).Inc()
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: Handler(),
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
}

// Handler serves /metrics and /health.
func Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	return mux
}

// SetListener sets a pre-created listener for systemd socket activation
func (s *Server) SetListener(ln net.Listener) {
	s.listener = ln
}

// Start starts the metrics server
func (s *Server) Start() error {
	s.logger.Info().Str("addr", s.server.Addr).Msg("Starting metrics server")
	go func() {
		var err error
		if s.listener != nil {
			s.logger.Debug().Msg("Using systemd socket-activated metrics listener")
			err = s.server.Serve(s.listener)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("Metrics server error")
		}
	}()
	return nil
}

// Stop stops the metrics server
func (s *Server) Stop() error {
	s.logger.Info().Msg("Stopping metrics server")
	return s.server.Close()
}
