package metrics

import (
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

var (
	// Heartbeat metrics
	HeartbeatsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_heartbeats_total",
			Help: "Total heartbeats processed",
		},
		[]string{"site", "mode"},
	)

	UsageSecondsConsumed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_usage_seconds_consumed_total",
			Help: "Total usage seconds accrued",
		},
		[]string{"site"},
	)

	// Block metrics
	BlocksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_blocks_total",
			Help: "Total limit blocks entered",
		},
		[]string{"site", "reason"},
	)

	SessionWarningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_session_warnings_total",
			Help: "Total session warnings issued",
		},
		[]string{"site"},
	)

	// Break-glass metrics
	BreakGlassActivations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_break_glass_activations_total",
			Help: "Total break-glass activations",
		},
		[]string{"site"},
	)

	BreakGlassRefusals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sitewarden_break_glass_refusals_total",
			Help: "Total refused break-glass attempts",
		},
		[]string{"reason"},
	)

	ActiveOverrides = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sitewarden_active_overrides",
			Help: "Number of active break-glass overrides",
		},
	)
)

func init() {
	prometheus.MustRegister(
		HeartbeatsTotal,
		UsageSecondsConsumed,
		BlocksTotal,
		SessionWarningsTotal,
		BreakGlassActivations,
		BreakGlassRefusals,
		ActiveOverrides,
	)
}

// Server is the metrics HTTP server
type Server struct {
	server   *http.Server
	logger   zerolog.Logger
	listener net.Listener // Optional pre-created listener (for systemd socket activation)
}

// NewServer creates a new metrics server
func NewServer(addr string, logger zerolog.Logger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		logger: logger.With().Str("component", "metrics").Logger(),
	}
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
