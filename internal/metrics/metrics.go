// Package metrics exposes Prometheus counters and gauges for CoreNet,
// adapted from this codebase's metrics package: the same promauto-registered
// counter/gauge/vec shapes and the same /metrics+/ready HTTP surface, with
// the CAN/serial/hub label set replaced by connection, message, and
// screen-edge concerns.
package metrics

import (
	"net/http"
	"sync"

	"github.com/kstaniek/go-corenet/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corenet_messages_sent_total",
		Help: "Total protocol messages sent, by message type.",
	}, []string{"type"})
	MessagesReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corenet_messages_received_total",
		Help: "Total protocol messages received, by message type.",
	}, []string{"type"})
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "corenet_connections_active",
		Help: "Current number of established peer connections.",
	})
	HandshakeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corenet_handshake_failures_total",
		Help: "Total handshake attempts that failed or were rejected.",
	})
	EdgeTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corenet_edge_transitions_total",
		Help: "Total screen-edge transitions detected, by edge.",
	}, []string{"edge"})
	ControlHandoffs = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corenet_control_handoffs_total",
		Help: "Total times control of the input stream changed hands.",
	})
	RTTMicros = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "corenet_rtt_micros",
		Help: "Last measured round-trip time to a peer, in microseconds.",
	}, []string{"peer"})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "corenet_build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corenet_errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})

	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality).
const (
	ErrHandshake = "handshake"
	ErrConnRead  = "conn_read"
	ErrConnWrite = "conn_write"
	ErrCapture   = "input_capture"
	ErrInjection = "input_inject"
	ErrDiscovery = "discovery"
	ErrLayout    = "layout"
)

// StartHTTP serves Prometheus metrics at /metrics and readiness at /ready.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

func IncMessageSent(msgType string)       { MessagesSent.WithLabelValues(msgType).Inc() }
func IncMessageReceived(msgType string)   { MessagesReceived.WithLabelValues(msgType).Inc() }
func SetConnectionsActive(n int)          { ConnectionsActive.Set(float64(n)) }
func IncHandshakeFailure()                { HandshakeFailures.Inc() }
func IncEdgeTransition(edge string)       { EdgeTransitions.WithLabelValues(edge).Inc() }
func IncControlHandoff()                  { ControlHandoffs.Inc() }
func SetRTTMicros(peer string, us uint64) { RTTMicros.WithLabelValues(peer).Set(float64(us)) }
func IncError(where string)               { Errors.WithLabelValues(where).Inc() }

// InitBuildInfo sets the build info gauge and pre-registers error label
// series so the first occurrence of each doesn't pay registration latency.
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	for _, lbl := range []string{ErrHandshake, ErrConnRead, ErrConnWrite, ErrCapture, ErrInjection, ErrDiscovery, ErrLayout} {
		Errors.WithLabelValues(lbl).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil {
		return true
	}
	return fn()
}
