package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/fortitwin/interview-relay/internal/common/config"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics aggregates the relay's prometheus instruments.
type Metrics struct {
	registry *prometheus.Registry

	httpReqCnt *prometheus.CounterVec
	httpDur    *prometheus.HistogramVec

	sessionsLive  prometheus.Gauge
	chatTurnCnt   *prometheus.CounterVec
	engineCallDur *prometheus.HistogramVec

	tunnelsOpen   prometheus.Gauge
	tunnelFrames  *prometheus.CounterVec
	tunnelDialErr prometheus.Counter
}

// New builds a Metrics registry from configuration.
func New(cfg config.MetricsConfig) *Metrics {
	ns := cfg.Namespace
	r := prometheus.NewRegistry()
	r.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	r.MustRegister(collectors.NewGoCollector())

	httpReqCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total"}, []string{"method", "route", "status"})
	httpDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "http_request_duration_seconds", Buckets: cfg.Buckets}, []string{"method", "route", "status"})
	r.MustRegister(httpReqCnt, httpDur)

	sessionsLive := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "sessions_live"})
	chatTurnCnt := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "chat_turns_total"}, []string{"outcome"})
	engineCallDur := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: "engine_call_duration_seconds", Buckets: cfg.Buckets}, []string{"outcome"})
	r.MustRegister(sessionsLive, chatTurnCnt, engineCallDur)

	tunnelsOpen := prometheus.NewGauge(prometheus.GaugeOpts{Namespace: ns, Name: "audio_tunnels_open"})
	tunnelFrames := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: "audio_frames_relayed_total"}, []string{"direction"})
	tunnelDialErr := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: "audio_tunnel_dial_errors_total"})
	r.MustRegister(tunnelsOpen, tunnelFrames, tunnelDialErr)

	return &Metrics{
		registry:      r,
		httpReqCnt:    httpReqCnt,
		httpDur:       httpDur,
		sessionsLive:  sessionsLive,
		chatTurnCnt:   chatTurnCnt,
		engineCallDur: engineCallDur,
		tunnelsOpen:   tunnelsOpen,
		tunnelFrames:  tunnelFrames,
		tunnelDialErr: tunnelDialErr,
	}
}

// SetSessionsLive publishes the registry size.
func (m *Metrics) SetSessionsLive(n int) { m.sessionsLive.Set(float64(n)) }

// ChatTurn records one resolved candidate turn; outcome is "ok", "fallback"
// or "busy".
func (m *Metrics) ChatTurn(outcome string) { m.chatTurnCnt.WithLabelValues(outcome).Inc() }

// EngineCall records the latency of one next-turn call.
func (m *Metrics) EngineCall(outcome string, since time.Time) {
	m.engineCallDur.WithLabelValues(outcome).Observe(time.Since(since).Seconds())
}

// TunnelOpened / TunnelClosed track the live tunnel gauge.
func (m *Metrics) TunnelOpened() { m.tunnelsOpen.Inc() }
func (m *Metrics) TunnelClosed() { m.tunnelsOpen.Dec() }

// TunnelFrame counts one relayed frame; direction is "up" or "down".
func (m *Metrics) TunnelFrame(direction string) { m.tunnelFrames.WithLabelValues(direction).Inc() }

// TunnelDialError counts a failed upstream dial.
func (m *Metrics) TunnelDialError() { m.tunnelDialErr.Inc() }

// Middleware records per-route HTTP metrics.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		start := time.Now()
		c.Next()
		status := strconv.Itoa(c.Writer.Status())
		m.httpReqCnt.WithLabelValues(c.Request.Method, route, status).Inc()
		m.httpDur.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
	}
}

// Handler exposes the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
