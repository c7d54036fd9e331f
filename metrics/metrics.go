// Package metrics exposes the relay's Prometheus collectors. A collector
// actor counts engine and relay events, a middleware measures how long
// workers take per message and an http wrapper instruments the server.
package metrics

import (
	"net/http"
	"time"

	"github.com/anthdm/relay/actor"
	"github.com/anthdm/relay/relay"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	active      *prometheus.GaugeVec
	rebirths    prometheus.Counter
	pruned      prometheus.Counter
	dropped     prometheus.Counter
	payloads    prometheus.Counter
	frames      prometheus.Counter
	deadLetters prometheus.Counter
	restarts    *prometheus.CounterVec

	msgLatency   *prometheus.HistogramVec
	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec
}

// New registers every collector on a fresh registry, together with the Go
// runtime and process collectors.
func New(namespace string) *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)
	return &Metrics{
		registry: reg,
		active: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_workers",
			Help:      "number of running workers by kind",
		}, []string{"kind"}),
		rebirths: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mailbox_rebirths_total",
			Help:      "mailboxes replaced by a new generation on connect",
		}),
		pruned: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sockets_pruned_total",
			Help:      "closed sockets removed from a mailbox during fan-out",
		}),
		dropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_dropped_total",
			Help:      "payloads for identities whose mailbox had stopped",
		}),
		payloads: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payloads_delivered_total",
			Help:      "payloads fanned out by a mailbox",
		}),
		frames: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_queued_total",
			Help:      "frames handed to sockets",
		}),
		deadLetters: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dead_letters_total",
			Help:      "messages sent to unknown processes",
		}),
		restarts: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "worker_crashes_total",
			Help:      "worker panics by kind",
		}, []string{"kind"}),
		msgLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "worker_message_seconds",
			Help:      "time a worker spends on one message",
			Buckets:   []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1},
		}, []string{"kind"}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "http requests by route, method and status code",
		}, []string{"route", "method", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "http request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route", "method", "code"}),
	}
}

func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Handler serves the exposition format for the registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Middleware observes the time every message takes, labeled by the kind of
// the receiving worker.
func (m *Metrics) Middleware() actor.MiddlewareFunc {
	return func(next actor.ReceiveFunc) actor.ReceiveFunc {
		return func(c *actor.Context) {
			start := time.Now()
			next(c)
			m.msgLatency.WithLabelValues(c.PID().Kind()).Observe(time.Since(start).Seconds())
		}
	}
}

// InstrumentHandler counts and times the requests served by h.
func (m *Metrics) InstrumentHandler(route string, h http.Handler) http.Handler {
	labels := prometheus.Labels{"route": route}
	return promhttp.InstrumentHandlerDuration(
		m.httpDuration.MustCurryWith(labels),
		promhttp.InstrumentHandlerCounter(m.httpRequests.MustCurryWith(labels), h),
	)
}

// Spawn starts the collector actor on e. It subscribes itself to the event
// stream, so it only sees workers spawned after it.
func (m *Metrics) Spawn(e *actor.Engine) *actor.PID {
	return e.Spawn(func() actor.Receiver { return &collector{m: m} }, "metrics", actor.WithID("collector"))
}

type collector struct {
	m *Metrics
}

func (c *collector) Receive(ctx *actor.Context) {
	switch msg := ctx.Message().(type) {
	case actor.Started:
		ctx.Engine().Subscribe(ctx.PID())
	case actor.Stopped:
		ctx.Engine().Unsubscribe(ctx.PID())
	case actor.ActorStartedEvent:
		if tracked(msg.PID) {
			c.m.active.WithLabelValues(msg.PID.Kind()).Inc()
		}
	case actor.ActorStoppedEvent:
		if tracked(msg.PID) {
			c.m.active.WithLabelValues(msg.PID.Kind()).Dec()
		}
	case actor.ActorRestartedEvent:
		c.m.restarts.WithLabelValues(msg.PID.Kind()).Inc()
		// the restart broadcasts another started event.
		if tracked(msg.PID) {
			c.m.active.WithLabelValues(msg.PID.Kind()).Dec()
		}
	case actor.ActorMaxRestartsExceededEvent:
		c.m.restarts.WithLabelValues(msg.PID.Kind()).Inc()
	case actor.DeadLetterEvent:
		c.m.deadLetters.Inc()
	case relay.MailboxRebirthEvent:
		c.m.rebirths.Inc()
	case relay.SocketPrunedEvent:
		c.m.pruned.Inc()
	case relay.MessageDroppedEvent:
		c.m.dropped.Inc()
	case relay.PayloadDeliveredEvent:
		c.m.payloads.Inc()
		c.m.frames.Add(float64(msg.Sockets))
	}
}

// tracked reports whether pid belongs to a relay worker. Request responders
// and the collector itself are left out.
func tracked(pid *actor.PID) bool {
	switch pid.Kind() {
	case "mailbox", "socket", "switchboard":
		return true
	}
	return false
}
