// Package server is the http boundary of the relay. Producers post payloads
// for an identity, consumers open a websocket as that identity.
package server

import (
	"context"
	"errors"
	"io"
	"net/http"
	"slices"

	"github.com/anthdm/relay/log"
	"github.com/anthdm/relay/relay"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/handlers"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/anthdm/relay/server"

// Relay is what the server needs from the switchboard.
type Relay interface {
	Deliver(identity string, payload []byte) error
	Connect(identity string, conn relay.Conn) error
}

type InstrumentFunc func(route string, h http.Handler) http.Handler

type Options struct {
	// AllowedOrigins restricts cross origin requests and websocket upgrades.
	// Empty allows every origin.
	AllowedOrigins []string
	// MaxBodyBytes limits posted payloads. Zero means no limit.
	MaxBodyBytes int64
	// Instrument wraps the handler of every route when set.
	Instrument InstrumentFunc
	// TracerProvider starts a span per request. Nil uses the global provider.
	TracerProvider trace.TracerProvider
}

type Server struct {
	relay    Relay
	opts     Options
	upgrader websocket.Upgrader
	handler  http.Handler
	tracer   trace.Tracer
	prop     propagation.TextMapPropagator
}

func New(r Relay, opts Options) *Server {
	tp := opts.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	s := &Server{
		relay:  r,
		opts:   opts,
		tracer: tp.Tracer(tracerName),
		prop:   propagation.TraceContext{},
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}

	mux := http.NewServeMux()
	s.route(mux, "POST /messages/{identity}", "deliver", s.handleDeliver)
	s.route(mux, "GET /messages/{identity}", "connect", s.handleConnect)
	s.route(mux, "GET /healthz", "healthz", handleHealth)
	s.handler = s.cors(mux)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) route(mux *http.ServeMux, pattern, name string, h http.HandlerFunc) {
	handler := s.traced(pattern, h)
	if s.opts.Instrument != nil {
		handler = s.opts.Instrument(name, handler)
	}
	mux.Handle(pattern, handler)
}

// traced runs h inside a server span named after the route. A traceparent
// header sent by the producer becomes the parent.
func (s *Server) traced(route string, h http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := s.prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
		ctx, span := s.tracer.Start(ctx, route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("http.method", r.Method)),
		)
		defer span.End()
		if identity := r.PathValue("identity"); identity != "" {
			span.SetAttributes(attribute.String("relay.identity", identity))
		}

		m := httpsnoop.CaptureMetrics(h, w, r.WithContext(ctx))
		span.SetAttributes(attribute.Int("http.status_code", m.Code))
		if m.Code >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(m.Code))
		}
	})
}

func (s *Server) handleDeliver(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	body := io.Reader(r.Body)
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	payload, err := io.ReadAll(body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "payload too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "could not read payload", http.StatusBadRequest)
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.Int("relay.payload.size", len(payload)))

	err = s.relay.Deliver(identity, payload)
	if err != nil {
		span.RecordError(err)
	}
	switch {
	case err == nil:
		w.WriteHeader(http.StatusCreated)
	case errors.Is(err, relay.ErrNotFound):
		http.Error(w, "unknown identity", http.StatusNotFound)
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, relay.ErrClosed):
		log.Warnw("[SERVER] switchboard unavailable", log.M{"identity": identity, "err": err})
		http.Error(w, "relay unavailable", http.StatusServiceUnavailable)
	default:
		log.Errorw("[SERVER] deliver failed", log.M{"identity": identity, "err": err})
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	identity := r.PathValue("identity")
	// Upgrade replies to the client itself when it fails.
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Debugw("[SERVER] websocket upgrade failed", log.M{"identity": identity, "err": err})
		return
	}
	if err := s.relay.Connect(identity, conn); err != nil {
		log.Warnw("[SERVER] connect failed", log.M{"identity": identity, "err": err})
		_ = conn.Close()
		return
	}
	log.Debugw("[SERVER] websocket connected", log.M{
		"identity": identity,
		"remote":   r.RemoteAddr,
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, "ok\n")
}

func (s *Server) originAllowed(origin string) bool {
	return len(s.opts.AllowedOrigins) == 0 || slices.Contains(s.opts.AllowedOrigins, origin)
}

// checkOrigin lets through clients that send no Origin. Browsers always
// send one.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	return origin == "" || s.originAllowed(origin)
}

func (s *Server) cors(next http.Handler) http.Handler {
	opts := []handlers.CORSOption{
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
		handlers.OptionStatusCode(http.StatusNoContent),
	}
	// without an origin list every origin is answered with "*".
	if len(s.opts.AllowedOrigins) == 0 {
		return handlers.CORS(opts...)(next)
	}
	h := handlers.CORS(append(opts, handlers.AllowedOrigins(s.opts.AllowedOrigins))...)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "Origin")
		h.ServeHTTP(w, r)
	})
}
