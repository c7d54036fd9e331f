package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anthdm/relay/actor"
	"github.com/anthdm/relay/config"
	"github.com/anthdm/relay/log"
	"github.com/anthdm/relay/metrics"
	"github.com/anthdm/relay/relay"
	"github.com/anthdm/relay/server"
	"github.com/anthdm/relay/tracing"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a yaml config file")
		listenAddr  = flag.String("listen", "", "listen address of the relay, overrides the config")
		metricsAddr = flag.String("metrics", "", "listen address of the prometheus handler, overrides the config")
		logLevel    = flag.String("loglevel", "", "log level, overrides the config")
		logJSON     = flag.Bool("logjson", false, "log one json object per line")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalw("[RELAY] could not load config", log.M{"err": err})
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}
	if *logJSON {
		cfg.Log.JSON = true
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalw("[RELAY] invalid config", log.M{"err": err})
	}
	log.SetLevel(cfg.LogLevel())
	log.SetJSON(cfg.Log.JSON)

	if err := run(cfg); err != nil {
		log.Fatalw("[RELAY] stopped", log.M{"err": err})
	}
}

func run(cfg config.Config) error {
	shutdownTracing, err := tracing.Setup(context.Background(), cfg.TracingConfig())
	if err != nil {
		return err
	}

	e, err := actor.NewEngine(actor.NewEngineConfig())
	if err != nil {
		return err
	}

	var (
		m        = metrics.New("relay")
		relayCfg = cfg.RelayConfig()
	)
	m.Spawn(e)
	relayCfg.Middleware = append(relayCfg.Middleware, m.Middleware())

	sb, err := relay.New(e, relayCfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr: cfg.ListenAddr,
		Handler: server.New(sb, server.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			MaxBodyBytes:   cfg.MaxBodyBytes,
			Instrument:     m.InstrumentHandler,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}
	servers := []*http.Server{srv}
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("GET /metrics", m.Handler())
		servers = append(servers, &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		})
	}

	errch := make(chan error, len(servers))
	for _, s := range servers {
		go func() {
			log.Infow("[RELAY] listening", log.M{"addr": s.Addr})
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errch <- err
			}
		}()
	}

	sigch := make(chan os.Signal, 1)
	signal.Notify(sigch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-sigch:
		log.Infow("[RELAY] shutting down", log.M{"signal": sig.String()})
	case err = <-errch:
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, s := range servers {
		_ = s.Shutdown(ctx)
	}
	<-e.Poison(sb.PID()).Done()
	if terr := shutdownTracing(ctx); terr != nil {
		log.Warnw("[RELAY] could not flush spans", log.M{"err": terr})
	}
	return err
}
