package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/loqalabs/loqa-sing/internal/bus"
	"github.com/loqalabs/loqa-sing/internal/capability"
	"github.com/loqalabs/loqa-sing/internal/config"
	"github.com/loqalabs/loqa-sing/internal/engine"
	"github.com/loqalabs/loqa-sing/internal/eventstore"
	"github.com/loqalabs/loqa-sing/internal/natsserver"
	"github.com/loqalabs/loqa-sing/internal/service"
)

const pruneInterval = time.Hour

type Runtime struct {
	cfg         config.Config
	logger      *slog.Logger
	httpServer  *http.Server
	tracerClose func(context.Context) error
	nats        *natsserver.EmbeddedServer
	bus         *bus.Client
	store       *eventstore.Store
	service     *service.Service
	registry    *capability.Registry
	ready       atomic.Bool
	wg          sync.WaitGroup
}

func New(cfg config.Config, logger *slog.Logger) *Runtime {
	return &Runtime{
		cfg:    cfg,
		logger: logger,
	}
}

func (r *Runtime) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTelemetry, metricsHandler, err := setupTelemetry(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("failed to setup telemetry: %w", err)
	}
	r.tracerClose = shutdownTelemetry
	defer r.closeTelemetry()

	if err := r.startComponents(ctx); err != nil {
		r.stopComponents()
		return err
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", r.handleHealth)
	mux.HandleFunc("/readyz", r.handleReady)
	mux.HandleFunc("/renders", r.handleRenders)
	mux.HandleFunc("/renderers", r.handleRenderers)
	if metricsHandler != nil {
		mux.Handle("/metrics", metricsHandler)
	}

	addr := fmt.Sprintf("%s:%d", r.cfg.HTTP.Bind, r.cfg.HTTP.Port)
	r.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			r.logger.Error("http server failed", slog.String("error", err.Error()))
		}
	}()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.runPrune(ctx)
	}()

	r.ready.Store(true)
	r.logger.Info("runtime started", slog.String("addr", addr))

	<-ctx.Done()
	r.ready.Store(false)
	r.logger.Info("runtime stopping")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := r.httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Error("http shutdown error", slog.String("error", err.Error()))
	}
	r.wg.Wait()
	r.stopComponents()

	return nil
}

func (r *Runtime) startComponents(ctx context.Context) error {
	ns, err := natsserver.Start(r.cfg.Bus, r.logger)
	if err != nil {
		return fmt.Errorf("start embedded nats: %w", err)
	}
	r.nats = ns

	busCfg := r.cfg.Bus
	if url := ns.ClientURL(); url != "" {
		busCfg.Servers = []string{url}
	}
	r.bus, err = bus.Connect(ctx, busCfg, r.logger)
	if err != nil {
		return err
	}

	r.store, err = eventstore.Open(ctx, r.cfg.EventStore, r.logger)
	if err != nil {
		return fmt.Errorf("open event store: %w", err)
	}

	orch, err := engine.FromConfig(r.cfg, r.logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}

	r.service = service.NewService(ctx, r.cfg, r.bus, orch, r.store, r.logger)
	if err := r.service.Start(); err != nil {
		return err
	}

	r.registry, err = capability.NewRegistry(ctx, r.cfg.Node, capability.ForRenderer(orch.Config()), r.bus, r.logger)
	if err != nil {
		return fmt.Errorf("start renderer registry: %w", err)
	}
	return nil
}

// stopComponents releases whatever startComponents managed to create, in
// reverse order.
func (r *Runtime) stopComponents() {
	if r.registry != nil {
		r.registry.Close()
	}
	if r.service != nil {
		r.service.Close()
	}
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			r.logger.Error("event store close error", slog.String("error", err.Error()))
		}
	}
	r.bus.Close()
	r.nats.Shutdown()
}

func (r *Runtime) closeTelemetry() {
	if r.tracerClose == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.tracerClose(ctx); err != nil {
		r.logger.Error("telemetry shutdown error", slog.String("error", err.Error()))
	}
}

func (r *Runtime) runPrune(ctx context.Context) {
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := r.store.Prune(ctx); err != nil {
				r.logger.Warn("event store prune failed", slog.String("error", err.Error()))
			}
		}
	}
}

func (r *Runtime) isReady() bool {
	return r.ready.Load() && r.bus.Healthy() && r.service.Healthy()
}

func (r *Runtime) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (r *Runtime) handleReady(w http.ResponseWriter, _ *http.Request) {
	if r.isReady() {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
	_, _ = w.Write([]byte("not ready"))
}

func (r *Runtime) handleRenders(w http.ResponseWriter, req *http.Request) {
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	renders, err := r.store.ListRenders(req.Context(), limit)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, renders)
}

func (r *Runtime) handleRenderers(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, r.registry.Query(nil))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
