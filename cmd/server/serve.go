package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"idvgate/internal/platform/config"
	"idvgate/internal/platform/httpserver"
	"idvgate/internal/platform/logger"
	platformmetrics "idvgate/internal/platform/metrics"
	platformmw "idvgate/internal/platform/middleware"
	"idvgate/internal/verification/handler"
	vmetrics "idvgate/internal/verification/metrics"
	"idvgate/internal/verification/provider"
	"idvgate/internal/verification/redirect"
	"idvgate/internal/verification/service"
	"idvgate/internal/verification/session"
	"idvgate/pkg/platform/audit/publisher"
	"idvgate/pkg/platform/circuit"
	"idvgate/pkg/platform/httputil"
	"idvgate/pkg/platform/middleware/metadata"
	"idvgate/pkg/platform/middleware/requesttime"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(cfg *config.Server) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the login hook HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, *cfg)
		},
	}
}

func serve(ctx context.Context, cfg config.Server) error {
	log := logger.New(cfg.Debug)
	for _, w := range cfg.Warnings {
		log.Warn("configuration fallback", "detail", w)
	}
	if cfg.Provider.PrivateKey == "" {
		return errors.New("IDV_PRIVATE_KEY is required")
	}

	in, err := buildInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.Close()

	auditPublisher := publisher.NewPublisher(in.audit,
		publisher.WithAsyncBuffer(auditBufferSize),
		publisher.WithLogger(log),
	)
	defer func() {
		_ = auditPublisher.Close()
		if dropped := auditPublisher.Dropped(); dropped > 0 {
			log.Warn("audit events dropped", "count", dropped)
		}
	}()

	verificationMetrics := vmetrics.New()
	client := provider.New(cfg.Provider.APIBaseURL, cfg.Provider.PrivateKey, cfg.Provider.HTTPTimeout,
		provider.WithMetrics(verificationMetrics),
		provider.WithBreaker(circuit.New("verification-provider")),
	)
	signer, err := session.NewSigner(cfg.Provider.PrivateKey, cfg.SessionTTL)
	if err != nil {
		return err
	}
	flow, err := redirect.NewHostedFlow(cfg.Provider.FlowURL, cfg.Provider.PublicKey)
	if err != nil {
		return err
	}

	svc, err := service.New(client, in.profiles, in.states, signer, flow,
		service.WithPolicy(cfg.Policy),
		service.WithReferenceBase(cfg.Provider.DashboardURL),
		service.WithStateTTL(cfg.SessionTTL),
		service.WithAuditPublisher(auditPublisher),
		service.WithMetrics(verificationMetrics),
		service.WithLogger(log),
	)
	if err != nil {
		return err
	}

	router := newRouter(log, platformmetrics.New(), in)
	handler.New(svc, in.profiles, auditPublisher, log, cfg.HookSecret, cfg.AdminToken).Register(router)

	srv := httpserver.New(cfg.Addr, router, cfg.Provider.HTTPTimeout)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting idv hook", "addr", cfg.Addr, "policy", fmt.Sprintf("%+v", cfg.Policy))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func newRouter(log *slog.Logger, m *platformmetrics.Metrics, in *infra) chi.Router {
	r := chi.NewRouter()
	r.Use(platformmw.Recovery(log))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(platformmw.Logger(log, m))

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		if err := in.Health(ctx); err != nil {
			log.WarnContext(ctx, "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}
