// cmd/server/serve.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/SyedDaiam9101/transfer-classifier/internal/config"
	"github.com/SyedDaiam9101/transfer-classifier/internal/handler"
	"github.com/SyedDaiam9101/transfer-classifier/internal/httpapi"
	"github.com/SyedDaiam9101/transfer-classifier/internal/logging"
	"github.com/SyedDaiam9101/transfer-classifier/internal/metrics"
	"github.com/SyedDaiam9101/transfer-classifier/internal/middleware"
	"github.com/SyedDaiam9101/transfer-classifier/internal/schedule"
	"github.com/SyedDaiam9101/transfer-classifier/internal/service"
	pb "github.com/SyedDaiam9101/transfer-classifier/proto/classifierpb"
)

// drainDelay gives load balancers time to see NOT_SERVING before the
// listeners close.
const drainDelay = 5 * time.Second

type loadFunc func() (*config.Config, *zap.Logger, error)

func newServeCmd(v *viper.Viper, load loadFunc) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Train at startup, then serve gRPC and HTTP with scheduled retraining",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := load()
			if err != nil {
				return err
			}
			defer logger.Sync() //nolint:errcheck
			return serve(cmdContext(cmd), cfg, logger)
		},
	}

	flags := cmd.Flags()
	flags.Int("grpc-port", 0, "gRPC server port (default: 50051)")
	flags.Int("http-port", 0, "HTTP API and metrics port (default: 9100)")
	flags.String("retrain-schedule", "", "Cron spec for scheduled retraining")
	bindFlags(v, flags, map[string]string{
		"server.grpc_port":          "grpc-port",
		"server.http_port":          "http-port",
		"training.retrain_schedule": "retrain-schedule",
	})
	return cmd
}

func serve(parent context.Context, cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logging.NewContext(ctx, logger)

	logger.Info("starting "+serviceName,
		zap.Int("grpc_port", cfg.Server.GRPCPort),
		zap.Int("http_port", cfg.Server.HTTPPort),
		zap.Bool("mock", cfg.Model.UseMock),
		zap.String("cache", cfg.Cache.Backend),
		zap.Bool("otel", cfg.OTEL.Enabled),
	)

	var tracerShutdown func(context.Context) error
	if cfg.OTEL.Enabled {
		var err error
		tracerShutdown, err = initTracer(cfg.OTEL.Endpoint)
		if err != nil {
			logger.Warn("failed to initialize tracer", zap.Error(err))
		}
	}

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	registry := service.NewRegistry()
	retrain := service.NewRetrainJob(a.svc, registry)

	// An initial failure leaves the service up but not ready; a scheduled
	// or requested retrain can still bring a model in.
	if err := retrain.Run(ctx); err != nil {
		logger.Error("initial training failed", zap.Error(err))
	}

	var scheduler *schedule.CronScheduler
	if spec := cfg.Training.RetrainSchedule; spec != "" {
		scheduler = schedule.NewCronScheduler()
		if err := scheduler.AddJob(retrain, spec); err != nil {
			return err
		}
		scheduler.Start(ctx)
	}

	healthServer := health.NewServer()

	interceptors := []grpc.UnaryServerInterceptor{
		middleware.UnaryRequestIDInterceptor(),
		middleware.UnaryMetricsInterceptor(),
	}
	var opts []grpc.ServerOption
	if cfg.OTEL.Enabled {
		opts = append(opts, grpc.StatsHandler(otelgrpc.NewServerHandler()))
	}
	opts = append(opts, grpc.ChainUnaryInterceptor(interceptors...))
	grpcServer := grpc.NewServer(opts...)

	pb.RegisterClassifierServer(grpcServer, handler.New(a.svc, registry, retrain))
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	router := httpapi.NewRouter(httpapi.Deps{
		Classifier: a.svc,
		Registry:   registry,
		Retrain:    retrain,
		Healthy: func() bool {
			resp, err := healthServer.Check(context.Background(), &healthpb.HealthCheckRequest{})
			return err == nil && resp.Status == healthpb.HealthCheckResponse_SERVING
		},
	})
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	addr := fmt.Sprintf(":%d", cfg.Server.GRPCPort)
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	healthServer.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	metrics.SetHealthy()

	errCh := make(chan error, 2)
	go func() {
		logger.Info("gRPC server listening", zap.String("addr", addr))
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("gRPC server: %w", err)
		}
	}()
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
		logger.Info("shutting down gracefully")
	case serveErr = <-errCh:
		logger.Error("server failed", zap.Error(serveErr))
	}

	healthServer.SetServingStatus(pb.ServiceName, healthpb.HealthCheckResponse_NOT_SERVING)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	metrics.SetUnhealthy()
	if serveErr == nil {
		time.Sleep(drainDelay)
	}

	if scheduler != nil {
		scheduler.Stop()
	}
	grpcServer.GracefulStop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown", zap.Error(err))
	}
	if tracerShutdown != nil {
		if err := tracerShutdown(shutdownCtx); err != nil {
			logger.Warn("tracer shutdown", zap.Error(err))
		}
	}

	logger.Info("server shutdown complete")
	return serveErr
}
