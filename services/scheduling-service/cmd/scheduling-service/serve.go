package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
	_ "time/tzdata"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"google.golang.org/grpc"

	"github.com/md-rashed-zaman/clinicagenda/libs/auth"
	"github.com/md-rashed-zaman/clinicagenda/libs/config"
	"github.com/md-rashed-zaman/clinicagenda/libs/grpcx"
	"github.com/md-rashed-zaman/clinicagenda/libs/httpx"
	"github.com/md-rashed-zaman/clinicagenda/libs/kafkax"
	otelx "github.com/md-rashed-zaman/clinicagenda/libs/otel"
	"github.com/md-rashed-zaman/clinicagenda/libs/runtime"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/availability"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/booking"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/documents"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/grpcserver"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/handlers"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/holidays"
	"github.com/md-rashed-zaman/clinicagenda/services/scheduling-service/internal/outbox"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP and gRPC APIs and the outbox publisher",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func setupTracing(ctx context.Context, logger *slog.Logger) func() {
	shutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
		return func() {}
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdown(ctx)
	}
}

func newVerifier() (*auth.Verifier, error) {
	opts := auth.VerifierOptions{
		Secret: config.String("JWT_SECRET", ""),
		Issuer: config.String("JWT_ISSUER", ""),
		Leeway: config.Duration("JWT_LEEWAY", 30*time.Second),
	}
	if url := config.String("JWKS_URL", ""); url != "" {
		opts.Keys = auth.NewJWKSClient(url, config.Duration("JWKS_TTL", 10*time.Minute))
	}
	return auth.NewVerifier(opts)
}

func clinicLocation() (*time.Location, error) {
	name := config.String("CLINIC_TIMEZONE", "America/Sao_Paulo")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

func runServe() error {
	logger := runtime.NewLogger(config.String("SERVICE_NAME", serviceName), config.String("LOG_LEVEL", "info"))
	port, err := config.Port("PORT", "8080")
	if err != nil {
		return err
	}
	grpcPort, err := config.Port("GRPC_PORT", "9090")
	if err != nil {
		return err
	}

	ctx, stop := runtime.SignalContext()
	defer stop()
	defer setupTracing(ctx, logger)()

	be, err := openBackend(ctx, logger, config.Bool("DB_AUTO_MIGRATE", true))
	if err != nil {
		logger.Error("storage init failed", "err", err)
		return err
	}
	defer be.close()

	checks := []runtime.ReadyCheck{be.ready}

	var cache holidays.Cache
	rateLimit := config.Int("RATE_LIMIT_PER_MINUTE", 120)
	var limiter httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: config.String("REDIS_PASSWORD", ""),
			DB:       config.Int("REDIS_DB", 0),
		})
		defer rdb.Close()
		cache = rdb
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
		limiter = httpx.NewRedisRateLimiter(rdb, rateLimit, time.Minute, "ratelimit:scheduling", httpx.ClientIP).
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		limiter = httpx.NewRateLimiter(rateLimit, time.Minute, httpx.ClientIP).Middleware()
	}

	verifier, err := newVerifier()
	if err != nil {
		return err
	}
	loc, err := clinicLocation()
	if err != nil {
		return err
	}

	calendar := holidays.NewService(be.store, cache, config.Duration("HOLIDAY_CACHE_TTL", 10*time.Minute), logger)
	docs := documents.NewGenerator(config.String("STORAGE_DIR", "storage"),
		documents.WithFolderCapacity(config.Int("SUMMARY_FOLDER_CAPACITY", 400)))
	bookings := booking.NewService(be.store, docs, logger, booking.Config{
		StrictTransitions: config.Bool("SCHEDULING_STRICT_TRANSITIONS", true),
		OverlapActiveOnly: config.Bool("SCHEDULING_OVERLAP_ACTIVE_ONLY", false),
		Location:          loc,
	})
	finder := availability.NewFinder(calendar, be.store, logger)

	api := handlers.NewAPI(verifier, logger,
		handlers.NewAppointmentHandler(bookings, finder, logger),
		handlers.NewHolidayHandler(calendar, logger),
	)

	brokers := kafkax.SplitBrokers(config.String("KAFKA_BROKERS", ""))
	if len(brokers) > 0 {
		checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		writer := outbox.NewKafkaWriter(brokers)
		defer writer.Close()
		publisher := outbox.NewPublisher(be.outbox, writer, logger, outbox.PublisherConfig{
			PollEvery: config.Duration("OUTBOX_POLL_EVERY", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)
	} else {
		logger.Warn("KAFKA_BROKERS not set; outbox events stay unpublished")
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("/api/", httpx.Chain(api,
		httpx.WithRecover(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		limiter,
		httpx.WithBodyLimit(int64(config.Int("HTTP_BODY_LIMIT_BYTES", 1<<20))),
		httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 15*time.Second)),
	))
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           otelhttp.NewHandler(mux, "scheduling"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", ":"+grpcPort)
	if err != nil {
		return fmt.Errorf("grpc listen: %w", err)
	}
	grpcSrv := grpc.NewServer(grpcx.ServerOptions(logger)...)
	grpcserver.Register(grpcSrv, grpcserver.NewServer(finder, bookings, logger))

	go func() {
		logger.Info("grpc server starting", "addr", lis.Addr().String())
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("grpc server error", "err", err)
		}
	}()
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("scheduling service stopped")
	return nil
}
