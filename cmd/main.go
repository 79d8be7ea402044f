package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	appointmentv1 "github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/api/appointment/v1"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/config"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/db"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/grpcx"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/identity"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/logging"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/metrics"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/model"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/outbox"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/payments"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/repository"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/service"
	"github.com/Sendudu2311/EV-Service-Center-Management-System-sub005/internal/telemetry"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	// 1. Load configuration from env.
	appCfg, err := config.LoadAppConfig()
	if err != nil {
		slog.Error("load app config", "err", err)
		os.Exit(1)
	}
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		slog.Error("load db config", "err", err)
		os.Exit(1)
	}

	logger := logging.New(appCfg.LogLevel, appCfg.ServiceName)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Tracing.
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:      appCfg.OTelEnabled,
		ServiceName:  appCfg.ServiceName,
		OTLPEndpoint: appCfg.OTelEndpoint,
		SampleRatio:  appCfg.OTelSampleRatio,
	})
	if err != nil {
		logger.Error("init tracing", "err", err)
		os.Exit(1)
	}

	// 3. Connect to the database through GORM and migrate.
	gormDB, err := db.NewGormDB(dbCfg)
	if err != nil {
		logger.Error("init db", "err", err)
		os.Exit(1)
	}
	if err := model.AutoMigrate(gormDB); err != nil {
		logger.Error("auto migrate", "err", err)
		os.Exit(1)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Error("sql db", "err", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	store := repository.NewStore(gormDB)

	// 4. Metrics.
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// 5. Pending deposits live in Redis; without it deposit payments are off.
	opts := service.Options{
		RefundPolicy:              appCfg.RefundPolicy,
		EnforceTechnicianWorkload: appCfg.EnforceTechnicianWorkload,
		DefaultSlotCapacity:       appCfg.DefaultSlotCapacity,
		Location:                  appCfg.Location,
		Metrics:                   m,
		Logger:                    logger,
	}
	var rdb *redis.Client
	if appCfg.RedisAddr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     appCfg.RedisAddr,
			Password: appCfg.RedisPassword,
			DB:       appCfg.RedisDB,
		})
		defer rdb.Close()

		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			logger.Warn("redis unreachable, deposit payments disabled", "addr", appCfg.RedisAddr, "err", err)
		} else {
			opts.Payments = payments.NewStore(rdb, appCfg.PendingPaymentTTL)
			if appCfg.PaymentCallbackSecret == "" {
				logger.Warn("PAYMENT_CALLBACK_SECRET not set, deposit callbacks will be rejected")
			}
		}
	} else {
		logger.Info("REDIS_ADDR not set, deposit payments disabled")
	}

	// 6. Appointment service and its gRPC facade.
	svc := service.NewAppointmentService(store, opts)
	server := service.NewAppointmentServer(svc, identity.NewResolver(store.Users, store.Technicians), appCfg.PaymentCallbackSecret, logger)

	grpcServer := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			grpcx.UnaryServerRequestIDInterceptor(),
			grpcx.UnaryServerLoggingInterceptor(logger),
		),
	)
	appointmentv1.RegisterAppointmentServiceServer(grpcServer, server)
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus(appointmentv1.ServiceName, healthpb.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", appCfg.GRPCAddr)
	if err != nil {
		logger.Error("listen", "addr", appCfg.GRPCAddr, "err", err)
		os.Exit(1)
	}

	// 7. Ops HTTP: liveness, readiness and metrics.
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(checkCtx); err != nil {
			http.Error(w, "database: "+err.Error(), http.StatusServiceUnavailable)
			return
		}
		if rdb != nil {
			if err := rdb.Ping(checkCtx).Err(); err != nil {
				http.Error(w, "redis: "+err.Error(), http.StatusServiceUnavailable)
				return
			}
		}
		_, _ = w.Write([]byte("ready"))
	})
	router.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	httpServer := &http.Server{
		Addr:              appCfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 8. Outbox relay to Kafka.
	if kw := outbox.NewKafkaWriter(appCfg.KafkaBrokers); kw != nil {
		defer kw.Close()
		publisher := outbox.NewPublisher(store.Outbox, kw, logger, m, outbox.Config{
			Topic:     appCfg.KafkaTopic,
			PollEvery: appCfg.OutboxPollInterval,
			BatchSize: appCfg.OutboxBatchSize,
		})
		go publisher.Run(ctx)
	} else {
		logger.Info("KAFKA_BROKERS not set, outbox events stay in the database")
	}

	// 9. Serve.
	go func() {
		logger.Info("grpc server listening", "addr", appCfg.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("grpc serve", "err", err)
			stop()
		}
	}()
	go func() {
		logger.Info("ops http server listening", "addr", appCfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve", "err", err)
			stop()
		}
	}()

	// 10. Graceful shutdown on signal.
	<-ctx.Done()
	logger.Info("shutting down")
	healthSrv.Shutdown()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "err", err)
	}
	grpcServer.GracefulStop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracing shutdown", "err", err)
	}
}
