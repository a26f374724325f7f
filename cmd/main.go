package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront_service/config"
	"storefront_service/internal/cart"
	"storefront_service/internal/clients"
	"storefront_service/internal/delivery"
	"storefront_service/internal/domain"
	"storefront_service/internal/messaging"
	"storefront_service/internal/metrics"
	"storefront_service/internal/repository"
	"storefront_service/internal/usecase"
	"storefront_service/pkg/db"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const shutdownTimeout = 10 * time.Second

func main() {
	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfg := config.LoadConfig(logger)
	logLevel, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		logLevel = logrus.InfoLevel
		logger.Warnf("Invalid LOG_LEVEL '%s', using default: %s", cfg.LogLevel, logLevel.String())
	}
	logger.SetLevel(logLevel)
	logger.Info("Starting Storefront Service...")
	logger.Infof("Log level set to: %s", logLevel.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// --- Dependency Injection ---
	cartRepo, closeRepo, err := newCartRepository(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize cart storage (%s): %v", cfg.CartStoreBackend, err)
	}
	defer closeRepo()
	logger.Infof("Cart storage initialized: %s", cfg.CartStoreBackend)

	catalog := clients.NewCachedCatalog(
		clients.NewCatalogHTTPClient(cfg.CatalogAPIURL, cfg.CatalogTimeout, m, logger),
		cfg.CatalogProductTTL,
		cfg.CatalogCategoryTTL,
		logger,
	)
	logger.Infof("Catalog Client initialized for target: %s", cfg.CatalogAPIURL)

	publisher := newOrderPublisher(cfg, logger)
	defer publisher.Close()

	carts := cart.NewManager(cartRepo, cfg.CartPersistTimeout, m, logger)
	defer carts.Close()

	catalogUseCase := usecase.NewCatalogUseCase(catalog, logger)
	cartUseCase := usecase.NewCartUseCase(carts, catalog, logger)
	checkoutUseCase := usecase.NewCheckoutUseCase(carts, publisher, m, logger)
	logger.Info("Use cases initialized.")

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.RedirectTrailingSlash = false
	router.Use(gin.Recovery(), delivery.RequestLogger(logger))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "carts": carts.Len()})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	storefront := router.Group("/")
	storefront.Use(delivery.SessionMiddleware(cfg.SessionCookie, logger))
	delivery.NewCatalogHandler(catalogUseCase, logger).RegisterRoutes(storefront)
	delivery.NewCartHandler(cartUseCase, logger).RegisterRoutes(storefront)
	delivery.NewCheckoutHandler(checkoutUseCase, logger).RegisterRoutes(storefront)
	logger.Info("Routes registered.")

	httpServer := &http.Server{
		Addr:              cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)
	healthServer.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)

	// --- Start Servers ---
	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("Starting HTTP server on port %s", cfg.HTTPPort)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		lis, err := net.Listen("tcp", cfg.GrpcPort)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", cfg.GrpcPort, err)
		}
		logger.Infof("Starting gRPC health server on port %s", cfg.GrpcPort)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Infof("Evicting carts idle for %s every %s", cfg.CartIdleTimeout, cfg.CartSweepInterval)
		carts.Run(gCtx, cfg.CartSweepInterval, cfg.CartIdleTimeout)
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("Shutting down servers...")
		healthServer.Shutdown()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		grpcServer.GracefulStop()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Errorf("Server stopped with error: %v", err)
	}
	logger.Info("Storefront Service stopped.")
}

// newCartRepository builds the configured cart backend. The returned func
// releases its connections.
func newCartRepository(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (domain.CartRepository, func(), error) {
	noop := func() {}
	switch cfg.CartStoreBackend {
	case config.BackendPostgres:
		database, err := db.Connect(cfg.DatabaseURL)
		if err != nil {
			return nil, noop, err
		}
		if err := db.Migrate(ctx, database); err != nil {
			database.Close()
			return nil, noop, err
		}
		logger.Info("Database connection established.")
		return repository.NewPostgresCartRepository(database, logger), func() { database.Close() }, nil
	case config.BackendRedis:
		client, err := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisDB, logger)
		if err != nil {
			return nil, noop, err
		}
		return repository.NewRedisCartRepository(client, cfg.RedisCartTTL, logger), func() { client.Close() }, nil
	case config.BackendFile:
		repo, err := repository.NewFileCartRepository(cfg.CartFileDir, logger)
		return repo, noop, err
	default:
		return repository.NewMemoryCartRepository(), noop, nil
	}
}

func newOrderPublisher(cfg *config.Config, logger *logrus.Logger) domain.OrderPublisher {
	if cfg.RabbitMQURI == "" {
		logger.Info("RABBITMQ_URI not set, orders will only be logged")
		return messaging.NewLogPublisher(logger)
	}
	publisher, err := messaging.NewAMQPPublisher(cfg.RabbitMQURI, cfg.OrderQueue, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to initialize order publisher: %v", err)
	}
	return publisher
}
