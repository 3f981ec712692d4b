package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/pubsub"
	cloudstorage "cloud.google.com/go/storage"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/NomanAhmed1999/vatika/internal/handlers"
	"github.com/NomanAhmed1999/vatika/internal/platform/auth"
	"github.com/NomanAhmed1999/vatika/internal/platform/config"
	pfirestore "github.com/NomanAhmed1999/vatika/internal/platform/firestore"
	"github.com/NomanAhmed1999/vatika/internal/platform/idempotency"
	"github.com/NomanAhmed1999/vatika/internal/platform/jobs"
	"github.com/NomanAhmed1999/vatika/internal/platform/observability"
	platformstorage "github.com/NomanAhmed1999/vatika/internal/platform/storage"
	firestoreRepo "github.com/NomanAhmed1999/vatika/internal/repositories/firestore"
	"github.com/NomanAhmed1999/vatika/internal/services"
)

func main() {
	ctx := context.Background()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	storageClient, err := cloudstorage.NewClient(ctx)
	if err != nil {
		logger.Fatal("failed to initialise storage client", zap.Error(err))
	}
	defer func() {
		if err := storageClient.Close(); err != nil {
			logger.Warn("storage close error", zap.Error(err))
		}
	}()

	var storeOpts []platformstorage.GCSOption
	if keyFile := strings.TrimSpace(cfg.Storage.SignerKeyFile); keyFile != "" {
		signer, err := platformstorage.NewServiceAccountSignerFromFile(keyFile)
		if err != nil {
			logger.Fatal("failed to load storage signer key", zap.Error(err))
		}
		storeOpts = append(storeOpts, platformstorage.WithSigner(signer))
	} else {
		logger.Warn("storage signer key not configured; signed download URLs are disabled")
	}
	objectStore, err := platformstorage.NewGCSStore(storageClient, storeOpts...)
	if err != nil {
		logger.Fatal("failed to initialise object store", zap.Error(err))
	}

	var orderPublisher services.OrderEventPublisher
	if !cfg.PubSub.PublishDisabled {
		pubsubClient, err := pubsub.NewClient(ctx, cfg.PubSub.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		publisher, err := jobs.NewPubSubOrderPublisher(jobs.PubSubOrderPublisherDeps{
			Client: pubsubClient,
			Topic:  cfg.PubSub.OrderTopic,
		})
		if err != nil {
			logger.Fatal("failed to initialise order publisher", zap.Error(err))
		}
		defer publisher.Stop()
		orderPublisher = publisher
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithHeader(cfg.Idempotency.Header),
		idempotency.WithTTL(cfg.Idempotency.TTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	sessionRepo, err := firestoreRepo.NewWizardSessionRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise session repository", zap.Error(err))
	}
	customerRepo, err := firestoreRepo.NewCustomerRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise customer repository", zap.Error(err))
	}
	adminRepo, err := firestoreRepo.NewAdminUserRepository(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise admin user repository", zap.Error(err))
	}

	tokenManager, err := auth.NewTokenManager(cfg.Admin.TokenSecret, auth.WithTokenTTL(cfg.Admin.TokenTTL))
	if err != nil {
		logger.Fatal("failed to initialise token manager", zap.Error(err))
	}

	orderService, err := services.NewOrderService(services.OrderServiceDeps{
		Customers: customerRepo,
		Publisher: orderPublisher,
		Logger:    serviceLogger(logger.Named("orders")),
	})
	if err != nil {
		logger.Fatal("failed to initialise order service", zap.Error(err))
	}
	wizardService, err := services.NewWizardService(services.WizardServiceDeps{
		Sessions:      sessionRepo,
		Orders:        orderService,
		Store:         objectStore,
		UploadsBucket: cfg.Storage.UploadsBucket,
		RendersBucket: cfg.Storage.RendersBucket,
		Logger:        serviceLogger(logger.Named("wizard")),
	})
	if err != nil {
		logger.Fatal("failed to initialise wizard service", zap.Error(err))
	}
	processingClient, err := services.NewHTTPProcessingClient(services.HTTPProcessingClientDeps{
		Endpoint:   cfg.Processing.Endpoint,
		AuthToken:  cfg.Processing.AuthToken,
		HTTPClient: &http.Client{Timeout: cfg.Processing.Timeout},
		Logger:     serviceLogger(logger.Named("processing")),
	})
	if err != nil {
		logger.Fatal("failed to initialise processing client", zap.Error(err))
	}
	photoService, err := services.NewPhotoService(services.PhotoServiceDeps{
		Sessions:      sessionRepo,
		Store:         objectStore,
		UploadsBucket: cfg.Storage.UploadsBucket,
		Processing:    processingClient,
		MaxPhotoBytes: cfg.Wizard.UploadMaxBytes,
		Logger:        serviceLogger(logger.Named("photos")),
	})
	if err != nil {
		logger.Fatal("failed to initialise photo service", zap.Error(err))
	}
	compositionService, err := services.NewCompositionService(services.CompositionServiceDeps{
		Sessions:      sessionRepo,
		Store:         objectStore,
		UploadsBucket: cfg.Storage.UploadsBucket,
		RendersBucket: cfg.Storage.RendersBucket,
		PublicBaseURL: cfg.Share.PublicBaseURL,
		ShareText:     cfg.Share.ShareText,
		DownloadTTL:   cfg.Storage.SignedURLTTL,
		Logger:        serviceLogger(logger.Named("compositions")),
	})
	if err != nil {
		logger.Fatal("failed to initialise composition service", zap.Error(err))
	}
	customerService, err := services.NewCustomerService(services.CustomerServiceDeps{
		Customers: customerRepo,
		Logger:    serviceLogger(logger.Named("customers")),
	})
	if err != nil {
		logger.Fatal("failed to initialise customer service", zap.Error(err))
	}
	adminAuthService, err := services.NewAdminAuthService(services.AdminAuthServiceDeps{
		Users:  adminRepo,
		Tokens: tokenManager,
		Logger: serviceLogger(logger.Named("admin")),
	})
	if err != nil {
		logger.Fatal("failed to initialise admin auth service", zap.Error(err))
	}

	if email := strings.TrimSpace(cfg.Admin.BootstrapEmail); email != "" {
		bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := services.BootstrapAdmin(bootstrapCtx, adminRepo, email,
			func() string { return "adm_" + ulid.Make().String() },
			time.Now,
			serviceLogger(logger.Named("admin")),
		)
		cancel()
		if err != nil {
			logger.Fatal("failed to bootstrap admin account", zap.Error(err))
		}
	}

	backgroundCtx, backgroundCancel := context.WithCancel(context.Background())
	var backgroundWG sync.WaitGroup
	startIdempotencyCleanup(backgroundCtx, &backgroundWG, cfg, idempotencyStore, logger)
	startSessionSweeper(backgroundCtx, &backgroundWG, cfg, sessionRepo, logger)

	projectID := strings.TrimSpace(cfg.Server.ProjectID)
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
	}

	healthHandlers := handlers.NewHealthHandlers(handlers.ReadinessCheck{
		Name: "firestore",
		Check: func(ctx context.Context) error {
			checkCtx, cancel := context.WithTimeout(ctx, 1500*time.Millisecond)
			defer cancel()
			iter := firestoreClient.Collections(checkCtx)
			_, err := iter.Next()
			if errors.Is(err, iterator.Done) {
				return nil
			}
			return err
		},
	})

	wizardHandlers := handlers.NewWizardHandlers(wizardService, photoService, compositionService, cfg.Wizard.UploadMaxBytes)
	orderHandlers := handlers.NewOrderHandlers(orderService)
	publicHandlers := handlers.NewPublicHandlers(compositionService)
	proxyHandlers := handlers.NewImageProxyHandlers(cfg.Proxy.AllowedHosts, cfg.Proxy.Timeout, cfg.Proxy.MaxBytes)
	adminHandlers := handlers.NewAdminHandlers(adminAuthService, customerService, auth.RequireAdmin(tokenManager))

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithWizardRoutes(wizardHandlers.Routes),
		handlers.WithPublicRoutes(publicHandlers.Routes),
		handlers.WithProxyRoutes(proxyHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithOrderMiddlewares(idempotencyMiddleware),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("vatika api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	backgroundCancel()
	backgroundWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

// serviceLogger adapts zap to the event-map logging hook the services accept.
func serviceLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	sugar := logger.Sugar()
	return func(_ context.Context, event string, fields map[string]any) {
		args := make([]any, 0, len(fields)*2)
		for k, v := range fields {
			args = append(args, k, v)
		}
		sugar.Infow(event, args...)
	}
}

func startIdempotencyCleanup(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, store *idempotency.FirestoreStore, logger *zap.Logger) {
	if cfg.Idempotency.CleanupInterval <= 0 {
		return
	}
	ticker := time.NewTicker(cfg.Idempotency.CleanupInterval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		cleanupLogger := logger.Named("idempotency")
		for {
			select {
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, time.Minute)
				removed, err := store.CleanupExpired(runCtx, time.Now().UTC(), cfg.Idempotency.CleanupBatchSize)
				cancel()
				if err != nil {
					cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
					continue
				}
				if removed > 0 {
					cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

func startSessionSweeper(ctx context.Context, wg *sync.WaitGroup, cfg config.Config, sessions *firestoreRepo.WizardSessionRepository, logger *zap.Logger) {
	interval := cfg.Wizard.SessionTTL / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer ticker.Stop()
		sweepLogger := logger.Named("sessions")
		for {
			select {
			case <-ticker.C:
				runCtx, cancel := context.WithTimeout(ctx, time.Minute)
				cutoff := time.Now().UTC().Add(-cfg.Wizard.SessionTTL)
				removed, err := sessions.DeleteExpired(runCtx, cutoff, 200)
				cancel()
				if err != nil {
					sweepLogger.Error("session sweep error", zap.Error(err))
					continue
				}
				if removed > 0 {
					sweepLogger.Info("expired sessions removed", zap.Int("count", removed))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}
