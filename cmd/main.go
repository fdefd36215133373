package main

import (
	"chat-relay/contract"
	"chat-relay/infrastructure/cache"
	grpcserver "chat-relay/infrastructure/grpc/server"
	httpserver "chat-relay/infrastructure/http"
	"chat-relay/infrastructure/http/controller"
	"chat-relay/notifier"
	"chat-relay/observability"
	"chat-relay/repositories"
	"chat-relay/repositories/postgres"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

const serviceName = "chat-relay"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// stores groups the persistence side chosen by STORE.
type stores struct {
	messages contract.IMessageRepository
	contacts contract.IContactRepository
	close    func()
}

// run wires every component and blocks until a signal or a server failure.
// Deferred closers run before main exits.
func run() error {
	// 1. Configuration & Logger
	_ = godotenv.Load()
	var config Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if err := config.Validate(); err != nil {
		return err
	}
	log := logs.GetLoggerFromString(config.LogLevel)

	// 2. Context & Signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.SetupTracing(ctx, serviceName, config.OtelEndpoint)
	if err != nil {
		return fmt.Errorf("tracing setup failed: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
		defer cancel()
		_ = shutdownTracing(flushCtx)
	}()

	// 3. Storage
	s, err := openStores(ctx, config, log)
	if err != nil {
		return err
	}
	defer s.close()

	if config.RedisURL != "" {
		redisCache, err := cache.NewRedisCache(ctx, config.RedisURL)
		if err != nil {
			return fmt.Errorf("redis connection failed: %w", err)
		}
		defer func() { _ = redisCache.Close() }()
		s.contacts = repositories.NewCachedContactRepository(s.contacts, redisCache, config.ContactCacheTTL, log)
		log.Info("Contact cache enabled", "ttl", config.ContactCacheTTL)
	}

	notify, closeNotifier, err := openNotifier(ctx, config, log)
	if err != nil {
		return err
	}
	defer closeNotifier()

	// 4. Relay & Supervision
	registry := runtime.NewRegistry()
	monitoring := observability.NewMonitoringManager(log, registry.RoomCount, config.MetricInterval)
	relay := runtime.NewRelay(log, registry, s.messages, config.QueueSize, config.SendTimeout,
		runtime.WithMonitoring(monitoring))

	sup := workers.NewSupervisor(log)
	sup.Add(
		workers.NewNotifyWorker(log, notify, relay.NotifyJobs(), config.NotifyTimeout),
		workers.NewActivityWorker(log, s.contacts, relay.ActivityJobs(), config.ActivityTimeout),
		workers.NewChannelCapacityWorker(log, []workers.NamedChannel{
			{Name: "notify", Channel: relay.NotifyJobs()},
			{Name: "activity", Channel: relay.ActivityJobs()},
		}, config.MetricInterval),
		monitoring,
	)
	chatService := services.NewChatService(relay)
	queryService := services.NewQueryService(log, s.messages, s.contacts)
	sessions := controller.NewSessions()

	// 5. Listeners, both bound before anything is served
	httpAddress := fmt.Sprintf("%s:%d", config.Host, config.Port)
	httpListener, err := net.Listen("tcp", httpAddress)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", httpAddress, err)
	}
	grpcAddress := fmt.Sprintf("%s:%d", config.Host, config.GRPCPort)
	grpcListener, err := net.Listen("tcp", grpcAddress)
	if err != nil {
		_ = httpListener.Close()
		return fmt.Errorf("failed to listen on %s: %w", grpcAddress, err)
	}

	supervised := make(chan struct{})
	go func() {
		defer close(supervised)
		sup.Run(ctx)
	}()
	errChan := make(chan error, 2)

	// 6. HTTP & WebSocket Server
	router := httpserver.NewRouter(log, chatService, queryService, httpserver.RouterConfig{
		AllowedOrigins: config.Origins(),
		RequestTimeout: config.RequestTimeout,
		Monitoring:     monitoring,
		Socket: controller.SocketConfig{
			BufferSize:      config.ConnectionBufferSize,
			ReadTimeout:     config.ReadTimeout,
			InflightTimeout: config.RequestTimeout,
			Sessions:        sessions,
		},
	})
	httpSrv := &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("Starting HTTP server", "address", httpAddress)
		if err := httpSrv.Serve(httpListener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// 7. gRPC Server
	grpcSrv := grpcserver.NewGRPCServer(log, queryService)
	go func() {
		log.Info("Starting gRPC server", "address", grpcAddress)
		for name := range grpcSrv.GetServiceInfo() {
			log.Debug("gRPC exposed service", "name", name)
		}
		if err := grpcSrv.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case runErr = <-errChan:
		log.Error("Server failed, shutting down", "error", runErr)
	}

	// 9. Graceful Shutdown, sockets are drained before the store closes
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := sessions.Drain(shutdownCtx); err != nil {
		log.Warn("Websocket sessions still open", "error", err)
	}
	grpcSrv.GracefulStop()
	sup.Stop()
	<-supervised
	log.Info("Program stopped cleanly")
	return runErr
}

func openStores(ctx context.Context, config Config, log *slog.Logger) (stores, error) {
	switch config.Store {
	case storePostgres:
		pool, err := postgres.Connect(ctx, config.DatabaseURL, postgres.WithMaxConns(int32(config.DatabaseMaxConns)))
		if err != nil {
			return stores{}, fmt.Errorf("postgres connection failed: %w", err)
		}
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return stores{}, fmt.Errorf("postgres migration failed: %w", err)
		}
		log.Info("Using PostgreSQL store")
		return stores{
			messages: postgres.NewMessageRepository(pool, log),
			contacts: postgres.NewContactRepository(pool, log),
			close: func() {
				log.Info("Closing PostgreSQL pool...")
				pool.Close()
			},
		}, nil
	default:
		db, err := badger.Open(buildBadgerOpts(ctx, config, log))
		if err != nil {
			return stores{}, fmt.Errorf("database opening failed: %w", err)
		}
		messages, err := repositories.NewMessageRepository(db, log)
		if err != nil {
			_ = db.Close()
			return stores{}, fmt.Errorf("message sequence failed: %w", err)
		}
		log.Info("Using BadgerDB store", "path", config.BadgerFilepath)
		return stores{
			messages: messages,
			contacts: repositories.NewContactRepository(db, log),
			close: func() {
				log.Info("Closing BadgerDB...")
				_ = messages.Close()
				_ = db.Close()
			},
		}, nil
	}
}

func openNotifier(ctx context.Context, config Config, log *slog.Logger) (contract.INotifier, func(), error) {
	switch config.Notifier {
	case notifierWebhook:
		client := &http.Client{Timeout: config.NotifyTimeout}
		return notifier.NewWebhookNotifier(config.WebhookURL, client, log), func() {}, nil
	case notifierNats:
		n, err := notifier.NewNatsNotifier(ctx, config.NatsURL, config.NatsSubjectPrefix, config.NatsStream, log)
		if err != nil {
			return nil, nil, fmt.Errorf("nats connection failed: %w", err)
		}
		return n, n.Close, nil
	default:
		return notifier.NewLogNotifier(log), func() {}, nil
	}
}

func buildBadgerOpts(ctx context.Context, config Config, log *slog.Logger) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)
	if log.Enabled(ctx, slog.LevelDebug) {
		return options.WithLoggingLevel(badger.DEBUG)
	}
	return options.WithLoggingLevel(badger.WARNING)
}
