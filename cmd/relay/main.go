package main

import (
	"chat-relay/auth"
	"chat-relay/contract"
	"chat-relay/infrastructure/grpc/server"
	"chat-relay/infrastructure/storage"
	"chat-relay/infrastructure/websocket"
	"chat-relay/internal"
	"chat-relay/moderation"
	"chat-relay/observability"
	"chat-relay/runtime"
	"chat-relay/runtime/workers"
	"chat-relay/services"
	"chat-relay/sink"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/mama165/sdk-go/logs"
	"google.golang.org/grpc"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

const shutdownTimeout = 5 * time.Second

func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Relay terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run wires every component, then blocks until a signal or a server failure.
// Deferred closes run before the process exits.
func run() (int, error) {
	// 1. Configuration & Logger
	config, err := internal.LoadConfig()
	if err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Message log (BadgerDB)
	db, err := badger.Open(buildBadgerOpts(config, logger, ctx))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	messageRepository := storage.NewMessageRepository(db, logger)
	defer func() { _ = messageRepository.Close() }()

	// 3. Optional search index (Bluge)
	var searchIndex storage.ISearchIndex
	var permanentSinks []contract.EventSink
	if config.BlugeFilepath != "" {
		blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
		if err != nil {
			return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
		}
		defer func() {
			logger.Info("Closing Bluge...")
			_ = blugeWriter.Close()
		}()
		index := storage.NewSearchIndex(blugeWriter, logger)
		searchIndex = index
		permanentSinks = append(permanentSinks, sink.NewSearchSink(index, logger))
	} else {
		logger.Info("BLUGE_FILEPATH not set, search is disabled")
	}

	// 4. Relay
	registry := runtime.NewRegistry()
	monitor := observability.NewMonitoringManager(logger, registry)
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	if config.MetricInterval > 0 {
		supervisor.Add(workers.NewHealthMonitoringWorker(logger, monitor, config.MetricInterval))
	} else {
		logger.Info("METRIC_INTERVAL not positive, process sampling is disabled")
	}

	relay := runtime.NewRelay(logger, supervisor, registry, messageRepository, monitor, runtime.Settings{
		HistorySize:    config.HistorySize,
		BufferSize:     config.BufferSize,
		SinkTimeout:    config.SinkTimeout,
		MetricInterval: config.MetricInterval,
		Limits:         config.Limits(),
	})
	relay.Add(permanentSinks...)

	if config.CensoredWordsFile != "" {
		moderator, err := buildModerator(config.CensoredWordsFile, charReplacement, logger)
		if err != nil {
			return exitConfig, err
		}
		relay.WithModerator(moderator)
	}

	var authenticator *auth.Authenticator
	if config.AuthSecret != "" {
		authenticator = auth.NewAuthenticator(config.AuthSecret, config.AuthTokenDuration)
	} else {
		logger.Warn("AUTH_SECRET not set, sessions are not authenticated")
	}

	chatService := services.NewChatService(relay, messageRepository, searchIndex)

	errChan := make(chan error, 3)

	go func() {
		logger.Info("Starting relay...")
		relay.Start(ctx)
	}()

	// 5. gRPC gateway
	grpcListener, err := net.Listen("tcp", config.GrpcAddress())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to listen on %s: %w", config.GrpcAddress(), err)
	}
	grpcServer := server.NewGrpcServer(logger, server.NewChatServer(logger, chatService, config.ConnectionBufferSize), authenticator)
	go func() {
		logger.Info("Starting gRPC server", "address", config.GrpcAddress(), "at", time.Now().UTC())
		for serviceName := range grpcServer.GetServiceInfo() {
			logger.Debug("gRPC exposed services", "name", serviceName)
		}
		if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			errChan <- fmt.Errorf("gRPC server error: %w", err)
		}
	}()

	// 6. WebSocket gateway
	wsHandler := websocket.NewHandler(chatService, logger, config.ConnectionBufferSize)
	httpServer := &http.Server{
		Addr:              config.HTTPAddress(),
		Handler:           websocket.NewRouter(wsHandler, authenticator),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Starting WebSocket server", "address", config.HTTPAddress())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("websocket server error: %w", err)
		}
	}()

	// 7. Debug surfaces
	debugServer := &http.Server{
		Addr:              config.DebugAddress(),
		Handler:           internal.NewDebugRouter(db, internal.MessageMapper, relayStats(monitor), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Info("Debug inspector available", "url", fmt.Sprintf("http://%s/inspect", config.DebugAddress()))
		if err := debugServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("debug server error: %w", err)
		}
	}()

	// 8. Wait for Stop or Error
	var runErr error
	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case runErr = <-errChan:
		logger.Error("Server failure, shutting down", "error", runErr)
	}

	// 9. Graceful shutdown: stop accepting sessions, then drain workers.
	logger.Info("Shutting down gracefully...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	_ = httpServer.Shutdown(shutdownCtx)
	_ = debugServer.Shutdown(shutdownCtx)
	grpcServer.GracefulStop()
	relay.Stop()

	if runErr != nil {
		return exitRuntime, runErr
	}
	logger.Info("Program stopped cleanly")
	return exitOK, nil
}

func buildBadgerOpts(config internal.Config, logger *slog.Logger, ctx context.Context) badger.Options {
	options := badger.DefaultOptions(config.BadgerFilepath)

	if logger.Enabled(ctx, slog.LevelDebug) {
		options = options.WithLoggingLevel(badger.DEBUG).
			WithBypassLockGuard(true)
	} else {
		options = options.WithLoggingLevel(badger.INFO)
	}

	return options
}

func buildModerator(path string, charReplacement rune, logger *slog.Logger) (moderation.Moderator, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return moderation.Moderator{}, err
	}
	loader := runtime.NewCensoredLoader(os.DirFS(filepath.Dir(abs)))
	data, err := loader.LoadAll(filepath.Base(abs))
	if err != nil {
		return moderation.Moderator{}, fmt.Errorf("censored words: %w", err)
	}
	logger.Info("Censored words loaded", "count", len(data.Words), "languages", data.Languages)
	return moderation.NewModerator(data.Words, charReplacement, logger)
}

func relayStats(monitor *observability.MonitoringManager) internal.StatsProvider {
	return func() map[string]any {
		stats := monitor.GetLatest()
		return map[string]any{
			"messages_posted":     stats.MessagesPosted,
			"messages_rejected":   stats.MessagesRejected,
			"delivered":           stats.Delivered,
			"delivery_failures":   stats.DeliveryFailures,
			"created_sessions":    stats.CreatedSessions,
			"active_sessions":     stats.ActiveSessions,
			"num_goroutine":       stats.NumGoroutine,
			"process_cpu_percent": stats.ProcessCPU,
			"process_threads":     stats.ProcessThreads,
		}
	}
}
