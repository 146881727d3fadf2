package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"navhunter/internal/config"
	delivery "navhunter/internal/delivery/http"
	"navhunter/internal/feed"
	"navhunter/internal/hub"
	"navhunter/internal/monitor"
	"navhunter/internal/pipeline"
	"navhunter/internal/repository"
	"navhunter/pkg/logger"
	"navhunter/pkg/redis"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cobra"
	"google.golang.org/genai"
)

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Starts the filing monitor service",
	Run:   runServe,
}

func runServe(cmd *cobra.Command, args []string) {
	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.Logger.Level, cfg.Logger.Encoding)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = appLogger.Sync() }()

	appLogger.Info("Starting NAV Hunter", logger.Field("name", cfg.App.Name))

	// Initialize the event hub with its sinks
	subscriberSink := hub.NewSubscriberSink(appLogger, cfg.Hub.SubscriberBuffer)
	var extraSinks []hub.Sink
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(redis.Config{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Redis", logger.ErrorField(err))
		}
		defer redisClient.Close()
		extraSinks = append(extraSinks, hub.NewRedisSink(redisClient.Client, cfg.Redis.Channel))
		appLogger.Info("Redis event relay enabled", logger.StringField("channel", cfg.Redis.Channel))
	}
	eventHub := hub.New(appLogger, subscriberSink, extraSinks...)

	// Initialize repositories
	docsRepo := repository.NewEDGARRepository(cfg, appLogger)
	speechRepo := repository.NewOpenAISpeechRepository(cfg, appLogger)

	var aiRepo repository.AIRepository
	switch cfg.AI.Provider {
	case "gemini":
		genAiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  cfg.Gemini.APIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini client", logger.ErrorField(err))
		}
		aiRepo, err = repository.NewGeminiAIRepository(cfg, appLogger, genAiClient)
		if err != nil {
			appLogger.Fatal("Failed to initialize Gemini repository", logger.ErrorField(err))
		}
	default:
		aiRepo = repository.NewOpenAIRepository(cfg, appLogger)
	}
	appLogger.Info("AI provider initialized", logger.StringField("provider", cfg.AI.Provider))

	// Initialize the pipeline and feed
	processor := pipeline.New(cfg, appLogger, eventHub, docsRepo, aiRepo, speechRepo)
	capture := feed.NewCaptureBuffer(appLogger, cfg.SEC.StreamLogPath, cfg.SEC.ReplayBuffer)
	connector := feed.NewConnector(cfg, appLogger, eventHub, capture)
	controller := monitor.NewController(ctx, cfg, appLogger, eventHub, connector, processor)

	// Initialize Echo server
	e := echo.New()
	e.HideBanner = true

	// Initialize handlers and routes
	api := e.Group("/api", delivery.BearerAuth(cfg.Auth.Token))

	monitorHandler := delivery.NewMonitorHandler(controller, appLogger, func(reason string) {
		appLogger.Warn("Graceful shutdown triggered", logger.StringField("reason", reason))
		stop()
	})
	monitorHandler.RegisterRoutes(api)

	streamHandler := delivery.NewStreamHandler(eventHub, appLogger, cfg.Hub.KeepAliveInterval)
	streamHandler.RegisterRoutes(api)

	pipelineHandler := delivery.NewPipelineHandler(ctx, processor, controller, capture, appLogger)
	pipelineHandler.RegisterRoutes(api)

	// Start server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.API.Port)
		appLogger.Info("HTTP server starting", logger.Field("address", addr))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			appLogger.Error("HTTP server failed to start", logger.ErrorField(err))
			stop() // trigger shutdown
		}
	}()

	// Wait for shutdown signal
	<-ctx.Done()

	appLogger.Info("Shutting down server...")

	// Stop monitoring, tell subscribers, then close the listener
	controller.Stop()
	eventHub.Shutdown("server is shutting down", 2)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		appLogger.Fatal("Server forced to shutdown", logger.ErrorField(err))
	}

	appLogger.Info("Server exiting")
}

func main() {
	rootCmd := &cobra.Command{Use: "navhunter"}

	serveCmd.Flags().StringVarP(&configPath, "config", "c", "configs/config.yaml", "Path to the configuration file")

	rootCmd.AddCommand(serveCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error executing navhunter CLI: %s\n", err)
		os.Exit(1)
	}
}
