// Command server is the entry point for the Writeflow API.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"writeflow/internal/config"
	"writeflow/internal/middleware"
	"writeflow/internal/models"
	"writeflow/internal/observability"
	"writeflow/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/joho/godotenv"
)

const shutdownTimeout = 10 * time.Second

// @title Writeflow API
// @version 1.0
// @description Blogging API with threaded comments and AI writing tools.

// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	middleware.Logger = middleware.NewLogger(cfg.Env, os.Getenv("LOG_LEVEL"))
	models.ExposeErrorDetails = cfg.IsDevelopment()

	shutdownTracing, err := observability.InitTracing(observability.TracingConfig{
		ServiceName:    "writeflow-api",
		ServiceVersion: "1.0",
		Environment:    cfg.Env,
		Enabled:        cfg.TracingEnabled,
		Exporter:       cfg.TracingExporter,
		OTLPEndpoint:   cfg.OTLPEndpoint,
		SamplerRatio:   cfg.TracingSampling,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	srv, err := server.NewServer(context.Background(), cfg)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}

	app := fiber.New(fiber.Config{
		AppName: "Writeflow API",
		// multipart overhead on top of the largest accepted image
		BodyLimit: (cfg.ImageMaxUploadSizeMB + 1) * 1024 * 1024,
	})

	srv.SetupMiddleware(app)
	srv.SetupRoutes(app)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	middleware.Logger.Info("Server starting", slog.String("port", cfg.Port))
	listen := func() error { return app.Listen(":" + cfg.Port) }
	if err := serve(app, listen, sigChan, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			middleware.Logger.Error("Server resource shutdown error", slog.String("error", err.Error()))
		}
		if err := shutdownTracing(ctx); err != nil {
			middleware.Logger.Error("Tracer shutdown error", slog.String("error", err.Error()))
		}
	}); err != nil {
		log.Fatal(err)
	}
}

// serve runs listen until a signal arrives on stop, then drains the app and
// runs cleanup. It returns only after cleanup has finished, or with the
// listen error if the listener failed first.
func serve(app *fiber.App, listen func() error, stop <-chan os.Signal, cleanup func(context.Context)) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		<-stop

		middleware.Logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("Server shutdown error", slog.String("error", err.Error()))
		}
		cleanup(ctx)
	}()

	if err := listen(); err != nil {
		return err
	}
	<-done
	return nil
}
