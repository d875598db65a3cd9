package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"support-flow-be/internal/bootstrap"
	"support-flow-be/internal/config"
	"support-flow-be/internal/server"
	"support-flow-be/internal/tracer"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] %v", err)
	}

	// 2. Initialize Tracer
	shutdownTracer := tracer.InitTracer(cfg.Telemetry)
	defer func() { _ = shutdownTracer(context.Background()) }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Bootstrap Dependencies (Container)
	container := bootstrap.NewContainer(cfg)
	defer container.Close()

	// 4. Feature flags must be ready before anything is served.
	if err := container.FlagService.Initialize(ctx); err != nil {
		container.Close()
		log.Fatalf("[FATAL] Feature flags failed to initialize: %v", err)
	}

	// 5. Start Background Services
	go container.WebSocketHub.Run(ctx)
	if err := container.ConsumerService.Consume(ctx); err != nil {
		container.Close()
		log.Fatalf("[FATAL] Consumer failed to start: %v", err)
	}
	if container.IntakeService != nil {
		if err := container.IntakeService.Start(ctx); err != nil {
			log.Printf("[WARN] NATS intake disabled: %v", err)
		}
	}

	// 6. Initialize Server
	srv := server.New(cfg, container)
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown()
	}()

	// 7. Run Server
	if err := srv.Run(); err != nil {
		log.Printf("Server stopped: %v", err)
	}
}
