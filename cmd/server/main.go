package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"

	"github.com/protokollmine/protokollmine/internal/config"
	"github.com/protokollmine/protokollmine/internal/dip"
	"github.com/protokollmine/protokollmine/internal/handlers"
	"github.com/protokollmine/protokollmine/internal/pipeline"
	"github.com/protokollmine/protokollmine/internal/queue"
	"github.com/protokollmine/protokollmine/internal/scheduler"
	"github.com/protokollmine/protokollmine/internal/storage"
	"github.com/protokollmine/protokollmine/internal/summarize"
	"github.com/protokollmine/protokollmine/internal/types"
)

// dipSource adapts the DIP client to the pipeline's source interface
type dipSource struct {
	client *dip.Client
}

func (s dipSource) Protocols(ctx context.Context, updatedSince string) pipeline.ProtocolIterator {
	return s.client.Protocols(ctx, updatedSince)
}

func (s dipSource) FetchProtocolText(ctx context.Context, identifier string) (types.ProtocolDocument, error) {
	return s.client.FetchProtocolText(ctx, identifier)
}

func main() {
	configPath := flag.String("config", "config/config.yaml", "Path to the configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Keep recent log lines in memory for the /logs endpoint
	logBuffer := &LogBuffer{lines: make([]string, 0, 1000)}
	log.SetOutput(io.MultiWriter(os.Stdout, logBuffer))

	log.Println("Initializing components...")

	// Storage
	store, err := storage.NewStore(cfg.Storage.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// DIP client
	dipClient := dip.NewClient(cfg.DIP.BaseURL, cfg.DIP.APIKey, cfg.DIPTimeout(), cfg.DIP.MaxRetries)
	if cfg.DIP.APIKey == "" {
		log.Println("WARNING: No DIP API key configured - the archive may reject requests")
	}

	// Gemini summarizer (optional)
	var summarizer pipeline.Summarizer
	if cfg.Gemini.APIKey != "" {
		gemini, err := summarize.NewGemini(
			context.Background(),
			cfg.Gemini.APIKey,
			cfg.Gemini.BaseURL,
			cfg.Gemini.Model,
			cfg.GeminiTimeout(),
			cfg.Gemini.MaxRetries,
			cfg.Gemini.EnableSafetySettings,
		)
		if err != nil {
			log.Fatalf("Failed to initialize Gemini: %v", err)
		}
		summarizer = gemini
		log.Println("Gemini summarization enabled")
	} else {
		log.Println("Gemini API key missing - summaries will be skipped")
	}

	// Pipeline and worker pool
	importPipeline := pipeline.New(dipSource{client: dipClient}, store, summarizer)
	progressHub := handlers.NewProgressHub()
	workerPool := queue.NewWorkerPool(cfg.Workers.Count, importPipeline, progressHub.Broadcast)
	workerPool.Start()
	defer workerPool.Stop()

	// Scheduled imports
	if cfg.Schedule.Cron != "" {
		importScheduler := scheduler.New(workerPool, cfg.Schedule.Cron, cfg.Schedule.UpdatedSinceDays)
		if err := importScheduler.Start(); err != nil {
			log.Fatalf("Failed to start scheduler: %v", err)
		}
		defer importScheduler.Stop()
	}

	// Create Fiber app
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
	}))

	// Initialize handlers
	importHandler := handlers.NewImportHandler(workerPool)
	protocolHandler := handlers.NewProtocolHandler(store)

	// Routes
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	app.Post("/imports", importHandler.Trigger)
	app.Get("/imports/:id", importHandler.Status)
	app.Get("/protocols", protocolHandler.List)
	app.Get("/protocols/:id/speeches", protocolHandler.Speeches)
	app.Get("/ws/progress", websocket.New(progressHub.Handle))
	app.Get("/logs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"logs": logBuffer.GetLogs()})
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Println("Endpoints:")
	log.Println("   POST /imports                - Trigger a protocol import")
	log.Println("   GET  /imports/:id            - Import job status")
	log.Println("   GET  /protocols              - List stored protocols")
	log.Println("   GET  /protocols/:id/speeches - Speeches of one protocol")
	log.Println("   GET  /ws/progress            - Live pipeline progress")
	log.Println("   GET  /logs                   - View server logs")
	log.Println("   GET  /health                 - Health check")

	// Graceful shutdown
	go func() {
		sigint := make(chan os.Signal, 1)
		signal.Notify(sigint, os.Interrupt, syscall.SIGTERM)
		<-sigint

		log.Println("Shutting down gracefully...")
		app.Shutdown()
	}()

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}

// LogBuffer captures logs in memory
type LogBuffer struct {
	lines []string
	mu    sync.Mutex
}

func (lb *LogBuffer) Write(p []byte) (n int, err error) {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	lb.lines = append(lb.lines, string(p))

	// Keep last 1000 lines
	if len(lb.lines) > 1000 {
		lb.lines = lb.lines[len(lb.lines)-1000:]
	}

	return len(p), nil
}

func (lb *LogBuffer) GetLogs() []string {
	lb.mu.Lock()
	defer lb.mu.Unlock()

	logs := make([]string, len(lb.lines))
	copy(logs, lb.lines)
	return logs
}
