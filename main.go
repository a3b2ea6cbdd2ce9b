package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"golang.org/x/sync/errgroup"

	"github.com/Ananth-NQI/propertybot-backend/database"
	"github.com/Ananth-NQI/propertybot-backend/internal/config"
	"github.com/Ananth-NQI/propertybot-backend/internal/handlers"
	"github.com/Ananth-NQI/propertybot-backend/internal/jobs"
	"github.com/Ananth-NQI/propertybot-backend/internal/property"
	"github.com/Ananth-NQI/propertybot-backend/internal/routes"
	"github.com/Ananth-NQI/propertybot-backend/internal/services"
	"github.com/Ananth-NQI/propertybot-backend/internal/storage"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	for _, warning := range cfg.Warnings() {
		log.Printf("⚠️  %s", warning)
	}

	listing, err := loadListing(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to load property listing: %v", err)
	}
	log.Printf("🏠 Selling %s at %s", listing.Name, services.FormatPrice("", listing.Currency, listing.AskingPrice))

	store, ping, storageType, err := openStore(cfg)
	if err != nil {
		log.Fatalf("❌ %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	responder, closeResponder, err := newResponder(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize responder: %v", err)
	}
	defer closeResponder()
	log.Printf("✅ Responder initialized (%s)", responder.Name())

	engine := services.NewNegotiationEngine(listing)
	sessions := services.NewSessionStore(services.StoreConfig{
		HistoryCap:   cfg.HistoryCap,
		ResetTimeout: cfg.ResetTimeout,
		GCTimeout:    cfg.GCTimeout,
	}, engine)

	router, err := services.NewMessageRouter(services.RouterOptions{
		Sessions:         sessions,
		Engine:           engine,
		Responder:        responder,
		Listing:          listing,
		MediaBaseURL:     cfg.PublicURL,
		Leads:            store,
		ResponderTimeout: cfg.ResponderTimeout,
	})
	if err != nil {
		log.Fatalf("❌ Failed to initialize router: %v", err)
	}

	var sender handlers.ReplySender
	if cfg.TwilioConfigured() {
		twilioService, err := services.NewTwilioService(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFrom)
		if err != nil {
			log.Fatal("Failed to initialize Twilio service:", err)
		}
		sender = services.NewDispatcher(twilioService)
		log.Println("✅ Twilio service initialized")
	}

	sweeper := jobs.NewSessionSweepJob(sessions, cfg.SweepInterval)

	app := fiber.New(fiber.Config{
		AppName: "Property Bot Backend v" + version,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, OPTIONS",
	}))

	health := handlers.NewHealthHandler(version, sessions, ping)
	health.Storage = storageType
	health.Responder = router.ResponderName()
	health.TwilioConfigured = sender != nil

	routes.SetupRoutes(app, routes.Options{
		WhatsApp:         handlers.NewWhatsAppHandler(router, sender),
		Health:           health,
		Admin:            handlers.NewAdminHandler(store, sessions),
		ValidateWebhooks: cfg.ValidateWebhooks(),
		TwilioAuthToken:  cfg.TwilioAuthToken,
		AdminAPIKey:      cfg.AdminAPIKey,
		OpenAdmin:        cfg.IsDevelopment(),
		PublicURL:        cfg.PublicURL,
		ImagesDir:        cfg.ImagesDir,
		Version:          version,
	})

	log.Println("========================================")
	log.Printf("🚀 Property Bot Backend starting on port %s", cfg.Port)
	log.Printf("📊 Storage: %s", storageType)
	log.Printf("🌍 Environment: %s", cfg.Environment)
	log.Printf("📱 WhatsApp: %s", whatsAppStatus(sender != nil))
	log.Printf("🖼️  Media base URL: %s", cfg.PublicURL)
	log.Println("========================================")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return app.Listen(":" + cfg.Port)
	})
	g.Go(func() error {
		sweeper.Start(gctx)
		<-gctx.Done()
		log.Println("🛑 Gracefully shutting down...")
		sweeper.Stop()
		log.Println("⏹️  Shutting down server...")
		return app.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Fatalf("❌ Server stopped: %v", err)
	}
}

// loadListing reads the listing and applies price and round overrides from config
func loadListing(cfg *config.Config) (*property.Listing, error) {
	listing, err := property.Load(cfg.PropertyFile)
	if err != nil {
		return nil, err
	}
	if cfg.AskingPrice > 0 {
		listing.AskingPrice = cfg.AskingPrice
	}
	if cfg.MaxRounds > 0 {
		listing.Negotiation.MaxRounds = cfg.MaxRounds
	}
	return listing, listing.Validate()
}

func openStore(cfg *config.Config) (storage.Store, func() error, string, error) {
	if cfg.UseMemoryStore {
		log.Println("⚠️  Using in-memory storage (not for production!)")
		return storage.NewMemoryStore(), nil, "In-Memory (Testing)", nil
	}

	log.Println("📦 Connecting to PostgreSQL database...")
	db, err := database.Connect(cfg.Database)
	if err != nil {
		return nil, nil, "", err
	}
	log.Println("✅ Using PostgreSQL database storage")
	return storage.NewDatabaseStore(db), func() error { return database.Ping(db) }, "PostgreSQL Database", nil
}

func newResponder(ctx context.Context, cfg *config.Config) (services.Responder, func(), error) {
	switch cfg.ResponderProvider {
	case config.ProviderGemini:
		gemini, err := services.NewGeminiResponder(ctx, cfg.GeminiKey, cfg.GeminiModel)
		if err != nil {
			return nil, nil, err
		}
		return gemini, func() {
			if err := gemini.Close(); err != nil {
				log.Printf("⚠️ Failed to close gemini client: %v", err)
			}
		}, nil
	default:
		return services.NewOpenAIResponder(cfg.OpenAIKey, cfg.OpenAIModel), func() {}, nil
	}
}

func whatsAppStatus(configured bool) string {
	if !configured {
		return "Not configured"
	}
	return "Configured"
}
