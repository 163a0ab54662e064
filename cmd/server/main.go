package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"

	"healthify/internal/config"
	"healthify/internal/database"
	"healthify/internal/document"
	"healthify/internal/handlers"
	"healthify/internal/health"
	"healthify/internal/jobs"
	"healthify/internal/logging"
	"healthify/internal/middleware"
	"healthify/internal/preflight"
	"healthify/internal/provider"
	"healthify/internal/rag"
	"healthify/internal/services"
	"healthify/internal/session"
	"healthify/internal/textclass"
	"healthify/pkg/auth"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	// Load .env file (ignore error if file doesn't exist)
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  No .env file found or error loading it: %v", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// Initialize structured logging (JSON in production, text in dev)
	logging.Init()

	log.Println("🚀 Starting Healthify Server...")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("❌ Invalid configuration: %v", err)
	}
	log.Printf("📋 Configuration loaded (Port: %s, Session store: %s, Expiry: %s)", cfg.Port, cfg.SessionStore, cfg.SessionExpiry)

	metrics := services.InitMetrics(nil)

	// MongoDB backs the mongo session store and registered users
	var mongoDB *database.MongoDB
	if cfg.MongoDBURI != "" {
		log.Println("🔗 Connecting to MongoDB...")
		var err error
		mongoDB, err = database.NewMongoDB(cfg.MongoDBURI)
		if err != nil {
			if cfg.SessionStore == config.StoreMongo {
				log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
			}
			log.Printf("⚠️ Failed to connect to MongoDB: %v (user accounts kept in memory)", err)
		} else if err := mongoDB.Initialize(context.Background()); err != nil {
			log.Fatalf("❌ Failed to initialize MongoDB: %v", err)
		} else if cfg.SessionStore != config.StoreMongo {
			// the mongo session store closes the connection itself
			defer mongoDB.Close(context.Background())
		}
	}

	store, sqliteDB := openSessionStore(cfg, mongoDB)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.Close(ctx); err != nil {
			log.Printf("⚠️ Error closing session store: %v", err)
		}
	}()

	checks := preflight.NewChecker(cfg, sqliteDB, mongoDB).RunAll()
	if preflight.HasFailures(checks) {
		log.Fatal("❌ Pre-flight checks failed")
	}

	sessionOpts := []session.Option{
		session.WithExpiry(cfg.SessionExpiry),
		session.WithObserver(metrics),
	}

	// Redis (optional) serializes session updates across instances
	if cfg.RedisURL != "" {
		redisService, err := services.NewRedisService(cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️ Redis unavailable: %v (falling back to in-process session locks)", err)
		} else {
			defer redisService.Close()
			sessionOpts = append(sessionOpts, session.WithLocker(session.NewRedisLocker(redisService, 10*time.Second)))
			log.Println("🔐 Distributed session locks enabled via Redis")
		}
	}
	sessions := session.NewManager(store, sessionOpts...)

	// Providers, tracked by the provider health service
	embeddingClient := provider.NewEmbeddingClient(provider.Config{
		BaseURL: cfg.EmbeddingBaseURL,
		APIKey:  cfg.EmbeddingAPIKey,
		Model:   cfg.EmbeddingModel,
		Timeout: cfg.EmbeddingTimeout / 2,
		RPS:     cfg.ProviderRPS,
	})
	chatClient := provider.NewChatClient(provider.Config{
		BaseURL: cfg.LLMBaseURL,
		APIKey:  cfg.LLMAPIKey,
		Model:   cfg.LLMModel,
		Timeout: cfg.LLMTimeout / 2,
		RPS:     cfg.ProviderRPS,
	})
	providerHealth := health.NewService(3)
	providerHealth.Register(health.CapabilityEmbedding, cfg.EmbeddingModel, health.EmbedProbe(embeddingClient))
	providerHealth.Register(health.CapabilityChat, cfg.LLMModel, health.ChatProbe(chatClient))

	corpusEmbedder, queryEmbedder := newEmbedders(providerHealth, embeddingClient)
	generator := health.TrackGenerator(providerHealth, chatClient)
	if cfg.LLMAPIKey == "" {
		log.Println("⚠️  LLM_API_KEY not set - every answer will be the safety fallback")
	}

	// Knowledge base
	knowledgeStore := rag.NewKnowledgeStore()
	builder := rag.NewBuilder(corpusEmbedder, rag.BuilderConfig{
		ChunkWords:  cfg.ChunkWords,
		Overlap:     cfg.ChunkOverlap,
		Concurrency: cfg.EmbedConcurrency,
	})
	indexer := rag.NewIndexer(cfg.KnowledgeBasePath, document.ExtractText, builder, knowledgeStore)
	knowledge := services.NewKnowledgeService(indexer, metrics)
	knowledge.Load(context.Background())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.KnowledgeWatch {
		go func() {
			if err := knowledge.Watch(ctx); err != nil {
				log.Printf("⚠️  Knowledge watcher stopped: %v", err)
			}
		}()
	}

	// Responder
	var prompts *rag.PromptSet
	if cfg.PromptsFile != "" {
		var err error
		prompts, err = rag.LoadPrompts(cfg.PromptsFile)
		if err != nil {
			log.Fatalf("❌ Failed to load prompts from %s: %v", cfg.PromptsFile, err)
		}
		log.Printf("✅ Prompts loaded from %s", cfg.PromptsFile)
	}
	classifier := textclass.Heuristic{}
	responder, err := rag.NewResponder(queryEmbedder, generator, knowledgeStore, prompts, rag.ResponderConfig{
		TopK:            cfg.TopK,
		TokenBudget:     cfg.ContextTokenBudget,
		EmbedTimeout:    cfg.EmbeddingTimeout,
		GenerateTimeout: cfg.LLMTimeout,
	},
		rag.WithClassifiers(classifier, classifier),
		rag.WithTokenCounter(&rag.TiktokenCounter{}),
	)
	if err != nil {
		log.Fatalf("❌ Failed to build responder: %v", err)
	}

	chatService := services.NewChatService(responder, sessions, metrics)
	chatService.SetRenderHTML(cfg.ChatRenderHTML)

	// Background jobs
	jobScheduler := jobs.NewJobScheduler()
	expiryJob, err := jobs.NewSessionExpiryJob(sessions, cfg.SessionSweepCron)
	if err != nil {
		log.Fatalf("❌ SESSION_SWEEP_CRON: %v", err)
	}
	jobScheduler.Register("session-expiry", expiryJob)
	if cfg.KnowledgeRefreshCron != "" {
		refreshJob, err := jobs.NewKnowledgeRefreshJob(knowledge, cfg.KnowledgeRefreshCron)
		if err != nil {
			log.Fatalf("❌ KNOWLEDGE_REFRESH_CRON: %v", err)
		}
		jobScheduler.Register("knowledge-refresh", refreshJob)
	}
	if cfg.ProviderHealthInterval > 0 {
		jobScheduler.Register("provider-health", jobs.NewProviderHealthChecker(providerHealth, cfg.ProviderHealthInterval))
	}
	jobScheduler.Start()

	// Local JWT auth (optional)
	var jwtAuth *auth.LocalJWTAuth
	var authHandler *handlers.LocalAuthHandler
	if cfg.JWTSecret != "" {
		jwtAuth, err = auth.NewLocalJWTAuth(cfg.JWTSecret, 0, 0)
		if err != nil {
			log.Fatalf("❌ Failed to initialize JWT auth: %v", err)
		}
		var users services.UserStore = services.NewMemoryUserStore()
		if mongoDB != nil {
			users = services.NewMongoUserStore(mongoDB)
		}
		authHandler = handlers.NewLocalAuthHandler(jwtAuth, users)
		log.Println("✅ Local JWT auth enabled")
	} else {
		log.Println("⚠️  JWT_SECRET not set - all requests share the anonymous session")
	}

	app := fiber.New(fiber.Config{
		AppName:      "Healthify v1.0",
		ReadTimeout:  2 * time.Minute,
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  2 * time.Minute,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(logger.New())

	prometheus := fiberprometheus.New("healthify")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)
	log.Println("📊 Prometheus metrics endpoint enabled at /metrics")

	rateLimitConfig := middleware.LoadRateLimitConfig()
	log.Printf("🛡️  [RATE-LIMIT] Loaded config: Global=%d/min, Chat=%d/min, Auth=%d/15min",
		rateLimitConfig.GlobalAPIMax, rateLimitConfig.ChatMax, rateLimitConfig.AuthMax)

	allowedOrigins := strings.Join(cfg.AllowedOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,DELETE,OPTIONS",
		AllowHeaders:     "Origin,Content-Type,Accept,Authorization",
		AllowCredentials: allowedOrigins != "*",
	}))
	log.Printf("🔒 [SECURITY] CORS allowed origins: %s", allowedOrigins)

	app.Use("/api", middleware.GlobalAPIRateLimiter(rateLimitConfig))

	routes := &handlers.Routes{
		Chat:        handlers.NewChatHandler(chatService),
		Session:     handlers.NewSessionHandler(sessions),
		Knowledge:   handlers.NewKnowledgeHandler(knowledge),
		Health:      handlers.NewHealthHandler(knowledge, sessions, providerHealth),
		Auth:        authHandler,
		Identity:    middleware.OptionalLocalAuthMiddleware(jwtAuth),
		ChatLimiter: middleware.ChatRateLimiter(rateLimitConfig),
		AuthLimiter: middleware.AuthRateLimiter(rateLimitConfig),
	}
	routes.Register(app)

	log.Printf("💬 Chat endpoint: http://localhost:%s/chat", cfg.Port)
	log.Printf("📡 Health check: http://localhost:%s/health", cfg.Port)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Shutting down server...")

		stop()
		jobScheduler.Stop()

		if err := app.Shutdown(); err != nil {
			log.Printf("⚠️ Error shutting down server: %v", err)
		}
	}()

	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// newEmbedders wraps the embedding client for health tracking. Only the query
// side is cached; corpus vectors already live in the knowledge base.
func newEmbedders(providerHealth *health.Service, client rag.Embedder) (corpus, query rag.Embedder) {
	corpus = health.TrackEmbedder(providerHealth, client)
	return corpus, rag.NewCachingEmbedder(corpus, 30*time.Minute)
}

// openSessionStore builds the configured session store; the SQLite handle is nil for other backends
func openSessionStore(cfg *config.Config, mongoDB *database.MongoDB) (session.Store, *database.DB) {
	switch cfg.SessionStore {
	case config.StoreSQLite:
		db, err := database.New(cfg.SQLitePath)
		if err != nil {
			log.Fatalf("❌ Failed to open SQLite database: %v", err)
		}
		if err := db.Initialize(); err != nil {
			log.Fatalf("❌ Failed to initialize SQLite database: %v", err)
		}
		log.Printf("✅ Sessions persisted in SQLite at %s", cfg.SQLitePath)
		return session.NewSQLiteStore(db), db
	case config.StoreMongo:
		log.Println("✅ Sessions persisted in MongoDB")
		return session.NewMongoStore(mongoDB), nil
	default:
		log.Println("⚠️  Sessions kept in memory (lost on restart)")
		return session.NewMemoryStore(), nil
	}
}
