package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ngmc-chatbot-backend/internal/api"
	"ngmc-chatbot-backend/internal/config"
	"ngmc-chatbot-backend/internal/handlers"
	"ngmc-chatbot-backend/internal/knowledge"
	"ngmc-chatbot-backend/internal/llm"
	"ngmc-chatbot-backend/internal/services"
	"ngmc-chatbot-backend/internal/store"
	mongostore "ngmc-chatbot-backend/internal/store/mongo"
	"ngmc-chatbot-backend/internal/store/postgres"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

func main() {
	log.Println("Starting NGMC Chatbot Backend...")

	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}
	log.Println("Configuration loaded successfully.")

	// 2. Initialize the Store (backend selected by STORE_BACKEND)
	dbCtx, dbCancel := context.WithTimeout(context.Background(), 10*time.Second) // Timeout for initial connection
	defer dbCancel()

	var dataStore store.Store
	switch cfg.StoreBackend {
	case config.StoreBackendPostgres:
		dbpool, err := pgxpool.New(dbCtx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("FATAL: Unable to create database connection pool: %v\n", err)
		}
		defer dbpool.Close() // Ensure pool is closed on exit

		if err := dbpool.Ping(dbCtx); err != nil {
			log.Fatalf("FATAL: Unable to ping database: %v\n", err)
		}
		log.Println("Database connection pool established and pinged successfully.")

		dataStore = postgres.NewPostgresStore(dbpool)
		log.Println("Postgres store initialized.")

	case config.StoreBackendMongo:
		client, err := mongo.Connect(dbCtx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("FATAL: Unable to connect to MongoDB: %v\n", err)
		}
		defer func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := client.Disconnect(disconnectCtx); err != nil {
				log.Printf("WARN: MongoDB disconnect failed: %v", err)
			}
		}()

		if err := client.Ping(dbCtx, readpref.Primary()); err != nil {
			log.Fatalf("FATAL: Unable to ping MongoDB: %v\n", err)
		}
		log.Println("MongoDB connection established and pinged successfully.")

		dataStore = mongostore.NewMongoStore(client.Database(cfg.MongoDatabase))
		log.Println("Mongo store initialized.")

	default:
		log.Fatalf("FATAL: Unknown store backend %q", cfg.StoreBackend)
	}

	// 3. Load the knowledge snippet (read once, immutable for the process)
	snippet := knowledge.Load(cfg.KnowledgeDir, cfg.KnowledgeFiles)
	log.Printf("Knowledge snippet loaded (%d bytes).", len(snippet))

	// 4. Initialize the model gateway
	llmClient := llm.NewOpenAIClientWithConfig(llm.OpenAIConfig{
		APIKey: cfg.OpenAIAPIKey,
		Model:  cfg.OpenAIModel,
	})
	log.Println("OpenAI client initialized.")

	// --- Initialize Services ---
	authService := services.NewAuthService(dataStore, cfg)
	log.Println("AuthService initialized.")
	chatService := services.NewChatService(dataStore, llmClient, snippet)
	log.Println("ChatService initialized.")

	// --- Initialize Handlers ---
	authHandler := handlers.NewAuthHandler(authService)
	log.Println("AuthHandler initialized.")
	chatHandler := handlers.NewChatHandlers(chatService)
	log.Println("ChatHandler initialized.")

	// 5. Setup Router & Inject Dependencies
	routerDeps := api.RouterDependencies{
		AuthHandler: authHandler,
		ChatHandler: chatHandler,
		Config:      cfg,
	}
	router := api.NewRouter(routerDeps)
	log.Println("HTTP router configured.")

	// 6. Configure and Start HTTP Server
	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: router,
		// Production hardening: Set timeouts to avoid Slowloris attacks
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 90 * time.Second, // Model calls can be slow
		IdleTimeout:  120 * time.Second,
	}

	// Channel to listen for OS signals for graceful shutdown
	stopChan := make(chan os.Signal, 1)
	signal.Notify(stopChan, syscall.SIGINT, syscall.SIGTERM)

	// Run server in a goroutine so it doesn't block
	go func() {
		log.Printf("Server starting and listening on port %s", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Could not listen on %s: %v\n", cfg.HTTPPort, err)
		}
		log.Println("Server listener routine stopped.")
	}()

	// Wait for interrupt signal
	<-stopChan
	log.Println("Shutdown signal received, initiating graceful shutdown...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("WARN: Server graceful shutdown failed: %v", err)
	}

	log.Println("Server shutdown complete.")
}
