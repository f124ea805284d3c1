package api

import (
	"log"
	"net/http"
	"time"

	"ngmc-chatbot-backend/internal/config"
	"ngmc-chatbot-backend/internal/handlers"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterDependencies holds all the dependencies required by the router setup,
// primarily handlers and configuration.
type RouterDependencies struct {
	AuthHandler *handlers.AuthHandler
	ChatHandler *handlers.ChatHandlers
	Config      *config.Config
}

// NewRouter creates and configures the main Chi router for the application.
func NewRouter(deps RouterDependencies) *chi.Mux {
	r := chi.NewRouter()

	// --- Base Middleware Stack ---
	r.Use(middleware.RequestID)                 // Inject request ID into context
	r.Use(middleware.RealIP)                    // Use X-Forwarded-For or X-Real-IP
	r.Use(middleware.Logger)                    // Log requests
	r.Use(middleware.Recoverer)                 // Recover from panics, return 500
	r.Use(middleware.Timeout(60 * time.Second)) // Set a request timeout

	// --- CORS Configuration ---
	// Adjust AllowedOrigins for your frontend deployment(s)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://*.vercel.app"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "x-api-key", "X-Requested-With"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	// --- Public Routes ---
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/v1/auth", func(r chi.Router) {
		if deps.AuthHandler == nil {
			panic("AuthHandler dependency is nil in router setup")
		}
		r.Post("/signup", deps.AuthHandler.HandleSignup)
		r.Post("/login", deps.AuthHandler.HandleLogin)
	})

	// --- Chat Routes (API key required, identity optional) ---
	r.Route("/v1/chats", func(r chi.Router) {
		if deps.ChatHandler == nil {
			log.Println("WARN: ChatHandler dependency is nil, skipping /v1/chats routes.")
			return
		}
		r.Use(APIKeyMiddleware(deps.Config.APIKey))
		r.Use(IdentityMiddleware(deps.Config.JWTSecret))

		r.Post("/", deps.ChatHandler.HandleStartChat)
		r.Get("/", deps.ChatHandler.HandleListChats)
		r.Get("/{chatID}", deps.ChatHandler.HandleGetChatByID)
		r.Delete("/{chatID}", deps.ChatHandler.HandleDeleteChat)

		// Message APIs
		r.Post("/{chatID}/messages", deps.ChatHandler.HandleContinueChat)
	})

	return r
}
