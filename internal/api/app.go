package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/teris-io/shortid"
	"github.com/tgrange/switchboard/internal/auth"
	"github.com/tgrange/switchboard/internal/config"
	"github.com/tgrange/switchboard/internal/database"
	"github.com/tgrange/switchboard/internal/gateway"
)

type App struct {
	log       *log.Logger
	db        database.Repository
	mux       *http.Server
	tokens    *auth.TokenManager
	uploadDir string
}

func NewApp(mux *http.ServeMux, logger *log.Logger, gw *gateway.Gateway, db database.Repository, tokens *auth.TokenManager, cfg *config.Config) *App {
	s := &App{
		log:       logger,
		db:        db,
		tokens:    tokens,
		uploadDir: cfg.UploadDir,
	}

	mux.HandleFunc("GET /healthz", s.healthCheck)
	mux.HandleFunc("POST /api/auth/register", s.createAccount)
	mux.HandleFunc("POST /api/auth/login", s.login)
	mux.HandleFunc("GET /api/auth/session", s.authMiddleware(s.session))
	mux.Handle("GET /api/auth/logout", s.authMiddleware(s.logout))
	mux.Handle("/api/account", s.authMiddleware(s.account))
	mux.Handle("POST /api/chats", s.authMiddleware(s.createChat))
	mux.Handle("GET /api/chats", s.authMiddleware(s.getChats))
	mux.Handle("DELETE /api/chats", s.authMiddleware(s.deleteChat))
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("GET /api/users/nearby", s.authMiddleware(s.nearbyUsers))

	mux.Handle("POST /api/contacts", s.authMiddleware(s.addContact))
	mux.Handle("GET /api/contacts", s.authMiddleware(s.getContacts))
	mux.Handle("DELETE /api/contacts", s.authMiddleware(s.removeContact))
	mux.Handle("POST /api/files", s.authMiddleware(s.uploadFile))
	mux.Handle("GET /files/", http.StripPrefix("/files/", http.FileServer(http.Dir(cfg.UploadDir))))
	mux.Handle("POST /api/keys", s.authMiddleware(s.uploadKeys))
	mux.Handle("GET /api/keys", s.authMiddleware(s.getKeys))
	if gw != nil {
		// the gateway does its own handshake authentication so the token
		// can arrive as a query parameter
		mux.HandleFunc("GET /ws", gw.HandleConnection)
	}

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *App) generateShortId() (string, error) {
	return shortid.Generate()
}

func (s *App) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *App) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
