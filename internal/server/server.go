// Package server is the composition root: it opens the database, builds
// every service and handler, and mounts them on one chi router.
//
// DEPENDENCY FLOW:
//
//	main.go → config + logger + mailer + clock
//	New()   → sqlite.DB → services → handlers → routes
//
// Handlers only see services, services only see repository.Store, and
// nothing below this package knows about HTTP routing.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/juju/clock"

	"github.com/sakif/duotrak/internal/auth"
	"github.com/sakif/duotrak/internal/config"
	"github.com/sakif/duotrak/internal/handler"
	"github.com/sakif/duotrak/internal/mailer"
	"github.com/sakif/duotrak/internal/middleware"
	sqliteRepo "github.com/sakif/duotrak/internal/repository/sqlite"
	"github.com/sakif/duotrak/internal/security"
	"github.com/sakif/duotrak/internal/service"
)

// Server owns the router and the database connection. The connection is
// closed when Start returns or when Close is called.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger
	db     *sqliteRepo.DB
}

// New wires the whole application. mail and clk are injected so tests can
// capture invites and control time; a nil clk means the wall clock.
func New(cfg *config.Config, logger *slog.Logger, mail mailer.Mailer, clk clock.Clock) (*Server, error) {
	if clk == nil {
		clk = clock.WallClock
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTIssuer, clk)
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	db, err := sqliteRepo.New(cfg.DBPath, clk)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		config: cfg,
		logger: logger,
		db:     db,
	}
	s.setupRoutes(tokens, mail, clk)

	return s, nil
}

// setupRoutes mounts the API. Middleware order matters: RequestID must run
// before Logger so that every log line carries the request id.
//
// /api/v1/users/sync needs only a valid token; every other authenticated
// route also needs a synced profile.
func (s *Server) setupRoutes(tokens *auth.TokenService, mail mailer.Mailer, clk clock.Clock) {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	// === Services ===
	users := service.NewUserService(s.db, s.logger)
	partnerships := service.NewPartnershipService(
		s.db,
		security.NewInviteTokens(),
		mail,
		clk,
		s.logger,
		service.PartnershipConfig{
			InviteTTL:   s.config.InviteTTL,
			FrontendURL: s.config.FrontendURL,
		},
	)
	goals := service.NewGoalService(s.db, s.logger)
	systems := service.NewSystemService(s.db, s.logger)
	checkins := service.NewCheckinService(s.db, clk, s.logger)
	reflections := service.NewReflectionService(s.db, s.logger)
	comments := service.NewCommentService(s.db, s.logger)
	reactions := service.NewReactionService(s.db, s.logger)
	messages := service.NewMessageService(s.db, clk, s.logger)

	// === Handlers ===
	healthH := handler.NewHealthHandler(s.db, s.logger)
	userH := handler.NewUserHandler(users, s.logger)
	partnershipH := handler.NewPartnershipHandler(partnerships, s.logger)
	goalH := handler.NewGoalHandler(goals, s.logger)
	systemH := handler.NewSystemHandler(systems, s.logger)
	checkinH := handler.NewCheckinHandler(checkins, s.logger)
	reflectionH := handler.NewReflectionHandler(reflections, s.logger)
	commentH := handler.NewCommentHandler(comments, s.logger)
	reactionH := handler.NewReactionHandler(reactions, s.logger)
	messageH := handler.NewMessageHandler(messages, s.logger)

	inviteLimiter := middleware.NewRateLimiter(s.config.InviteRatePerMinute, clk)

	s.router.Get("/healthz", healthH.HandleHealth)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(auth.RequireAuth(tokens))

		r.Post("/users/sync", userH.HandleSync)

		r.Group(func(r chi.Router) {
			r.Use(handler.RequireProfile(users, s.logger))

			r.Get("/users/me", userH.HandleMe)
			r.Patch("/users/me", userH.HandleUpdateMe)
			r.Get("/users/{id}", userH.HandleGet)

			r.Route("/partnerships", func(r chi.Router) {
				r.With(inviteLimiter.Middleware).Post("/invite", partnershipH.HandleInvite)
				r.Get("/requests/pending", partnershipH.HandlePending)
				r.Get("/requests/sent", partnershipH.HandleSent)
				r.Put("/requests/{id}/respond", partnershipH.HandleRespond)
				r.Delete("/requests/{id}", partnershipH.HandleCancel)
				r.Post("/accept-invite/{token}", partnershipH.HandleAcceptInvite)
				r.Get("/current", partnershipH.HandleCurrent)
				r.Get("/{id}", partnershipH.HandleGet)
				r.Delete("/{id}", partnershipH.HandleTerminate)
				r.Get("/{id}/messages", messageH.HandleListConversation)
			})

			r.Route("/goals", func(r chi.Router) {
				r.Get("/", goalH.HandleList)
				r.Post("/", goalH.HandleCreate)
				r.Get("/{id}", goalH.HandleGet)
				r.Patch("/{id}", goalH.HandleUpdate)
				r.Delete("/{id}", goalH.HandleDelete)
				r.Get("/{id}/systems", systemH.HandleListForGoal)
				r.Post("/{id}/systems", systemH.HandleCreate)
				r.Get("/{id}/reflections", reflectionH.HandleListForGoal)
				r.Post("/{id}/reflections", reflectionH.HandleCreate)
				r.Get("/{id}/comments", commentH.HandleListForGoal)
			})

			r.Route("/systems", func(r chi.Router) {
				r.Get("/{id}", systemH.HandleGet)
				r.Patch("/{id}", systemH.HandleUpdate)
				r.Delete("/{id}", systemH.HandleDelete)
				r.Get("/{id}/checkins", checkinH.HandleListForSystem)
				r.Post("/{id}/checkins", checkinH.HandleCreate)
			})

			r.Route("/checkins", func(r chi.Router) {
				r.Get("/{id}", checkinH.HandleGet)
				r.Patch("/{id}", checkinH.HandleUpdate)
				r.Delete("/{id}", checkinH.HandleDelete)
				r.Post("/{id}/verify", checkinH.HandleVerify)
				r.Get("/{id}/comments", commentH.HandleListForCheckin)
			})

			r.Route("/reflections", func(r chi.Router) {
				r.Get("/{id}", reflectionH.HandleGet)
				r.Patch("/{id}", reflectionH.HandleUpdate)
				r.Delete("/{id}", reflectionH.HandleDelete)
			})

			r.Post("/comments", commentH.HandleCreate)
			r.Patch("/comments/{id}", commentH.HandleUpdate)
			r.Delete("/comments/{id}", commentH.HandleDelete)

			r.Post("/reactions", reactionH.HandleAdd)
			r.Get("/reactions", reactionH.HandleList)
			r.Delete("/reactions/{id}", reactionH.HandleRemove)

			r.Post("/messages", messageH.HandleSend)
			r.Post("/messages/{id}/read", messageH.HandleMarkRead)
			r.Delete("/messages/{id}", messageH.HandleDelete)
		})
	})
}

// Handler exposes the router, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the database. Start calls it on shutdown.
func (s *Server) Close() error {
	return s.db.Close()
}

// Start serves until SIGINT or SIGTERM, then drains in-flight requests for
// up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
