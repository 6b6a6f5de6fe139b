package routes

import (
	"github.com/deltacrown/deltacrown/handlers"
	"github.com/deltacrown/deltacrown/middleware"
	"github.com/deltacrown/deltacrown/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type Handlers struct {
	Tournament   *handlers.TournamentHandler
	Registration *handlers.RegistrationHandler
	Match        *handlers.MatchHandler
	Dispute      *handlers.DisputeHandler
	Stats        *handlers.StatsHandler
	Notification *handlers.NotificationHandler
	WebSocket    *handlers.WebSocketHandler
}

func InitRoutes(auth *middleware.Auth, h Handlers) *chi.Mux {
	router := chi.NewRouter()

	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Route("/tournaments", func(r chi.Router) {
		r.Get("/", h.Tournament.List)
		r.Get("/{tournamentID}", h.Tournament.GetByID)
		r.Get("/slug/{slug}", h.Tournament.GetBySlug)
		r.Get("/{tournamentID}/bracket", h.Match.GetBracket)
		r.Get("/{tournamentID}/matches", h.Match.ListByTournament)
		r.Get("/{tournamentID}/registrations", h.Registration.List)

		// Organizer-only structure management.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.Authorize(models.RoleOrganizer, models.RoleAdmin))

			r.Post("/", h.Tournament.Create)
			r.Patch("/{tournamentID}", h.Tournament.Update)
			r.Put("/{tournamentID}/settings", h.Tournament.UpdateSettings)
			r.Post("/{tournamentID}/status", h.Tournament.Transition)
			r.Post("/{tournamentID}/bracket", h.Match.GenerateBracket)
			r.Post("/{tournamentID}/schedule", h.Tournament.Schedule)
			r.Get("/{tournamentID}/disputes", h.Dispute.ListByTournament)
		})

		// Any authenticated user can register.
		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/{tournamentID}/registrations", h.Registration.Register)
		})
	})

	router.Route("/registrations", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Post("/{registrationID}/payment", h.Registration.SubmitPayment)
		r.Delete("/{registrationID}", h.Registration.Withdraw)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authorize(models.RoleOrganizer, models.RoleAdmin))
			r.Post("/{registrationID}/payment/verify", h.Registration.VerifyPayment)
		})
	})

	router.Route("/matches", func(r chi.Router) {
		r.Get("/{matchID}", h.Match.GetByID)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Post("/{matchID}/start", h.Match.Start)
			r.Post("/{matchID}/result", h.Match.SubmitResult)
		})

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.Authorize(models.RoleOrganizer, models.RoleAdmin))
			r.Post("/{matchID}/verify", h.Match.Verify)
		})
	})

	router.Route("/disputes", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Get("/{disputeID}", h.Dispute.GetByID)
		r.Post("/{disputeID}/evidence", h.Dispute.AddEvidence)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authorize(models.RoleOrganizer, models.RoleAdmin))
			r.Post("/{disputeID}/resolve", h.Dispute.Resolve)
		})
	})

	router.Route("/teams/{teamID}/stats", func(r chi.Router) {
		r.Get("/", h.Stats.Latest)
		r.Get("/history", h.Stats.History)

		r.Group(func(r chi.Router) {
			r.Use(auth.Authenticate)
			r.Use(auth.Authorize(models.RoleOrganizer, models.RoleAdmin))
			r.Post("/rebuild", h.Stats.Rebuild)
		})
	})

	router.Route("/notifications", func(r chi.Router) {
		r.Use(auth.Authenticate)
		r.Get("/", h.Notification.List)
		r.Post("/{notificationID}/read", h.Notification.MarkRead)
	})

	router.Get("/ws/tournaments/{tournamentID}", h.WebSocket.Subscribe)

	return router
}
