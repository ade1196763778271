package routes

import (
	"net/http"

	"github.com/cyclocross/stevenscup-app/handlers"
	"github.com/cyclocross/stevenscup-app/middleware"
	"github.com/cyclocross/stevenscup-app/services"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// Handlers — все HTTP-обработчики приложения.
type Handlers struct {
	Auth          *handlers.AuthHandler
	Series        *handlers.SeriesHandler
	Event         *handlers.EventHandler
	Contest       *handlers.ContestHandler
	Race          *handlers.RaceHandler
	Participant   *handlers.ParticipantHandler
	Participation *handlers.ParticipationHandler
	Ranking       *handlers.RankingHandler
	Import        *handlers.ImportHandler
	Live          *handlers.LiveHandler
}

// New собирает роутер: публичные чтения и live-поток доступны без
// аутентификации, все мутации требуют админской сессии.
func New(h Handlers, authService services.AuthService) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	requireAdmin := middleware.RequireAdmin(authService)

	r.Route("/api", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		})

		// Live-обновления
		r.Get("/events/stream", h.Live.Events)
		r.Get("/ws", h.Live.WebSocket)

		// Аутентификация
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Auth.Login)
			r.Post("/logout", h.Auth.Logout)
			r.With(requireAdmin).Get("/me", h.Auth.Me)
		})

		// Рейтинги (публичные)
		r.Get("/rankings", h.Ranking.All)

		r.Route("/series", func(r chi.Router) {
			r.Get("/", h.Series.List)
			r.With(requireAdmin).Post("/", h.Series.Create)

			r.Route("/{seriesID}", func(r chi.Router) {
				r.Get("/", h.Series.Get)
				r.Get("/events", h.Event.ListBySeries)
				r.Get("/contests", h.Contest.ListBySeries)
				r.Get("/rankings", h.Ranking.Series)

				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					r.Patch("/", h.Series.Update)
					r.Delete("/", h.Series.Delete)
					r.Post("/logo", h.Series.UploadLogo)
					r.Delete("/logo", h.Series.DeleteLogo)
				})
			})
		})

		r.Route("/events", func(r chi.Router) {
			r.With(requireAdmin).Post("/", h.Event.Create)

			r.Route("/{eventID}", func(r chi.Router) {
				r.Get("/", h.Event.Get)

				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					r.Patch("/", h.Event.Update)
					r.Delete("/", h.Event.Delete)
					r.Post("/reset-import", h.Event.ResetImportStatus)
				})
			})
		})

		r.Route("/contests", func(r chi.Router) {
			r.With(requireAdmin).Post("/", h.Contest.Create)

			r.Route("/{contestID}", func(r chi.Router) {
				r.Get("/", h.Contest.Get)
				r.Get("/participants", h.Participant.ListByContest)
				r.Get("/rankings", h.Ranking.Contest)
				r.Get("/statistics", h.Contest.Statistics)

				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					r.Patch("/", h.Contest.Update)
					r.Delete("/", h.Contest.Delete)
				})
			})
		})

		r.Route("/races", func(r chi.Router) {
			r.With(requireAdmin).Post("/", h.Race.Create)

			r.Route("/{raceID}", func(r chi.Router) {
				r.Get("/", h.Race.Get)
				r.Get("/participations", h.Race.Participations)
				r.Get("/available-participants", h.Race.AvailableParticipants)

				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					r.Patch("/", h.Race.Update)
					r.Patch("/status", h.Race.UpdateStatus)
					r.Delete("/", h.Race.Delete)
					r.Delete("/participants/{participantID}", h.Participation.Remove)
				})
			})
		})

		r.Route("/participants", func(r chi.Router) {
			r.With(requireAdmin).Post("/", h.Participant.Create)

			r.Route("/{participantID}", func(r chi.Router) {
				r.Get("/", h.Participant.Get)

				r.Group(func(r chi.Router) {
					r.Use(requireAdmin)
					r.Patch("/", h.Participant.Update)
					r.Delete("/", h.Participant.Delete)
				})
			})
		})

		r.Route("/participations", func(r chi.Router) {
			r.Use(requireAdmin)
			r.Post("/", h.Participation.Assign)
			r.Post("/{participationID}/cycle-status", h.Participation.CycleStatus)
			r.Post("/{participationID}/move-up", h.Participation.MoveUp)
			r.Post("/{participationID}/move-down", h.Participation.MoveDown)
		})

		r.With(requireAdmin).Post("/import/raceresult", h.Import.ImportRaceResult)
	})

	return r
}
