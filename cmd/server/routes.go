package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/szlgbiliard/biliard-api/internal/apperr"
	"github.com/szlgbiliard/biliard-api/internal/billiard"
	"github.com/szlgbiliard/biliard-api/internal/config"
	"github.com/szlgbiliard/biliard-api/internal/constants"
	"github.com/szlgbiliard/biliard-api/internal/httputil"
	"github.com/szlgbiliard/biliard-api/internal/live"
	"github.com/szlgbiliard/biliard-api/internal/middleware"
	"github.com/szlgbiliard/biliard-api/internal/service"
)

func newRouter(
	cfg *config.Config,
	logger zerolog.Logger,
	auth *middleware.Authenticator,
	hub *live.Hub,
	matchService *service.MatchService,
	profileService *service.ProfileService,
	authService *service.AuthService,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.AllowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)

	urlID := func(r *http.Request) (uuid.UUID, error) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			return uuid.Nil, apperr.Validation("invalid id %q", chi.URLParam(r, "id"))
		}
		return id, nil
	}

	r.Route("/api", func(r chi.Router) {
		// The request deadline stays off the websocket routes below; those
		// connections live as long as the match does.
		r.Use(chimiddleware.Timeout(constants.RequestTimeout))

		r.Post("/login", func(w http.ResponseWriter, r *http.Request) {
			var input struct {
				Username string `json:"username"`
				Password string `json:"password"`
			}
			if err := httputil.DecodeJSON(r, &input); err != nil {
				httputil.WriteError(w, logger, err)
				return
			}
			result, err := authService.Login(r.Context(), input.Username, input.Password)
			if err != nil {
				httputil.WriteError(w, logger, err)
				return
			}
			httputil.WriteJSON(w, logger, http.StatusOK, result)
		})

		r.Get("/matches", func(w http.ResponseWriter, r *http.Request) {
			matches, err := matchService.ListMatches(r.Context())
			if err != nil {
				httputil.WriteError(w, logger, err)
				return
			}
			httputil.WriteJSON(w, logger, http.StatusOK, matches)
		})

		r.Get("/matches/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := urlID(r)
			if err != nil {
				httputil.WriteError(w, logger, err)
				return
			}
			data, err := matchService.GetMatchData(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, logger, err)
				return
			}
			httputil.WriteJSON(w, logger, http.StatusOK, data)
		})

		r.Get("/profiles", func(w http.ResponseWriter, r *http.Request) {
			profiles, err := profileService.ListProfiles(r.Context())
			if err != nil {
				httputil.WriteError(w, logger, err)
				return
			}
			httputil.WriteJSON(w, logger, http.StatusOK, profiles)
		})

		r.Get("/profiles/{id}", func(w http.ResponseWriter, r *http.Request) {
			id, err := urlID(r)
			if err != nil {
				httputil.WriteError(w, logger, err)
				return
			}
			profile, err := profileService.GetProfile(r.Context(), id)
			if err != nil {
				httputil.WriteError(w, logger, err)
				return
			}
			httputil.WriteJSON(w, logger, http.StatusOK, profile)
		})

		// Referee surface: everything below mutates scoring state.
		r.Route("/biro", func(r chi.Router) {
			r.Use(auth.RequireReferee)

			r.Get("/profiles", func(w http.ResponseWriter, r *http.Request) {
				profiles, err := profileService.ListProfiles(r.Context())
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusOK, profiles)
			})

			r.Post("/profiles", func(w http.ResponseWriter, r *http.Request) {
				var input service.CreateProfileInput
				if err := httputil.DecodeJSON(r, &input); err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				profile, err := profileService.CreateProfile(r.Context(), input)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusCreated, profile)
			})

			r.Post("/matches", func(w http.ResponseWriter, r *http.Request) {
				var input service.CreateMatchInput
				if err := httputil.DecodeJSON(r, &input); err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				match, err := matchService.CreateMatch(r.Context(), input)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusCreated, match)
			})

			r.Post("/matches/{id}/frames", func(w http.ResponseWriter, r *http.Request) {
				id, err := urlID(r)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				frame, err := matchService.StartFrame(r.Context(), id)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusCreated, frame)
			})

			r.Put("/frames/{id}", func(w http.ResponseWriter, r *http.Request) {
				id, err := urlID(r)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				var input struct {
					WinnerID uuid.UUID `json:"winner_id"`
				}
				if err := httputil.DecodeJSON(r, &input); err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				result, err := matchService.EndFrame(r.Context(), id, input.WinnerID)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusOK, result)
			})

			r.Post("/frames/{id}/events", func(w http.ResponseWriter, r *http.Request) {
				id, err := urlID(r)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				var input service.EventInput
				if err := httputil.DecodeJSON(r, &input); err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				session, err := matchService.SessionForFrame(r.Context(), id)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				event, err := session.RecordEvent(r.Context(), input)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusCreated, event)
			})

			r.Put("/frames/{id}/ball-groups", func(w http.ResponseWriter, r *http.Request) {
				id, err := urlID(r)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				var input struct {
					Player1BallGroup billiard.BallGroup `json:"player1_ball_group"`
					Player2BallGroup billiard.BallGroup `json:"player2_ball_group"`
				}
				if err := httputil.DecodeJSON(r, &input); err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				session, err := matchService.SessionForFrame(r.Context(), id)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				if err := session.SetBallGroups(r.Context(), input.Player1BallGroup, input.Player2BallGroup); err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusNoContent, nil)
			})

			r.Post("/frames/{id}/undo", func(w http.ResponseWriter, r *http.Request) {
				id, err := urlID(r)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				session, err := matchService.SessionForFrame(r.Context(), id)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				removed, err := session.UndoLastEvent(r.Context())
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				count := 0
				if removed != nil {
					count = 1
				}
				httputil.WriteJSON(w, logger, http.StatusOK, map[string]interface{}{
					"count":   count,
					"removed": removed,
				})
			})

			r.Delete("/frames/{id}/events", func(w http.ResponseWriter, r *http.Request) {
				id, err := urlID(r)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				session, err := matchService.SessionForFrame(r.Context(), id)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				count, err := session.ClearEvents(r.Context())
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusOK, map[string]int64{"count": count})
			})

			r.Delete("/events/{id}", func(w http.ResponseWriter, r *http.Request) {
				id, err := urlID(r)
				if err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				if err := matchService.RemoveEvent(r.Context(), id); err != nil {
					httputil.WriteError(w, logger, err)
					return
				}
				httputil.WriteJSON(w, logger, http.StatusNoContent, nil)
			})
		})
	})

	spectator := live.NewSpectatorHandler(matchService, hub, websocketOrigin(cfg), logger)
	referee := live.NewRefereeHandler(matchService, hub, websocketOrigin(cfg), logger)

	r.Get("/ws/match/{id}", spectator.ServeHTTP)
	r.With(auth.RequireReferee).Get("/ws/biro/match/{id}", referee.ServeHTTP)

	return r
}

// websocketOrigin maps the wildcard CORS setting to the open origin check.
func websocketOrigin(cfg *config.Config) string {
	if cfg.AllowedOrigin == "*" {
		return ""
	}
	return cfg.AllowedOrigin
}
