/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the HTTP router (chi), middleware stack, and route
	definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. RequestID:  Unique ID per request for tracing
 2. Logger:     Request logging through logrus
 3. Recoverer:  Panic recovery (500 instead of crash)
 4. CORS:       Cross-origin requests for the dashboard
 5. Throttle:   Token bucket on mutating requests (x/time/rate)

ROUTE GROUPS:

	/api/legal-rules/*     Term table
	/api/vacancy-groups/*  Groups, slot ledger, hiring
	/api/occupations/*     End and extend
	/api/alerts/*          Risk scan
	/api/waiting-lists/*   Candidates, notices, suggestions
	/api/candidates/*      Call lifecycle
	/api/deadlines         Deadline projection
	/api/scenarios/*       Demo scenarios
	/metrics               Prometheus exposition

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	log "github.com/sirupsen/logrus"
	"github.com/warp/slot-engine/metrics"
	"golang.org/x/time/rate"
)

// RouterOptions configure the middleware stack. Zero values take defaults.
type RouterOptions struct {
	AllowedOrigins []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	if len(opts.AllowedOrigins) == 0 {
		opts.AllowedOrigins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: log.StandardLogger(), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))
	if opts.RateLimitRPS > 0 {
		r.Use(throttleWrites(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/legal-rules", func(r chi.Router) {
			r.Get("/", h.ListLegalRules)
			r.Put("/", h.SaveLegalRules)
		})

		r.Route("/vacancy-groups", func(r chi.Router) {
			r.Get("/", h.ListVacancyGroups)
			r.Post("/", h.CreateVacancyGroup)
			r.Get("/{id}", h.GetVacancyGroup)
			r.Get("/{id}/slots", h.GetSlots)
			r.Post("/{id}/slots/{slot}/hire", h.Hire)
		})

		r.Route("/occupations", func(r chi.Router) {
			r.Post("/{id}/end", h.EndOccupation)
			r.Post("/{id}/extend", h.ExtendOccupation)
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", h.GetAlerts)
			r.Post("/scan", h.TriggerScan)
		})

		r.Route("/waiting-lists/{id}", func(r chi.Router) {
			r.Get("/candidates", h.ListCandidates)
			r.Post("/candidates", h.RegisterCandidate)
			r.Get("/notices", h.ListNotices)
			r.Get("/suggestions", h.GetSuggestions)
		})

		r.Route("/candidates/{id}", func(r chi.Router) {
			r.Get("/", h.GetCandidate)
			r.Post("/call", h.CallCandidate)
			r.Post("/decline", h.DeclineCandidate)
			r.Post("/requeue", h.RequeueCandidate)
		})

		r.Get("/deadlines", h.GetDeadline)

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(indexPage))
	})

	return r
}

// throttleWrites rejects mutating requests above rps with 429. Reads are
// never throttled.
func throttleWrites(rps float64, burst int) func(http.Handler) http.Handler {
	if burst < 1 {
		burst = 1
	}
	limiter := rate.NewLimiter(rate.Limit(rps), burst)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
			default:
				if !limiter.Allow() {
					writeError(w, http.StatusTooManyRequests, "Too many requests", nil)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

const indexPage = `<!DOCTYPE html>
<html>
<head><title>Slot Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Slot Engine API</h1>
<ul>
<li><a href="/api/vacancy-groups">/api/vacancy-groups</a> - Vacancy groups</li>
<li><a href="/api/alerts">/api/alerts</a> - Expiry alerts</li>
<li><a href="/api/legal-rules">/api/legal-rules</a> - Legal term table</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
<li><a href="/metrics">/metrics</a> - Prometheus metrics</li>
</ul>
</body>
</html>`
