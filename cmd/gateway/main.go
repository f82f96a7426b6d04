package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"

	api "github.com/stagegate/stagegate/internal/api/http"
	auth "github.com/stagegate/stagegate/internal/auth/middleware"
	"github.com/stagegate/stagegate/internal/config"
	"github.com/stagegate/stagegate/internal/db"
	"github.com/stagegate/stagegate/internal/eventlog"
	"github.com/stagegate/stagegate/internal/exam"
	"github.com/stagegate/stagegate/internal/rbac"
	"github.com/stagegate/stagegate/internal/release"
)

func main() {
	_ = godotenv.Load()
	cfg := config.FromEnv()

	// --- DB ---
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatalf("db open failed: %v", err)
	}
	store := exam.NewSQLStore(dbh, cfg.DBDriver)
	events := eventlog.NewRepo(dbh)
	releaser := release.New(release.NewSQLStore(dbh, cfg.DBDriver), nil)

	if cfg.SeedDefaults {
		if err := exam.EnsureDefaultStage1Exams(ctx, store); err != nil {
			log.Fatalf("seed stage-1 exams: %v", err)
		}
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/register", auth.RegisterHandler(authSvc, dbh))
	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(rbac.Require("exam:list")).
			Get("/exams", api.ListExamsHandler(store))
		pr.With(rbac.Require("exam:view")).
			Get("/exams/{examID}", api.GetExamHandler(store))
		pr.With(rbac.Require("exam:bootstrap")).
			Post("/exams/bootstrap", api.BootstrapExamsHandler(store))

		// Candidate flow
		pr.With(rbac.Require("attempt:start")).
			Post("/exams/{examID}/start", api.StartAttemptHandler(store))
		pr.With(rbac.Require("attempt:submit")).
			Post("/attempts/{attemptID}/submit", api.SubmitAttemptHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts/{attemptID}", api.GetAttemptHandler(store))
		pr.With(rbac.RequireAny("attempt:view-own", "attempt:view-all")).
			Get("/attempts", api.ListAttemptsHandler(store))
		pr.With(rbac.Require("attempt:event")).
			Post("/attempts/{attemptID}/events", api.AttemptEventHandler(store, events))
		pr.With(rbac.Require("attempt:view-all")).
			Get("/attempts/{attemptID}/events", api.ListAttemptEventsHandler(events))
	})

	// External periodic trigger; at-least-once, exactly-once effect per attempt.
	r.Get("/cron/release-results", api.ReleaseResultsHandler(releaser, cfg.CronToken))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	log.Printf("listening on %s (db=%s)", cfg.HTTPAddr, cfg.DBDriver)
	log.Fatal(http.ListenAndServe(cfg.HTTPAddr, r))
}
