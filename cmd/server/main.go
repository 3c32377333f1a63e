package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/ayush/docmind/backend/internal/analysis"
	"github.com/ayush/docmind/backend/internal/auth"
	"github.com/ayush/docmind/backend/internal/completion"
	"github.com/ayush/docmind/backend/internal/config"
	"github.com/ayush/docmind/backend/internal/document"
	"github.com/ayush/docmind/backend/internal/extract"
	"github.com/ayush/docmind/backend/internal/logger"
	"github.com/ayush/docmind/backend/internal/middleware"
	"github.com/ayush/docmind/backend/internal/session"
	"github.com/ayush/docmind/backend/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	log := logger.New(cfg.LogFilePath, cfg.Environment == "production")
	defer log.Sync()

	if err := cfg.Pipeline.Validate(); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal("postgres connect", zap.Error(err))
	}
	defer pgPool.Close()
	pgStore := store.NewPostgresStore(pgPool)
	if err := pgStore.Migrate(ctx); err != nil {
		log.Fatal("postgres migrate", zap.Error(err))
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("mongo connect", zap.Error(err))
	}
	defer mongoClient.Disconnect(ctx)
	mongoStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))
	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		log.Warn("mongo indexes", zap.Error(err))
	}

	// ── Redis ────────────────────────────────────────────────
	rdb, err := store.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatal("redis connect", zap.Error(err))
	}
	defer rdb.Close()
	sessions := auth.NewSessionStore(rdb, cfg.SessionTTL)
	holder := session.NewHolder(session.NewRedisStore(rdb, cfg.SessionTTL), log)

	// ── MinIO ────────────────────────────────────────────────
	minioStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatal("minio connect", zap.Error(err))
	}

	// ── Completion service ───────────────────────────────────
	completer, err := completion.FromPipeline(ctx, cfg.Pipeline, log)
	if err != nil {
		log.Fatal("completion client", zap.Error(err))
	}

	// ── Workspaces ───────────────────────────────────────────
	extractor := extract.New(log)
	history := analysis.NewHistory(mongoStore)
	settings := analysis.Settings{
		ExcerptChars:   cfg.Pipeline.ExcerptChars,
		Model:          cfg.Pipeline.Model,
		MaxQuestions:   cfg.Pipeline.MaxQuizQuestions,
		RecentSearches: cfg.Pipeline.RecentSearches,
	}
	registry := analysis.NewRegistry(cfg.SessionTTL, func(owner string) analysis.Deps {
		return analysis.Deps{
			Owner:     owner,
			Extractor: extractor,
			Completer: completer,
			Recorder:  history,
			Logger:    log.With(zap.String("user_id", owner)),
			Settings:  settings,
		}
	})

	// ── Handlers ─────────────────────────────────────────────
	authHandler := auth.NewHandler(pgStore, sessions, log, func(ctx context.Context, userID string) {
		registry.Drop(userID)
		if err := holder.Clear(ctx, userID); err != nil {
			log.Warn("clear document on logout", zap.String("user_id", userID), zap.Error(err))
		}
	})
	limits := document.Limits{
		MaxBytes:          cfg.Pipeline.MaxUploadBytes,
		AllowedExtensions: cfg.Pipeline.AllowedExtensions,
	}
	documentHandler := document.NewHandler(holder, minioStore, pgStore, registry, mongoStore, limits, log)
	analysisHandler := analysis.NewHandler(registry, holder, history, log)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	// Auth routes (public)
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
		r.Post("/logout", authHandler.Logout)
		r.With(middleware.RequireAuth(sessions)).Get("/me", authHandler.Me)
	})

	// Document routes (protected)
	r.Route("/api/documents", func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		r.Post("/", documentHandler.Upload)
		r.Get("/", documentHandler.Uploads)
		r.Get("/current", documentHandler.Current)
		r.Get("/current/raw", documentHandler.Raw)
		r.Delete("/current", documentHandler.Clear)
		r.Post("/uploads/{id}/open", documentHandler.Reopen)
		r.Delete("/uploads/{id}", documentHandler.Forget)
	})

	// Analysis routes (protected)
	r.Route("/api/analysis", func(r chi.Router) {
		r.Use(middleware.RequireAuth(sessions))
		r.Get("/tools", analysisHandler.Tools)
		r.Get("/history", analysisHandler.History)
		r.Post("/summary/reset", analysisHandler.ResetSummary)
		r.Get("/concepts/tabs/{tab}", analysisHandler.ConceptsTab)
		r.Post("/quiz/answer", analysisHandler.Answer)
		r.Post("/quiz/next", analysisHandler.QuizStep((*analysis.Quiz).Next))
		r.Post("/quiz/previous", analysisHandler.QuizStep((*analysis.Quiz).Previous))
		r.Post("/quiz/try-again", analysisHandler.QuizStep((*analysis.Quiz).TryAgain))
		r.Post("/quiz/settings", analysisHandler.QuizStep((*analysis.Quiz).BackToSettings))
		r.Get("/{tool}", analysisHandler.Get)
		r.Delete("/{tool}", analysisHandler.Discard)
		r.Post("/{tool}/open", analysisHandler.Open)
		r.Post("/{tool}/run", analysisHandler.Run)
		r.Post("/{tool}/retry", analysisHandler.Retry)
	})

	// ── Server ───────────────────────────────────────────────
	// Completions can take a while; keep the write timeout above the
	// completion timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  5 * time.Minute,
		WriteTimeout: cfg.Pipeline.CompletionTimeout + time.Minute,
	}

	go func() {
		log.Info("backend listening", zap.String("port", cfg.Port), zap.String("provider", cfg.Pipeline.Provider))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
