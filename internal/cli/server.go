package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"studyhub/internal/app"
	"studyhub/internal/auth"
	"studyhub/internal/config"
	"studyhub/internal/content"
	"studyhub/internal/domain"
	"studyhub/internal/gpa"
	"studyhub/internal/infra/memory"
	pgstore "studyhub/internal/infra/postgres"
	redisstore "studyhub/internal/infra/redis"
	"studyhub/internal/logging"
	"studyhub/internal/metrics"
	transport "studyhub/internal/transport/http"
)

const defaultModel = "claude-3-5-haiku-latest"

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz and GPA server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(logging.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		return err
	}
	defer logger.Sync()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, logger); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	catalog, err := gpa.DefaultCatalog()
	if err != nil {
		return err
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.QuizLoader = memory.NewStaticQuizLoader(sampleQuizzes())
	var results app.ResultStore = memory.NewResultStore()
	if pool != nil {
		loader = pgstore.NewQuizLoader(pool)
		results = pgstore.NewResultStore(pool)
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var store app.SessionRepository
	var explanations app.ExplanationCache
	if redisClient != nil {
		quizRepo = redisstore.NewQuizRepository(redisClient, loader, quizTTL)
		store = redisstore.NewSessionStore(redisClient, redisTTL)
		explanations = redisstore.NewExplanationCache(redisClient, 30*24*time.Hour)
	} else {
		quizRepo = memory.NewQuizRepository(loader, quizTTL)
		store = memory.NewSessionStore()
		explanations = memory.NewExplanationCache()
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	service := app.NewQuizService(store, quizRepo, results,
		app.WithLogger(logger),
		app.WithMetrics(m),
		app.WithExplainer(explanations, newGenerator(cfg, logger)),
		app.WithSessionClock(time.Now, config.TTLDuration(cfg.Session.TickInterval, time.Second)),
	)

	if cfg.Auth.Secret == "" {
		logger.Warn("auth secret not configured; every caller is anonymous")
	}
	handler := transport.NewRouter(transport.RouterConfig{
		Service: service,
		Catalog: catalog,
		Auth:    auth.NewAuthenticator(cfg.Auth.Secret),
		Metrics: m,
		Logger:  logger,
	})

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info("starting studyhub", zap.String("port", finalPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to start server", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		logger.Info("shutting down server")
	case <-ctx.Done():
		logger.Info("context canceled, shutting down server")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = server.Shutdown(shutdownCtx)
	service.Close()
	return err
}

// newGenerator picks the explanation backend. Without an API key the mock
// answers so local runs work offline.
func newGenerator(cfg config.Config, logger *zap.Logger) content.Generator {
	if cfg.AI.Provider == "mock" || cfg.AI.APIKey == "" {
		logger.Info("using mock explanation generator")
		return content.NewMockClient()
	}
	model := cfg.AI.Model
	if model == "" {
		model = defaultModel
	}
	maxTokens := cfg.AI.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return content.NewAPIClient(cfg.AI.APIKey, model, maxTokens, logger)
}

// sampleQuizzes seeds the in-memory loader when no database is configured.
func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		"quiz-1": {
			ID:             "quiz-1",
			Title:          "Physics warm-up",
			TimeLimit:      5,
			TargetAudience: domain.AudienceAll,
			Questions: []domain.Question{
				{
					ID:           "q1",
					QuestionText: "What is the SI unit of force?",
					Options: []domain.Option{
						{ID: "o1", Text: "Joule"},
						{ID: "o2", Text: "Newton", IsCorrect: true},
						{ID: "o3", Text: "Watt"},
						{ID: "o4", Text: "Pascal"},
					},
					Marks: 1,
				},
				{
					ID:           "q2",
					QuestionText: "Acceleration due to gravity near Earth's surface is about",
					Options: []domain.Option{
						{ID: "o1", Text: "9.8 m/s²", IsCorrect: true},
						{ID: "o2", Text: "8.9 m/s²"},
						{ID: "o3", Text: "98 m/s²"},
					},
					Marks: 2,
				},
			},
		},
		"quiz-2": {
			ID:             "quiz-2",
			Title:          "Members practice set",
			TargetAudience: domain.AudienceAuthenticated,
			Questions: []domain.Question{
				{
					ID:           "q1",
					QuestionText: "Which gas do plants absorb during photosynthesis?",
					Options: []domain.Option{
						{ID: "o1", Text: "Oxygen"},
						{ID: "o2", Text: "Carbon dioxide", IsCorrect: true},
						{ID: "o3", Text: "Nitrogen"},
					},
					Marks: 1,
				},
			},
		},
	}
}
