package cli

import (
	"context"
	"database/sql"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"contest-reward-service/internal/app"
	"contest-reward-service/internal/config"
	"contest-reward-service/internal/domain"
	"contest-reward-service/internal/infra/memory"
	pgstore "contest-reward-service/internal/infra/postgres"
	redisinfra "contest-reward-service/internal/infra/redis"
	transport "contest-reward-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the contest engine",
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

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
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

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	memStore := memory.NewStore()

	var (
		contests       app.ContestStore       = memStore
		settings       app.SettingsRepository = memStore
		participations app.ParticipationStore = memStore
		answers        app.AnswerStore        = memStore
		ledgerStore    app.LedgerStore        = memStore
		drawStore      app.DrawStore          = memStore
		loader         memory.CatalogLoader   = memStore
	)
	if cfg.Postgres.URL == "" {
		memStore.SeedCatalog(sampleCatalog())
	} else {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		loader = pgstore.NewCatalogLoader(pool)

		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())
		defer db.Close()
		store := pgstore.NewStore(db)
		contests = store
		settings = store
		participations = store
		answers = store
		ledgerStore = store
		drawStore = store
	}

	catalogTTL := config.Duration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog interface {
		app.CatalogRepository
		app.CatalogInvalidator
	}
	if redisClient != nil {
		catalog = redisinfra.NewCatalogCache(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalogCache(loader, catalogTTL)
	}

	var locker app.ContestLocker
	if redisClient != nil {
		locker = redisinfra.NewDrawLocker(redisClient, config.Duration(cfg.Redis.LockTTL, 30*time.Second))
	} else {
		locker = memory.NewDrawLocker()
	}

	seed := cfg.Draw.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rnd := rand.New(rand.NewSource(seed))

	ledger := app.NewLedgerService(ledgerStore)
	scoring := app.NewScoringService(catalog, settings, participations, answers, ledger)
	draw := app.NewDrawService(contests, settings, participations, drawStore, locker, app.LogNotifier{}, rnd)
	lifecycle := app.NewLifecycleService(contests, draw, catalog)

	dwell := config.Duration(cfg.Gating.Dwell, app.DefaultDwell)
	wsHandler := transport.NewWSHandler(scoring, dwell)
	adminHandler := transport.NewAdminHandler(lifecycle, draw)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	adminHandler.Register(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting contest engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleCatalog seeds a demo contest when no Postgres is configured.
func sampleCatalog() domain.Catalog {
	return domain.Catalog{
		Contest: domain.Contest{
			ID:     "contest-1",
			Title:  "Launch Quiz",
			Status: domain.ContestActive,
		},
		Questions: []domain.Question{
			{
				ID:            "q1",
				ContestID:     "contest-1",
				Text:          "Which year did the company launch?",
				Options:       []string{"2019", "2020", "2021"},
				CorrectAnswer: "2020",
				ArticleURL:    "https://example.com/articles/launch",
				Ordering:      1,
			},
			{
				ID:            "q2",
				ContestID:     "contest-1",
				Text:          "What is the flagship product called?",
				Options:       []string{"Atlas", "Nova", "Orbit"},
				CorrectAnswer: "Nova",
				Ordering:      2,
			},
		},
	}
}
