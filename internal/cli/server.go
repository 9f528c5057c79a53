package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trivia-room-service/internal/app"
	"trivia-room-service/internal/config"
	"trivia-room-service/internal/domain"
	"trivia-room-service/internal/infra/memory"
	pgloader "trivia-room-service/internal/infra/postgres"
	redisinfra "trivia-room-service/internal/infra/redis"
	transport "trivia-room-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the trivia room server",
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
	roomTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.DeckLoader = memory.NewStaticDeckLoader(sampleDecks())
	if pool != nil {
		loader = pgloader.NewDeckLoader(pool)
	}

	deckTTL := config.TTLDuration(cfg.Deck.TTL, 10*time.Minute)
	var deckRepo app.DeckRepository
	if redisClient != nil {
		deckRepo = redisinfra.NewDeckRepository(redisClient, loader, deckTTL)
	} else {
		deckRepo = memory.NewDeckRepository(loader, deckTTL)
	}

	var rooms app.RoomRepository
	if redisClient != nil {
		rooms = redisinfra.NewRoomStore(redisClient, roomTTL)
	} else {
		rooms = memory.NewRoomStore()
	}

	turnCfg := app.TurnConfig{
		Duration:    config.TTLDuration(cfg.Turn.Duration, 30*time.Second),
		Budget:      config.TTLDuration(cfg.Turn.Budget, 45*time.Second),
		PointTarget: cfg.Turn.PointTarget,
	}
	if turnCfg.PointTarget <= 0 {
		turnCfg.PointTarget = 10
	}

	service := app.NewRoomService(rooms, deckRepo, turnCfg)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting trivia room service on :%s", finalPort)
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

// sampleDecks provides a minimal deck; swap the loader for the
// Postgres-backed one in production.
func sampleDecks() map[string]domain.Deck {
	return map[string]domain.Deck{
		"room-1": {
			ID: "room-1",
			Questions: []domain.Trivia{
				{
					ID:       "t1",
					Question: "Which of these is a prime number?",
					Options: []domain.TriviaOption{
						{ID: "o1", Answer: "21", QuestionValue: 1},
						{ID: "o2", Answer: "23", QuestionValue: 1, Correct: true},
						{ID: "o3", Answer: "25", QuestionValue: 1},
					},
					AnswerType: domain.AnswerSingleChoice,
					MinAnswers: 1,
					MaxAnswers: 1,
					Scope:      domain.FeedbackRoom,
				},
				{
					ID:       "t2",
					Question: "Order these rivers by length, longest first",
					Options: []domain.TriviaOption{
						{ID: "o1", Answer: "Nile", QuestionValue: 1, Stat: 6650},
						{ID: "o2", Answer: "Amazon", QuestionValue: 1, Stat: 6400},
						{ID: "o3", Answer: "Danube", QuestionValue: 1, Stat: 2850},
					},
					AnswerType: domain.AnswerStatDesc,
					MinAnswers: 3,
					MaxAnswers: 3,
					StatDef:    "length in km",
					Scope:      domain.FeedbackRoom,
				},
			},
		},
	}
}
