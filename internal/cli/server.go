package cli

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"mesh-jeopardy-service/internal/bank"
	"mesh-jeopardy-service/internal/commentary"
	"mesh-jeopardy-service/internal/config"
	"mesh-jeopardy-service/internal/game"
	"mesh-jeopardy-service/internal/infra/memory"
	pgloader "mesh-jeopardy-service/internal/infra/postgres"
	redissession "mesh-jeopardy-service/internal/infra/redis"
	"mesh-jeopardy-service/internal/transport/meshws"
)

// NewStartCmd builds the CLI subcommand to start the bot.
func NewStartCmd(configPath, gateway *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Connect to the mesh gateway and host games",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBot(cmd.Context(), *configPath, *gateway)
		},
	}
}

func runBot(ctx context.Context, configPath, gatewayFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	gatewayURL := gatewayFlag
	if gatewayURL == "" {
		gatewayURL = cfg.Mesh.Gateway
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var source bank.Source = bank.FileSource{Path: cfg.Game.QuestionsFile}
	if pool != nil {
		source = pgloader.NewQuestionLoader(pool)
	}
	records, err := source.LoadQuestions(ctx)
	if err != nil || len(records) == 0 {
		log.Printf("question source unusable (%v), using fallback set", err)
		records = bank.Fallback()
	}
	questionBank := bank.New(records)
	log.Printf("question bank loaded: %d questions", questionBank.Len())

	var store game.Store = memory.NewSessionStore()
	if redisClient != nil {
		store = redissession.NewSessionStore(redisClient)
	}

	var host game.Commentator
	if cfg.LLM.BaseURL != "" {
		apiKey := cfg.LLM.APIKey
		if apiKey == "" {
			apiKey = "ollama"
		}
		host = commentary.New(cfg.LLM.BaseURL, apiKey, cfg.LLM.Model)
	}

	client, err := meshws.Dial(ctx, gatewayURL, meshws.Options{
		ChannelName: cfg.Mesh.Channel,
		ChunkSize:   cfg.Mesh.ChunkSize,
		ChunkDelay:  config.Duration(cfg.Mesh.ChunkDelay, 500*time.Millisecond),
	})
	if err != nil {
		return err
	}
	defer client.Close()

	engine := game.NewEngine(game.Config{
		AdminIDs:              cfg.Game.Admins,
		MaxRounds:             cfg.Game.MaxRounds,
		AnswerWindow:          config.Duration(cfg.Game.AnswerWindow, 2*time.Minute),
		BreakBetweenQuestions: config.Duration(cfg.Game.Break, time.Minute),
		JoinDelay:             config.Duration(cfg.Game.JoinDelay, 30*time.Second),
		LeaderboardLimit:      cfg.Game.LeaderboardSize,
	}, store, questionBank, client, host)
	defer engine.Shutdown()

	client.OnMessage(func(m meshws.Message) {
		go func() {
			reply := engine.HandleMessage(context.Background(), m.SenderID, m.SenderName, m.Text)
			if reply == "" {
				return
			}
			if err := client.Direct(context.Background(), m.SenderID, reply); err != nil {
				log.Printf("reply to %s failed: %v", m.SenderID, err)
			}
		}()
	})

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	runErr := make(chan error, 1)
	go func() {
		log.Printf("connected to mesh gateway %s", gatewayURL)
		runErr <- client.Run(runCtx)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down...")
		cancel()
		<-runErr
		return nil
	case err := <-runErr:
		return err
	}
}
