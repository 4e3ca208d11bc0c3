package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"mesh-jeopardy-service/internal/bank"
	"mesh-jeopardy-service/internal/game"
	pgloader "mesh-jeopardy-service/internal/infra/postgres"
	pgmigrations "mesh-jeopardy-service/internal/infra/postgres/migrations"
	infraredis "mesh-jeopardy-service/internal/infra/redis"
)

type recordingSender struct {
	mu         sync.Mutex
	broadcasts []string
}

func (s *recordingSender) Broadcast(_ context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.broadcasts = append(s.broadcasts, text)
	return nil
}

func (s *recordingSender) Direct(_ context.Context, _, _ string) error {
	return nil
}

func TestGameRoundEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	seedQuestions(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	records, err := pgloader.NewQuestionLoader(pool).LoadQuestions(ctx)
	if err != nil {
		t.Fatalf("load questions: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected 1 seeded question, got %d", len(records))
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	store := infraredis.NewSessionStore(redisClient)

	sender := &recordingSender{}
	engine := game.NewEngine(game.Config{
		AdminIDs:     []string{"admin"},
		MaxRounds:    1,
		AnswerWindow: time.Hour,
		JoinDelay:    50 * time.Millisecond,
	}, store, bank.New(records), sender, nil)
	defer engine.Shutdown()

	if reply := engine.HandleMessage(ctx, "admin", "Admin", "!hj start"); !strings.Contains(reply, "started") {
		t.Fatalf("start reply %q", reply)
	}

	deadline := time.Now().Add(5 * time.Second)
	for engine.State() != game.StateCollecting && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if engine.State() != game.StateCollecting {
		t.Fatalf("question never opened, state %s", engine.State())
	}

	engine.HandleMessage(ctx, "node1", "Alice", "!join")
	engine.HandleMessage(ctx, "node2", "Bob", "!join")

	if reply := engine.HandleMessage(ctx, "node2", "Bob", "22"); reply != "✅ Correct! +100 points! 🎉" {
		t.Fatalf("correct answer reply %q", reply)
	}
	if reply := engine.HandleMessage(ctx, "node1", "Alice", "8080"); !strings.HasPrefix(reply, "❌ Wrong!") {
		t.Fatalf("wrong answer reply %q", reply)
	}

	if reply := engine.HandleMessage(ctx, "admin", "Admin", "!hj stop"); reply != "✅ Game stopped!" {
		t.Fatalf("stop reply %q", reply)
	}

	entries, err := store.Leaderboard(ctx, 1, 5)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 leaderboard entries, got %+v", entries)
	}
	if entries[0].DisplayName != "Bob" || entries[0].Points != 100 {
		t.Fatalf("expected Bob leading with 100, got %+v", entries)
	}
	if entries[1].DisplayName != "Alice" || entries[1].Points != -100 {
		t.Fatalf("expected Alice at -100, got %+v", entries)
	}

	sender.mu.Lock()
	defer sender.mu.Unlock()
	finals := 0
	for _, b := range sender.broadcasts {
		if strings.Contains(b, "GAME OVER - FINAL SCORES") {
			finals++
		}
	}
	if finals != 1 {
		t.Fatalf("final scores broadcast %d times", finals)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "jeopardy", "POSTGRES_PASSWORD": "jeopardypass", "POSTGRES_DB": "jeopardydb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://jeopardy:jeopardypass@%s:%s/jeopardydb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func seedQuestions(t *testing.T, ctx context.Context, dsn string) {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	if _, err := db.ExecContext(ctx,
		`INSERT INTO questions (text, answers, points) VALUES (?, ?::jsonb, ?)`,
		"What port does SSH use by default?", `["22", "twenty-two"]`, 100,
	); err != nil {
		t.Fatalf("insert question: %v", err)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
