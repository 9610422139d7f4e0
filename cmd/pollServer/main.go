package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ballotproof/ballotproof-go/pkg/config"
	"github.com/ballotproof/ballotproof-go/pkg/logger"
	"github.com/ballotproof/ballotproof-go/pkg/poll"
	"github.com/ballotproof/ballotproof-go/pkg/store"
	badgerstore "github.com/ballotproof/ballotproof-go/pkg/store/badger"
	"github.com/ballotproof/ballotproof-go/pkg/store/memory"
	redisstore "github.com/ballotproof/ballotproof-go/pkg/store/redis"
)

func main() {
	app := &cli.App{
		Name:  "poll-server",
		Usage: "Anonymous commitment voting server",
		Description: `A voting server that stores anonymous, updatable vote commitments
in an append-style hash tree.

This server implements:
- Voter registration via nullifiers (duplicate detection without identity exposure)
- Commitment casting and updating, with a published tree root per mutation
- Inclusion proof generation and stateless proof verification
- Reveal-based finalization and tallying`,
		Version: "1.0.0",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "poll-id",
				Usage:   "Poll identifier (generated if omitted)",
				EnvVars: []string{config.EnvPollID},
			},
			&cli.StringFlag{
				Name:     "question",
				Aliases:  []string{"q"},
				Usage:    "The poll question",
				EnvVars:  []string{config.EnvPollQuestion},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "choices",
				Usage:   "Comma separated closed choice set (empty accepts any choice)",
				EnvVars: []string{config.EnvPollChoices},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   8000,
				Usage:   "HTTP server port",
				EnvVars: []string{config.EnvPollPort},
			},
			&cli.StringFlag{
				Name:    "store",
				Value:   string(config.StoreTypeMemory),
				Usage:   fmt.Sprintf("Commitment store backend: %s", config.SupportedStoreTypesString()),
				EnvVars: []string{config.EnvPollStoreType},
			},
			&cli.StringFlag{
				Name:    "data-path",
				Usage:   "Badger data directory (badger store only)",
				EnvVars: []string{config.EnvPollDataPath},
			},
			&cli.StringFlag{
				Name:    "redis-address",
				Usage:   "Redis server address host:port (redis store only)",
				EnvVars: []string{config.EnvPollRedisAddr},
			},
			&cli.StringFlag{
				Name:    "redis-password",
				Usage:   "Redis password (redis store only)",
				EnvVars: []string{config.EnvPollRedisPass},
			},
			&cli.IntFlag{
				Name:    "redis-db",
				Usage:   "Redis database number 0-15 (redis store only)",
				EnvVars: []string{config.EnvPollRedisDB},
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Enable debug logging",
				EnvVars: []string{config.EnvPollVerbose},
			},
		},
		Action: runPollServer,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func runPollServer(c *cli.Context) error {
	// Create logger
	loggerConfig := &logger.LoggerConfig{
		Debug: c.Bool("verbose"),
	}
	l, err := logger.NewLogger(loggerConfig)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = l.Sync() }()

	// Parse configuration from flags/environment
	pollConfig := &config.PollServerConfig{
		PollID:        c.String("poll-id"),
		Question:      c.String("question"),
		Choices:       config.ParseChoices(c.String("choices")),
		Port:          c.Int("port"),
		StoreType:     config.StoreType(c.String("store")),
		DataPath:      c.String("data-path"),
		RedisAddress:  c.String("redis-address"),
		RedisPassword: c.String("redis-password"),
		RedisDB:       c.Int("redis-db"),
		Verbose:       c.Bool("verbose"),
	}

	// Validate configuration
	if err := pollConfig.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// Create the commitment store
	commitmentStore, err := buildStore(pollConfig, l)
	if err != nil {
		return fmt.Errorf("failed to create commitment store: %w", err)
	}
	defer func() { _ = commitmentStore.Close() }()

	// Create the poll, seeding the tree from persisted history
	p, err := poll.New(poll.Config{
		ID:       pollConfig.PollID,
		Question: pollConfig.Question,
		Choices:  pollConfig.Choices,
		Store:    commitmentStore,
		Logger:   l,
	})
	if err != nil {
		return fmt.Errorf("failed to create poll: %w", err)
	}

	l.Sugar().Infow("Poll server starting",
		"poll_id", p.ID, "question", p.Question,
		"store", pollConfig.StoreType, "port", pollConfig.Port)

	server := poll.NewServer(p, pollConfig.Port)
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	l.Sugar().Infow("Shutting down", "signal", sig.String())
	return server.Stop()
}

// buildStore creates the configured store backend
func buildStore(cfg *config.PollServerConfig, l *zap.Logger) (store.ICommitmentStore, error) {
	switch cfg.StoreType {
	case config.StoreTypeMemory:
		return memory.NewMemoryStore(), nil
	case config.StoreTypeBadger:
		return badgerstore.NewBadgerStore(cfg.DataPath, l)
	case config.StoreTypeRedis:
		return redisstore.NewRedisStore(&redisstore.RedisConfig{
			Address:  cfg.RedisAddress,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, l)
	default:
		return nil, fmt.Errorf("unsupported store type: %s", cfg.StoreType)
	}
}
