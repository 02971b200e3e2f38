package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/app"
	"github.com/Freeeeeet/slot_swap/internal/auth"
	"github.com/Freeeeeet/slot_swap/internal/config"
	"github.com/Freeeeeet/slot_swap/internal/controller"
	"github.com/Freeeeeet/slot_swap/internal/controller/rest"
	"github.com/Freeeeeet/slot_swap/internal/repository"
	"github.com/Freeeeeet/slot_swap/internal/repository/memory"
	"github.com/Freeeeeet/slot_swap/internal/service"
	"github.com/go-telegram/bot"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// newBot подменяется в тестах
var newBot = func(token string) (*bot.Bot, error) {
	return bot.New(token)
}

func main() {
	cliApp := &cli.App{
		Name:  "slot_swap",
		Usage: "Slot swap service: HTTP API and Telegram bot",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			migrateStatusCommand(),
		},
	}

	if err := cliApp.Run(os.Args); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

// setup читает конфиг и создаёт логгер
func setup() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := app.NewLogger(cfg.Environment, cfg.LogLevel)
	if err != nil {
		return nil, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, logger, nil
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and, if TELEGRAM_TOKEN is set, the Telegram bot",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Usage: "HTTP listen address, overrides HTTP_ADDR"},
		},
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if addr := c.String("addr"); addr != "" {
				cfg.HTTPAddr = addr
			}

			ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			return serve(ctx, cfg, logger)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	logger.Info("Starting slot swap service",
		zap.String("environment", cfg.Environment),
		zap.String("store", cfg.Store),
		zap.String("http_addr", cfg.HTTPAddr),
		zap.String("timezone", cfg.Timezone))

	store, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	users := service.NewUserService(store, logger)
	slots := service.NewSlotService(store, logger)
	swaps := service.NewSwapService(store, logger)
	query := service.NewQueryService(store, logger)

	server := rest.NewServer(rest.Deps{
		Users:  users,
		Slots:  slots,
		Swaps:  swaps,
		Query:  query,
		Tokens: auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL),
		Logger: logger,
	})

	// Бот создаём до запуска HTTP: после старта сервера ранний return его не остановит
	var botController *controller.BotController
	if cfg.TelegramToken != "" {
		botInstance, err := newBot(cfg.TelegramToken)
		if err != nil {
			return fmt.Errorf("create telegram bot: %w", err)
		}

		botController = controller.NewBotController(botInstance, users, slots, swaps, query, cfg.Location(), logger)
		if err := botController.RegisterHandlers(ctx); err != nil {
			// Меню команд не критично для работы бота
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
	} else {
		logger.Info("TELEGRAM_TOKEN is not set, bot is disabled")
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		return server.Start(cfg.HTTPAddr)
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if botController != nil {
		g.Go(func() error {
			return botController.Start(gctx)
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	logger.Info("Service stopped")
	return nil
}

// openStore выбирает хранилище по STORE и применяет миграции для Postgres
func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Store, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("Using in-memory store, data will be lost on restart")
		return memory.New(), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("ping database: %w", err)
	}
	logger.Info("Connected to database")

	if cfg.AutoMigrate {
		if err := withMigrator(ctx, pool, logger, func(mg *app.Migrator) error {
			return mg.Run(ctx)
		}); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	return repository.NewPostgres(pool), pool.Close, nil
}

func withMigrator(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger, fn func(mg *app.Migrator) error) error {
	mg, err := app.NewMigrator(pool, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := mg.Close(); err != nil {
			logger.Warn("Failed to close migrator", zap.Error(err))
		}
	}()
	return fn(mg)
}

// migrationCommand общий каркас команд, которым нужен только пул
func migrationCommand(name, usage string, fn func(ctx context.Context, mg *app.Migrator) error) *cli.Command {
	return &cli.Command{
		Name:  name,
		Usage: usage,
		Action: func(c *cli.Context) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Store != config.StorePostgres {
				return fmt.Errorf("%s requires STORE=%s", name, config.StorePostgres)
			}

			pool, err := pgxpool.New(c.Context, cfg.GetDBDSN())
			if err != nil {
				return fmt.Errorf("create pool: %w", err)
			}
			defer pool.Close()

			return withMigrator(c.Context, pool, logger, func(mg *app.Migrator) error {
				return fn(c.Context, mg)
			})
		},
	}
}

func migrateCommand() *cli.Command {
	return migrationCommand("migrate", "Apply pending database migrations", func(ctx context.Context, mg *app.Migrator) error {
		return mg.Run(ctx)
	})
}

func migrateStatusCommand() *cli.Command {
	return migrationCommand("migrate-status", "Print database migration status", func(ctx context.Context, mg *app.Migrator) error {
		return mg.Status(ctx)
	})
}
