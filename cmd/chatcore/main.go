package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/lumachat/chatcore/internal/cli"
	"github.com/lumachat/chatcore/internal/config"
	"github.com/lumachat/chatcore/internal/gateway"
	"github.com/lumachat/chatcore/internal/logger"
	"github.com/lumachat/chatcore/internal/repository"
	"github.com/lumachat/chatcore/internal/rest"
	"github.com/lumachat/chatcore/internal/service"
	"github.com/lumachat/chatcore/internal/state"
)

// RunMode defines how the application runs
type RunMode string

const (
	RunModeInteractive RunMode = "interactive"
	RunModeHeadless    RunMode = "headless"
)

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	db, err := initDatabase(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	sessions := repository.NewSessionRepository(db)
	store := state.NewStore(logger.Module("state"))
	gw := gateway.New(cfg.SocketURL, store, logger.Module("gateway"))

	client := rest.NewClient(cfg.APIBaseURL, store, logger.Module("rest"))
	authSvc := rest.NewAuthService(client, store, sessions, logger.Module("auth"))
	chatSvc := rest.NewChatService(client, store, logger.Module("chat"))

	orch := service.NewOrchestrator(store, gw, chatSvc, logger.Module("orchestrator"),
		service.WithTeardownHook(func() {
			if err := sessions.Clear(context.Background()); err != nil {
				mainLog := logger.Module("main")
				mainLog.Warn().Err(err).Msg("failed to drop session snapshot")
			}
		}),
	)

	handler := cli.NewCommandHandler(store, authSvc, chatSvc, orch, gw)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	// Silent session restore; a missing or rejected snapshot means the user
	// logs in interactively.
	mainLog := logger.Module("main")
	if user, err := authSvc.RestoreSession(ctx); err != nil {
		mainLog.Warn().Err(err).Msg("session restore failed")
	} else if user != nil {
		mainLog.Info().Str("username", user.Username).Msg("session restored")
		orch.Start(ctx)
	}

	switch RunMode(cfg.Mode) {
	case RunModeHeadless:
		err = cli.NewHeadlessCLI(handler, store, orch).Run(ctx)
	default:
		err = cli.NewInteractiveCLI(handler, store, orch).Run(ctx)
	}
	if err != nil && err != context.Canceled {
		log.Printf("CLI error: %v", err)
	}

	orch.Shutdown()
}

func initDatabase(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	db.Exec("PRAGMA journal_mode=WAL")

	if err := db.AutoMigrate(&repository.SessionModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
