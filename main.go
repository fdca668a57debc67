package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"chatwarden/internal/biz/usecase"
	"chatwarden/internal/conf"
	"chatwarden/internal/data"
	"chatwarden/internal/server"
	"chatwarden/internal/service"
	"chatwarden/lark"
	"chatwarden/onebot"
	"chatwarden/oracle"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := conf.LoadFromEnv()
	if err := config.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Platform clients
	var onebotClient *onebot.Client
	if config.OneBot.WSURL != "" {
		onebotClient = onebot.NewClient(config.OneBot.WSURL, config.OneBot.AccessToken)
	}
	var larkClient *lark.Client
	if config.Lark.AppID != "" && config.Lark.AppSecret != "" {
		larkClient = lark.NewClient(config.Lark.AppID, config.Lark.AppSecret)
	}

	oracleClient := oracle.NewClient(
		config.Oracle.APIKey,
		config.Oracle.BaseURL,
		config.Oracle.Model,
		config.Oracle.Timeout,
	)

	repos, err := data.NewRepositories(onebotClient, larkClient, oracleClient, config.Rules, config.Moderation.LedgerDBPath)
	if err != nil {
		log.Fatalf("Failed to create repositories: %v", err)
	}
	defer repos.Ledger.Close()

	bufferUC := usecase.NewBufferUsecase()
	guardUC := usecase.NewGuardrailUsecase(repos.Ledger, usecase.GuardrailConfig{
		Cooldown: config.Moderation.Cooldown,
	})

	mod := service.NewModeratorService(
		bufferUC,
		guardUC,
		repos.Oracle,
		repos.Action,
		repos.Ledger,
		config.Moderation,
		config.Rules.WarningTemplate,
	)

	scheduler := service.NewCheckScheduler(
		mod,
		bufferUC,
		repos.Ledger,
		config.Moderation.CheckInterval,
		config.Moderation.Cooldown,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	scheduler.Start(ctx)
	defer scheduler.Stop()

	errCh := make(chan error, 2)

	if onebotClient != nil {
		srv, err := server.NewOneBotServer(onebotClient, mod)
		if err != nil {
			log.Fatalf("Failed to create OneBot server: %v", err)
		}
		go func() {
			errCh <- srv.Start(ctx)
		}()
		fmt.Println("[Main] OneBot intake started")
	}

	if larkClient != nil {
		srv, err := server.NewLarkServer(larkClient, mod)
		if err != nil {
			log.Fatalf("Failed to create Lark server: %v", err)
		}
		go func() {
			errCh <- srv.Start(ctx)
		}()
		fmt.Println("[Main] Lark intake started")
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	fmt.Println("Starting chatwarden...")

	select {
	case <-sigCh:
		fmt.Println("\nShutting down...")
		cancel()
	case err := <-errCh:
		if err != nil && ctx.Err() == nil {
			log.Fatalf("Server error: %v", err)
		}
	}
}
