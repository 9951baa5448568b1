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

	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	"github.com/adforge-ai/adforge-agent/pkg/agent"
	"github.com/adforge-ai/adforge-agent/pkg/campaign"
	"github.com/adforge-ai/adforge-agent/pkg/chain"
	"github.com/adforge-ai/adforge-agent/pkg/config"
	"github.com/adforge-ai/adforge-agent/pkg/imagegen"
	"github.com/adforge-ai/adforge-agent/pkg/network"
	"github.com/adforge-ai/adforge-agent/pkg/session"
	"github.com/adforge-ai/adforge-agent/pkg/shell"
	"github.com/adforge-ai/adforge-agent/pkg/storage"
	"github.com/adforge-ai/adforge-agent/pkg/tools"
	"github.com/adforge-ai/adforge-agent/pkg/types"
	"github.com/adforge-ai/adforge-agent/pkg/version"
	"github.com/adforge-ai/adforge-agent/pkg/wallet"
)

func main() {
	// Load environment variables from .env file
	godotenv.Load()

	log.Printf("🚀 %s", version.GetFullVersionString())

	cfg, err := config.Load(os.Getenv)
	if err != nil {
		var missing *config.MissingError
		if errors.As(err, &missing) {
			for _, name := range missing.Vars {
				log.Printf("❌ Missing required environment variable: %s", name)
			}
		} else {
			log.Printf("❌ %v", err)
		}
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Fatalf("❌ %v", err)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	store := wallet.NewStore(cfg.WalletDataFile)
	w, created, err := wallet.LoadOrCreate(store)
	if err != nil {
		return err
	}
	if created {
		log.Printf("🔐 Created a new wallet %s (saved to %s)", w.Address(), store.GetFilePath())
	} else {
		log.Printf("🔐 Reloaded wallet %s from %s", w.Address(), store.GetFilePath())
	}

	net, err := chain.LookupNetwork(cfg.NetworkID)
	if err != nil {
		return err
	}
	log.Printf("🌐 Publishing on %s (chain %d)", net.ID, net.ChainID)

	caller, err := chain.NewClient(ctx, net, w.Key(), cfg.WalletAPIKeyName, cfg.WalletAPIKeySecret)
	if err != nil {
		return err
	}
	defer caller.Close()

	camp := campaign.Default()
	if cfg.CampaignFile != "" {
		camp, err = campaign.Load(cfg.CampaignFile)
		if err != nil {
			return err
		}
		log.Printf("📋 Loaded campaign %q from %s", camp.Name, cfg.CampaignFile)
	}

	uploader, err := storage.New(ctx, cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		return fmt.Errorf("failed to set up image storage: %w", err)
	}

	journal := chain.NewJournal()
	if pruned, err := journal.CleanupOld(30 * 24 * time.Hour); err != nil {
		log.Printf("⚠️ Publish journal cleanup failed: %v", err)
	} else if pruned > 0 {
		log.Printf("🧹 Pruned %d old publish journal records", pruned)
	}

	llm := openai.NewClient(cfg.OpenAIKey)
	registry := tools.BuildRegistry(camp, net, chain.NewJournalingCaller(caller, journal), uploader, imagegen.New(llm), caller)

	rt, err := buildRuntime(ctx, cfg, camp, w, llm, registry)
	if err != nil {
		return err
	}
	defer rt.Close()

	mode, err := shell.PromptMode()
	if err != nil {
		return err
	}

	sh := shell.New(rt, os.Stdout)
	switch mode {
	case shell.ModeAuto:
		return sh.RunAuto(ctx, camp.AutoInstruction, shell.DefaultAutoInterval)
	default:
		return sh.RunChat(ctx)
	}
}

// buildRuntime picks the hosted runtime when one is configured, otherwise
// the local tool-calling session.
func buildRuntime(ctx context.Context, cfg *config.Config, camp campaign.Campaign, w *wallet.Wallet, llm *openai.Client, registry *tools.Registry) (types.Runtime, error) {
	if cfg.RuntimeWSURL != "" {
		log.Printf("📡 Using hosted runtime at %s", cfg.RuntimeWSURL)
		return network.NewClient(cfg.RuntimeWSURL, w)
	}

	return agent.NewSession(&agent.Config{
		LLM:          llm,
		SystemPrompt: camp.SystemPrompt,
		Registry:     registry,
		History:      buildHistory(ctx, cfg, camp.SessionID),
		SessionID:    camp.SessionID,
	})
}

// buildHistory prefers Redis when configured so the conversation survives
// restarts; a Redis failure downgrades to in-memory with a warning rather
// than blocking startup.
func buildHistory(ctx context.Context, cfg *config.Config, sessionID string) session.History {
	if cfg.RedisAddr == "" {
		return session.NewMemoryHistory()
	}

	hist, err := session.NewRedisHistory(ctx, &session.RedisConfig{
		Address:   cfg.RedisAddr,
		Password:  cfg.RedisPassword,
		DB:        cfg.RedisDB,
		SessionID: sessionID,
	})
	if err != nil {
		log.Printf("⚠️ Redis unavailable, falling back to in-memory history: %v", err)
		return session.NewMemoryHistory()
	}
	log.Printf("💾 Session history persisted in Redis (%s)", cfg.RedisAddr)
	return hist
}
