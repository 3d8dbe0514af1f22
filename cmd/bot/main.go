package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/The-Visitors/discord-bot/internal/config"
	"github.com/The-Visitors/discord-bot/internal/db"
	"github.com/The-Visitors/discord-bot/internal/ens"
	"github.com/The-Visitors/discord-bot/internal/eth"
	"github.com/The-Visitors/discord-bot/internal/marketplace"
	"github.com/The-Visitors/discord-bot/internal/notify"
	"github.com/The-Visitors/discord-bot/internal/relay"
	"go.uber.org/zap"
)

var Version = "dev" // Overridden by release build script

func init() {
	logger := zap.Must(zap.NewProduction())
	if config.Get().LogZapMode == "development" {
		logger = zap.Must(zap.NewDevelopment())
	}
	zap.ReplaceGlobals(logger)
}

func main() {
	zap.L().Info("Starting The-Visitors/discord-bot...",
		zap.String("Version", Version))

	cfg := config.Get()

	// Main context: canceled when we want to stop normal operation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	badgerPath := cfg.BadgerPath
	if badgerPath == "" {
		badgerPath = "./db/badger/relay"
	}
	badgerDB, err := db.OpenBadger(badgerPath)
	if err != nil {
		zap.L().Fatal("Failed to open BadgerDB", zap.Error(err))
	}

	sqlitePath := cfg.SqlitePath
	if sqlitePath == "" {
		sqlitePath = "./db/sqlite/relay"
	}
	sqlite, err := db.OpenSqlite(sqlitePath)
	if err != nil {
		zap.L().Fatal("Failed to open SQLite", zap.Error(err))
	}

	ethClient, err := eth.CreateEthClient(cfg.EthereumNodeUrl)
	if err != nil {
		zap.L().Fatal("Failed to create Ethereum client", zap.Error(err))
	}

	ensNodeUrl := cfg.EnsNodeUrl
	if ensNodeUrl == "" {
		ensNodeUrl = cfg.EthereumNodeUrl
	}
	ensClient, err := eth.CreateEthClient(ensNodeUrl)
	if err != nil {
		zap.L().Fatal("Failed to create ENS client", zap.Error(err))
	}

	collection := eth.NewCollection(ethClient, cfg.ContractAddress)
	if name, err := collection.Name(ctx); err == nil {
		supply := "unknown"
		if total, err := collection.TotalSupply(ctx); err == nil {
			supply = total.String()
		}
		zap.L().Info("Watching collection",
			zap.String("name", name),
			zap.String("totalSupply", supply),
		)
	}

	notifier, err := notify.NewDiscordNotifier(cfg.DiscordToken)
	if err != nil {
		zap.L().Fatal("Failed to connect to Discord", zap.Error(err))
	}

	feed := marketplace.NewClient(cfg.OpenseaBaseURL, cfg.OpenseaAPIKey, cfg.CollectionSlug)

	contracts := []string{cfg.ContractAddress}
	if cfg.CageContractAddress != "" {
		contracts = append(contracts, cfg.CageContractAddress)
	}

	bot := relay.New(
		relay.Options{
			Contracts: contracts,
			Author: notify.Author{
				Name:      cfg.AuthorName,
				Thumbnail: cfg.AuthorThumbnail,
				URL:       cfg.AuthorURL,
			},
			Channels: relay.Channels{
				Sale:    cfg.SaleChannelID,
				Mint:    cfg.MintChannelID,
				Burn:    cfg.BurnChannelID,
				Listing: cfg.ListingChannelID,
				Cage:    cfg.CageChannelID,
			},
			Denylist:            splitDenylist(cfg.MakerDenylist),
			ListingPollInterval: secondsOrZero(cfg.ListingPollIntervalSeconds),
			CorrelatorPolicy: relay.CorrelatorPolicy{
				InitialDelay: secondsOrZero(cfg.CorrelationInitialDelaySeconds),
				BackoffBase:  millisOrZero(cfg.CorrelationBackoffBaseMs),
				MaxAttempts:  int(cfg.CorrelationMaxAttempts),
			},
			MetadataRetryDelay:  millisOrZero(cfg.MetadataRetryDelayMs),
			MetadataMaxAttempts: int(cfg.MetadataMaxAttempts),
		},
		eth.NewTransfersWatcher(ctx, ethClient),
		collection,
		feed,
		ens.NewResolver(ensClient),
		notifier,
		notify.NewLedger(badgerDB),
		notify.NewHistory(sqlite),
		relay.NewRealClock(),
	)
	bot.Start(ctx)

	// Catch up to two signals: first for graceful, second to force
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	doneCh := make(chan struct{})

	go func() {
		<-sigCh
		zap.L().Info("Received shutdown signal, initiating graceful shutdown...")

		// 1. Cancel main context, telling background tasks to stop
		cancel()

		// 2. Close delivery and chain clients
		if err := notifier.Close(); err != nil {
			zap.L().Warn("Error closing Discord session", zap.Error(err))
		}
		ethClient.Close()
		ensClient.Close()

		// 3. Close stores
		if err := badgerDB.Close(); err != nil {
			zap.L().Warn("Error closing BadgerDB", zap.Error(err))
		}
		if err := sqlite.Close(); err != nil {
			zap.L().Warn("Error closing SQLite", zap.Error(err))
		}

		// 4. Signal that cleanup is done
		close(doneCh)

		// If a second signal arrives, force an immediate exit
		<-sigCh
		zap.L().Error("Received second signal, forcing shutdown")
		os.Exit(1)
	}()

	// Wait for either normal context cancellation or graceful shutdown completion
	select {
	case <-ctx.Done():
	case <-doneCh:
	}

	zap.L().Info("Shutdown complete")
	_ = zap.L().Sync()
}

func splitDenylist(raw string) []string {
	if raw == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

func secondsOrZero(v uint64) time.Duration {
	return time.Duration(v) * time.Second
}

func millisOrZero(v uint64) time.Duration {
	return time.Duration(v) * time.Millisecond
}
