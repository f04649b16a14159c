package main

import (
	"fmt"
	"log"
	"math/big"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/urfave/cli/v2"
	_ "go.uber.org/automaxprocs"

	"github.com/core-coin/walletx/internal/blockchain"
	"github.com/core-coin/walletx/internal/config"
	"github.com/core-coin/walletx/internal/http_api"
	"github.com/core-coin/walletx/internal/models"
	"github.com/core-coin/walletx/internal/notificator"
	"github.com/core-coin/walletx/internal/repository"
	"github.com/core-coin/walletx/internal/token"
	"github.com/core-coin/walletx/internal/walletx"
	"github.com/core-coin/walletx/internal/wellknown"
	"github.com/core-coin/walletx/pkg/logger"
)

func main() {
	app := &cli.App{
		Name:  "walletx",
		Usage: "WalletX is a shared organization wallet ledger",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "database-driver", Usage: "Database driver (postgres or sqlite)"},
			&cli.StringFlag{Name: "sqlite-path", Usage: "SQLite database file"},
			&cli.StringFlag{Name: "postgres-user", Aliases: []string{"u"}, Usage: "Postgres user"},
			&cli.StringFlag{Name: "postgres-password", Aliases: []string{"p"}, Usage: "Postgres password"},
			&cli.StringFlag{Name: "postgres-host", Aliases: []string{"t"}, Usage: "Postgres host"},
			&cli.IntFlag{Name: "postgres-port", Aliases: []string{"P"}, Usage: "Postgres port"},
			&cli.StringFlag{Name: "postgres-db", Aliases: []string{"d"}, Usage: "Postgres database name"},
			&cli.StringFlag{Name: "ledger-address", Aliases: []string{"l"}, Usage: "Custody address holding pooled funds"},
			&cli.StringFlag{Name: "funding-token-address", Aliases: []string{"f"}, Usage: "Funding token contract address"},
			&cli.StringFlag{Name: "blockchain-service-url", Aliases: []string{"b"}, Usage: "Blockchain service URL"},
			&cli.StringFlag{Name: "network-id", Aliases: []string{"n"}, Usage: "Network id (1 mainnet, 3 devin)"},
			&cli.IntFlag{Name: "api-port", Usage: "HTTP API port"},
			&cli.DurationFlag{Name: "reconcile-interval", Usage: "Custody reconciliation interval"},
			&cli.DurationFlag{Name: "lease-ttl", Usage: "Writer lease time to live"},
			&cli.BoolFlag{Name: "development", Aliases: []string{"D"}, Usage: "Development mode"},
		},
		Action: func(c *cli.Context) error {
			return run(c)
		},
	}

	err := app.Run(os.Args)
	if err != nil {
		log.Fatal(err)
	}
}

func run(c *cli.Context) error {
	// Load configuration from environment variables
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %v", err)
	}

	// Override with flags if set
	if c.IsSet("database-driver") {
		cfg.DatabaseDriver = c.String("database-driver")
	}
	if c.IsSet("sqlite-path") {
		cfg.SQLitePath = c.String("sqlite-path")
	}
	if c.IsSet("postgres-user") {
		cfg.PostgresUser = c.String("postgres-user")
	}
	if c.IsSet("postgres-password") {
		cfg.PostgresPassword = c.String("postgres-password")
	}
	if c.IsSet("postgres-host") {
		cfg.PostgresHost = c.String("postgres-host")
	}
	if c.IsSet("postgres-port") {
		cfg.PostgresPort = c.Int("postgres-port")
	}
	if c.IsSet("postgres-db") {
		cfg.PostgresDB = c.String("postgres-db")
	}
	if c.IsSet("ledger-address") {
		cfg.LedgerAddress = c.String("ledger-address")
	}
	if c.IsSet("funding-token-address") {
		cfg.FundingTokenAddress = c.String("funding-token-address")
	}
	if c.IsSet("blockchain-service-url") {
		cfg.BlockchainServiceURL = c.String("blockchain-service-url")
	}
	if c.IsSet("network-id") {
		networkID, ok := new(big.Int).SetString(c.String("network-id"), 10)
		if ok {
			cfg.NetworkID = networkID
		}
	}
	if c.IsSet("api-port") {
		cfg.APIPort = c.Int("api-port")
	}
	if c.IsSet("reconcile-interval") {
		cfg.ReconcileInterval = c.Duration("reconcile-interval")
	}
	if c.IsSet("lease-ttl") {
		cfg.LeaseTTL = c.Duration("lease-ttl")
	}
	if c.IsSet("development") {
		cfg.Development = c.Bool("development")
	}
	if err := cfg.Normalize(); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	// Initialize logger
	log, err := logger.NewLogger(cfg.Development)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %v", err)
	}
	defer log.Sync()

	// Initialize database
	db, err := openDatabase(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize the funding token ledger
	tok := token.NewMemory(log.Named("token"), nil)

	// Initialize blockchain service
	var chain models.BlockchainService
	if cfg.OnChain() {
		gocore := blockchain.NewGocore(cfg.BlockchainServiceURL, cfg.FundingTokenAddress, log.Named("gocore"))
		if err := gocore.Run(); err != nil {
			return fmt.Errorf("failed to start blockchain service: %v", err)
		}
		defer gocore.Close()
		chain = gocore
	}

	// Initialize notificator
	var telegram notificator.Sender
	if cfg.TelegramBotToken != "" {
		tg, err := notificator.NewTelegramNotificator(log.Named("telegram"), cfg.TelegramBotToken)
		if err != nil {
			return fmt.Errorf("failed to start telegram bot: %v", err)
		}
		defer tg.Stop()
		telegram = tg
	}
	var email notificator.Sender
	if cfg.SMTPHost != "" {
		email = notificator.NewEmailNotificator(log.Named("email"), cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPAlternativePort, cfg.SMTPUser, cfg.SMTPPassword, cfg.SMTPSender)
	}
	notifications := notificator.NewNotificator(log.Named("notificator"), telegram, cfg.TelegramChatID, email, cfg.NotifyEmail)

	// Initialize well-known token metadata
	var tokenInfo walletx.TokenInfoProvider
	if cfg.FundingTokenAddress != "" {
		wk := wellknown.NewWellKnownService(log.Named("wellknown"), cfg.WellKnownURL, cfg.GetNetworkName(), cfg.FundingTokenAddress, time.Hour)
		wk.StartPeriodicUpdate()
		defer wk.Stop()
		tokenInfo = wk
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	// Create WalletX instance
	walletxApp := walletx.NewWalletX(db, tok, chain, notifications, tokenInfo, registry, log, cfg)
	if err := walletxApp.Start(); err != nil {
		return fmt.Errorf("failed to start walletx: %v", err)
	}
	defer walletxApp.Stop()

	// Initialize API server
	apiServer := http_api.NewHTTPServer(walletxApp, registry, cfg.APIPort, log.Named("api"))
	go apiServer.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("Received shutdown signal", "signal", sig.String())

	if err := apiServer.Shutdown(); err != nil {
		log.Error("Failed to shut down HTTP server", "error", err)
	}
	return nil
}

func openDatabase(cfg *config.Config, log *logger.Logger) (*repository.DB, error) {
	if cfg.DatabaseDriver == config.DriverSQLite {
		return repository.NewSQLiteDB(cfg.SQLitePath, log)
	}
	return repository.NewPostgresDB(cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDB, cfg.PostgresHost, cfg.PostgresPort, log)
}
