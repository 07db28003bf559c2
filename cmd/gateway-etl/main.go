package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gatewayetl/internal/config"
	"gatewayetl/internal/etl"
	"gatewayetl/internal/gateway"
	"gatewayetl/internal/notify"
	"gatewayetl/internal/storage/postgres"
)

func main() {
	root := &cobra.Command{
		Use:          "gateway-etl",
		Short:        "Gateway payment-log ETL",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run one ETL pass over every federation",
		RunE:  runETL,
	}

	runCmd.Flags().String("gateway-addr", "", "gateway HTTP address")
	runCmd.Flags().String("gateway-password", "", "gateway password")
	runCmd.Flags().String("bot-token", "", "Telegram bot token")
	runCmd.Flags().String("chat-id", "", "Telegram chat id")
	runCmd.Flags().String("db-host", "", "Postgres host")
	runCmd.Flags().String("db-user", "", "Postgres user")
	runCmd.Flags().String("db-password", "", "Postgres password")
	runCmd.Flags().String("db-name", "", "Postgres database name")
	runCmd.Flags().Int32("gateway-epoch", -1, "gateway epoch partition key (negative disables partitioning)")
	runCmd.Flags().Duration("summary-window", 24*time.Hour, "payment summary window")
	runCmd.Flags().String("log-level", "info", "log level (debug, info, warn, error)")

	root.AddCommand(runCmd)

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the warehouse DDL",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprint(cmd.OutOrStdout(), postgres.Schema())
		},
	}

	root.AddCommand(schemaCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func runETL(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := postgres.NewStore(ctx, cfg.DatabaseDSN())
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer store.Close()

	gatewayClient := gateway.NewClient(cfg.GatewayAddr, cfg.GatewayPassword)
	notifier := notify.NewTelegram(cfg.BotToken, cfg.ChatID)

	coordinator := etl.NewCoordinator(
		gatewayClient,
		store,
		notifier,
		cfg.Epoch(),
		cfg.SummaryWindow,
		logger,
	)

	logger.Info("etl start",
		zap.String("gateway_addr", cfg.GatewayAddr),
		zap.String("db_host", cfg.DBHost),
		zap.String("db_name", cfg.DBName),
		zap.Int32("gateway_epoch", cfg.GatewayEpoch),
		zap.Duration("summary_window", cfg.SummaryWindow),
	)

	return coordinator.Run(ctx)
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	return cfg.Build()
}
