package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"quotefeed/internal/app"
	"quotefeed/internal/config"
	"quotefeed/internal/logging"
	"quotefeed/internal/provider"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		asJSON     bool
		batchSize  int
		batchDelay time.Duration
		logLevel   string
	)

	cmd := &cobra.Command{
		Use:   "quotes [SYMBOL...]",
		Short: "Fetch stock quotes",
		Long: `Fetch the latest quote for each symbol from Alpha Vantage.
Symbols that cannot be fetched are shown with placeholder values.
Without arguments the configured watch list is used.
Example: quotes AAPL MSFT --json`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			if cmd.Flags().Changed("batch-size") {
				cfg.Feed.BatchSize = batchSize
			}
			if cmd.Flags().Changed("batch-delay") {
				cfg.Feed.BatchDelayMs = int(batchDelay / time.Millisecond)
			}
			if logLevel != "" {
				cfg.Log.Level = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			symbols := cfg.Feed.Symbols
			if len(args) > 0 {
				symbols = config.SplitSymbols(strings.Join(args, ","))
			}
			if len(symbols) == 0 {
				return fmt.Errorf("no symbols provided")
			}

			log := logging.NewWithOutput(cfg.Log, cmd.ErrOrStderr())
			quotes, err := fetch(cmd.Context(), cfg, log, symbols)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), quotes)
			}
			return renderTable(cmd.OutOrStdout(), quotes)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", os.Getenv("CONFIG_FILE"), "path to config.json (optional)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print quotes as JSON")
	cmd.Flags().IntVar(&batchSize, "batch-size", 5, "symbols fetched concurrently per batch")
	cmd.Flags().DurationVar(&batchDelay, "batch-delay", time.Second, "pause between batches")
	cmd.Flags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")

	return cmd
}

func fetch(ctx context.Context, cfg config.Config, log *logrus.Logger, symbols []string) ([]provider.Quote, error) {
	f, err := app.NewFeed(cfg, log)
	if err != nil {
		return nil, err
	}
	return f.FetchMany(ctx, symbols), nil
}

func writeJSON(w io.Writer, quotes []provider.Quote) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(struct {
		Quotes []provider.Quote `json:"quotes"`
	}{Quotes: quotes})
}
