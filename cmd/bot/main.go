package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/camuig/quant-relay/internal/app"
	"github.com/camuig/quant-relay/internal/config"
	"github.com/camuig/quant-relay/internal/logger"
)

var (
	configPath string
	watch      bool
)

var rootCmd = &cobra.Command{
	Use:           "quant-relay",
	Short:         "Telegram bot reporting QuantConnect and Oanda account data",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "bot-config.json", "path to config file")
	rootCmd.Flags().BoolVar(&watch, "watch", false, "reload the config file when it changes")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	store, err := config.NewStore(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	cfg := store.Current()

	var opts []logger.Option
	if cfg.LogFile != "" {
		opts = append(opts, logger.WithFile(cfg.LogFile))
	}
	log := logger.New(cfg.LogLevel, opts...)
	log.Info("starting quant-relay", "config", configPath, "oanda_mode", string(cfg.OandaMode), "watch", watch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-sigCh:
			log.Info("shutdown signal received", "signal", sig.String())
			cancel()
		case <-ctx.Done():
		}
	}()

	a, err := app.New(ctx, store, log)
	if err != nil {
		log.Error("startup failed", "error", err)
		return err
	}

	if err := a.Serve(ctx, watch); err != nil {
		log.Error("bot stopped with error", "error", err)
		return err
	}

	log.Info("quant-relay stopped")
	return nil
}
