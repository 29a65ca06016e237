package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/camuig/quant-relay/internal/app"
	"github.com/camuig/quant-relay/internal/config"
	"github.com/camuig/quant-relay/internal/logger"
	"github.com/camuig/quant-relay/internal/report"
)

var (
	configPath string
	kinds      []string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:           "report",
	Short:         "Print account data once without starting the bot",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "bot-config.json", "path to config file")
	rootCmd.Flags().StringSliceVar(&kinds, "kind", nil, "data type to print, repeatable (default all)")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log to stderr")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	selected := report.Kinds
	if len(kinds) > 0 {
		selected = selected[:0:0]
		for _, k := range kinds {
			kind, ok := report.ParseKind(k)
			if !ok {
				return fmt.Errorf("unknown data type %q", k)
			}
			selected = append(selected, kind)
		}
	}

	store, err := config.NewStore(configPath)
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	log := logger.Nop()
	if verbose {
		log = logger.New(store.Current().LogLevel, logger.WithOutput(os.Stderr))
	}

	a, err := app.New(ctx, store, log)
	if err != nil {
		return err
	}

	cfg := store.Current()
	var failed int
	for _, kind := range selected {
		res := a.Reports().Fetch(ctx, cfg, kind)
		if !res.OK() {
			fmt.Fprintf(os.Stderr, "%s: %v\n", kind, res.Err)
			failed++
			continue
		}
		fmt.Printf("%s\n\n", res.Text)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d data types failed", failed, len(selected))
	}
	return nil
}
