package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/chainguard-dev/clog"
	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool
	rootCmd    = &cobra.Command{
		Use:   "litmus",
		Short: "Litmus - side-by-side LLM benchmarking with an LLM judge",
		Long: `Litmus fans one prompt out to several models over the OpenRouter API,
streams their answers side by side, persists every run, and scores the
results with a judge model.`,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func main() {
	level := slog.LevelInfo
	cobra.OnInitialize(func() {
		if verbose {
			level = slog.LevelDebug
		}
	})

	logger := clog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: &levelVar{&level}}))
	ctx := clog.WithLogger(context.Background(), logger)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// levelVar defers level resolution until after flag parsing.
type levelVar struct{ level *slog.Level }

func (l *levelVar) Level() slog.Level { return *l.level }
