package commands

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	verbose    bool
	dataSource string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "screener",
	Short: "Aegis Screener - 미국 주식 스크리닝 파이프라인",
	Long: `Aegis Screener Unified CLI

5단계 파이프라인으로 지수 구성 종목에서 포트폴리오까지.
S1 Universe → S2 Quick Filter → S3 Insider → S4 Strategy → S5 Portfolio

Usage:
  go run ./cmd/screener [command]

Examples:
  go run ./cmd/screener screen --index "S&P 500" --strategies buffett
  go run ./cmd/screener serve
  go run ./cmd/screener schedule start
  go run ./cmd/screener rubrics list`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (LOG_LEVEL=debug)")
	rootCmd.PersistentFlags().StringVar(&dataSource, "data-source", "", "override DATA_SOURCE (fixture|postgres|http)")
}
