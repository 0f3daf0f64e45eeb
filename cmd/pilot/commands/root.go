package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/tradepilot/pkg/config"
	"github.com/wonny/tradepilot/pkg/logger"
)

var (
	// Global flags
	env     string
	verbose bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pilot",
	Short: "TradePilot - 지표 컨플루언스 분석 및 가이드 플로우",
	Long: `TradePilot Unified CLI

지표 조합의 컨플루언스 점수를 계산하고,
분석 워크스페이스를 단계별로 구성하는 가이드 플로우를 실행합니다.

Usage:
  go run ./cmd/pilot [command]

Examples:
  go run ./cmd/pilot analyze SMA RSI Volume
  go run ./cmd/pilot combos --strategy day-trading
  go run ./cmd/pilot flow run --mode manual
  go run ./cmd/pilot api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig reads the environment and applies global flag overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if env != "" {
		cfg.Env = env
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// cliLogger keeps one-shot commands quiet unless --verbose is set
func cliLogger(cfg *config.Config) *logger.Logger {
	if !verbose {
		cfg.LogLevel = "warn"
	}
	return logger.New(cfg)
}
