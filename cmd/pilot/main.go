package main

import (
	"os"

	"github.com/wonny/tradepilot/cmd/pilot/commands"
)

// main is the entry point for the TradePilot CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/pilot [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
