package config_test

import (
	"fmt"

	"github.com/wonny/tradepilot/pkg/config"
)

// Example demonstrates how to use the config package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	fmt.Printf("Server running on port: %s\n", cfg.Port)
	fmt.Printf("Flow mode: %s\n", cfg.Flow.Mode)
	fmt.Printf("Step delay: %s\n", cfg.Flow.StepDelay)
	fmt.Printf("History enabled: %v\n", cfg.Database.Enabled())
}
