package database_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wonny/tradepilot/pkg/config"
	"github.com/wonny/tradepilot/pkg/database"
)

// Example demonstrates how to use the database package
func Example() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		return
	}

	db, err := database.New(cfg)
	if errors.Is(err, database.ErrNotConfigured) {
		fmt.Println("Run history disabled")
		return
	}
	if err != nil {
		fmt.Printf("Failed to connect to database: %v\n", err)
		return
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		fmt.Printf("Health check failed: %v\n", err)
		return
	}
	fmt.Printf("Database is healthy: %v (%v)\n", status.Healthy, status.ResponseTime)
}
