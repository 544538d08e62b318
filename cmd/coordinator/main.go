// Command coordinator runs the Transaction Coordinator service: it owns
// saga state, exposes the transfer-initiation API, and reacts to wallet
// events published by the Ledger (spec.md §2, §4).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"saga-engine/internal/coordinator/app"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	container, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "coordinator: failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := container.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "coordinator: exited with error: %v\n", err)
		os.Exit(1)
	}
}
