// Command ledger runs the Wallet Ledger service: it owns wallet balances
// and ledger entries, performs idempotent debit/credit/refund, and runs
// the dead-letter admin surface (spec.md §2, §4.2, §4.6).
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"saga-engine/internal/ledger/app"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	container, err := app.New(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ledger: failed to initialize: %v\n", err)
		os.Exit(1)
	}

	if err := container.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "ledger: exited with error: %v\n", err)
		os.Exit(1)
	}
}
