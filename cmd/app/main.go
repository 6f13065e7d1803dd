package main

import (
	"bufio"
	"context"
	"log"
	"os"

	"clic-tools/internal/adapters/cli"
	"clic-tools/internal/adapters/repl"
	"clic-tools/internal/app"
	"clic-tools/internal/core"
	"clic-tools/internal/db"

	"github.com/joho/godotenv"
)

// With arguments the binary runs a one-shot admin command; without, it
// starts the interactive warehouse terminal.
func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v", err)
	}
	defer pool.Close()

	locations := core.NewLocationService(pool)
	locks := core.NewLockService(pool)
	sessions := core.NewSessionService(pool)
	products := core.NewProductService(pool)
	users := core.NewUserService(pool)
	ruleEngine := core.NewRuleEngine(pool)
	wizard := core.NewWizardService(pool, locations, locks, sessions, products)
	structure := core.NewStructureService(pool, ruleEngine)

	svc := app.NewAppService(pool, locations, locks, sessions, products, wizard, structure, users, ruleEngine)

	if len(os.Args) > 1 {
		cli.Run(ctx, svc, os.Args[1:])
		return
	}
	repl.Run(ctx, svc, bufio.NewReader(os.Stdin))
}
