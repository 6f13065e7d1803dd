package main

import (
	"context"
	"log"
	"net/http"
	"os"

	webAdapter "clic-tools/internal/adapters/web"
	"clic-tools/internal/app"
	"clic-tools/internal/core"
	"clic-tools/internal/db"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
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

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		log.Fatal("JWT_SECRET environment variable not set")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, jwtSecret)

	log.Printf("server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("server: %v", err)
	}
}
