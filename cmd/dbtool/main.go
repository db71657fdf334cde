package main

import (
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"

	_ "github.com/jackc/pgx/v5/stdlib"

	"delivery-tracking-service/internal/adapters/repositories"
	"delivery-tracking-service/internal/config"
	"delivery-tracking-service/internal/platform/db"
)

// dbtool prepares a Postgres instance: it applies the schema and loads the
// driver/order seed. Local SQLite runs do not need it; the server bootstraps
// its own file on startup.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found (using environment variables)")
	}

	databaseURL := os.Getenv("DATABASE_URL")
	if strings.TrimSpace(databaseURL) == "" {
		log.Fatal("DATABASE_URL is required")
	}

	database, err := db.OpenPostgres(databaseURL)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close()

	log.Println("Initializing database schema...")
	if err := repositories.InitPostgresSchema(database); err != nil {
		log.Fatalf("schema initialization failed: %v", err)
	}
	log.Println("Schema ready.")

	seedPath := config.Get("SEED_PATH", "data/seeds/fleet.json")
	log.Println("Seeding database...")
	if err := repositories.SeedFromJSON(database, seedPath, "postgres"); err != nil {
		log.Fatalf("seeding failed: %v", err)
	}
	log.Println("Seeding complete.")
}
