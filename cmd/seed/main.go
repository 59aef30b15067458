package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/meetapp/meet-backend/internal/config"
	"github.com/meetapp/meet-backend/internal/db"
)

// Seeds the database with demo users, likes, matches and notifications.
// Destructive: existing rows are wiped first. Development use only.
func main() {
	_ = godotenv.Load()

	cfg := config.New()
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Fatalf("database init failed: %v", err)
	}

	if err := db.SeedDefaultInterests(database); err != nil {
		log.Fatalf("interest seeding failed: %v", err)
	}
	if err := db.SeedTestData(database); err != nil {
		log.Fatalf("test data seeding failed: %v", err)
	}
	log.Println("seed complete")
}
