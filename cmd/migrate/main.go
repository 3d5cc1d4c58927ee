package main

import (
	"log"

	"focusvillage/backend/internal/config"
	"focusvillage/backend/internal/store"
)

func main() {
	cfg := config.Load()
	database, err := store.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer database.Close()

	if err := store.RunMigrations(database, cfg.MigrationsDir); err != nil {
		log.Fatalf("run migrations: %v", err)
	}

	log.Println("migrations applied successfully")
}
