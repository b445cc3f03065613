package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/NordCoder/Gatehouse/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
)

func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL is empty")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	p, err := goose.NewProvider(goose.DialectPostgres, db, migrations.Postgres())
	if err != nil {
		log.Fatalf("goose provider: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	results, err := p.Up(ctx)
	if err != nil {
		log.Fatalf("migrate up: %v", err)
	}
	for _, r := range results {
		log.Printf("applied %s in %s", r.Source.Path, r.Duration)
	}
	log.Println("migrations: up OK")
}
