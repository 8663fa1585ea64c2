package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"eventfeed/internal/config"
	"eventfeed/internal/infrastructure/postgres"

	"github.com/jackc/pgx/v5"
)

// Schema provisioning is an idempotent setup step outside the feed core:
// run `dbtool -init` once before starting any binary.
const schema = `
CREATE TABLE IF NOT EXISTS events (
	id          BIGSERIAL PRIMARY KEY,
	object_type TEXT NOT NULL,
	event_type  TEXT NOT NULL,
	payload     JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS consumers (
	name       TEXT PRIMARY KEY,
	checkpoint BIGINT NOT NULL DEFAULT 0,
	topics     TEXT[] NOT NULL DEFAULT '{all}',
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS orders (
	id           TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	status       TEXT NOT NULL,
	total_amount NUMERIC NOT NULL DEFAULT 0,
	currency     TEXT NOT NULL DEFAULT 'USD',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
`

func main() {
	initSchema := flag.Bool("init", false, "create tables if they do not exist")
	flag.Parse()

	cfg, err := config.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	conn, err := pgx.Connect(ctx, postgres.Config{
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		DBName:   cfg.Postgres.DBName,
	}.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	if *initSchema {
		if _, err := conn.Exec(ctx, schema); err != nil {
			fmt.Fprintf(os.Stderr, "schema init failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("schema ready")
	}

	fmt.Println("--- Events ---")
	var eventCount, lowestID, highestID *int64
	err = conn.QueryRow(ctx, "SELECT COUNT(*), MIN(id), MAX(id) FROM events").
		Scan(&eventCount, &lowestID, &highestID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "count events: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("count: %s | lowest id: %s | highest id: %s\n",
		formatCount(eventCount), formatCount(lowestID), formatCount(highestID))

	fmt.Println("\n--- Consumers ---")
	rows, err := conn.Query(ctx, "SELECT name, checkpoint, topics, updated_at FROM consumers ORDER BY name")
	if err != nil {
		fmt.Fprintf(os.Stderr, "list consumers: %v\n", err)
		os.Exit(1)
	}
	defer rows.Close()

	for rows.Next() {
		var name string
		var checkpoint int64
		var topics []string
		var updatedAt interface{}
		if err := rows.Scan(&name, &checkpoint, &topics, &updatedAt); err != nil {
			fmt.Fprintf(os.Stderr, "scan consumer: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("name: %s | checkpoint: %d | topics: %v | updated: %v\n",
			name, checkpoint, topics, updatedAt)
	}

	var watermark *int64
	if err := conn.QueryRow(ctx, "SELECT MIN(checkpoint) FROM consumers").Scan(&watermark); err == nil {
		if watermark == nil {
			fmt.Println("\nwatermark: undefined (no consumers registered, truncation disabled)")
		} else {
			fmt.Printf("\nwatermark: %d\n", *watermark)
		}
	}
}

func formatCount(v *int64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}
