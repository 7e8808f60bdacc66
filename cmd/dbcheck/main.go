// Command dbcheck verifies that the configured database is reachable and
// prints what it finds. It exits non-zero on any failure.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	_ = godotenv.Load()

	dsn := flag.String("dsn", os.Getenv("POSTGRES_DSN"), "database connection string")
	timeout := flag.Duration("timeout", 5*time.Second, "connect and query timeout")
	flag.Parse()

	if *dsn == "" {
		log.Fatal("POSTGRES_DSN is not set and -dsn was not given")
	}
	if err := run(*dsn, *timeout); err != nil {
		log.Fatalf("dbcheck: %v", err)
	}
}

func run(dsn string, timeout time.Duration) error {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	fmt.Println("connected")

	var version string
	if err := db.QueryRowContext(ctx, `SHOW server_version`).Scan(&version); err != nil {
		return fmt.Errorf("server version: %w", err)
	}
	fmt.Printf("server version: %s\n", version)

	// the schema may not be migrated yet; that is reported, not fatal
	var table sql.NullString
	if err := db.QueryRowContext(ctx, `SELECT to_regclass('public.products')::text`).Scan(&table); err != nil {
		return fmt.Errorf("lookup products table: %w", err)
	}
	if !table.Valid {
		fmt.Println("products: table missing (run the api once to migrate)")
		return nil
	}

	var products int64
	if err := db.QueryRowContext(ctx, `SELECT count(*) FROM products`).Scan(&products); err != nil {
		return fmt.Errorf("count products: %w", err)
	}
	fmt.Printf("products: %d\n", products)
	return nil
}
