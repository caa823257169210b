package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"eigenda-sidecar/internal/config"

	_ "github.com/lib/pq"
	flag "github.com/spf13/pflag"
)

func main() {
	f := flag.NewFlagSet("verify-db-connection", flag.ExitOnError)
	configPath := f.String("config", "", "path to config.yaml")
	_ = f.Parse(os.Args[1:])

	fmt.Println("🔍 Verifying database connection and queue state...")
	fmt.Println("============================================================")

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Database.Driver != "postgres" {
		log.Fatalf("Only postgres is supported, config uses %q", cfg.Database.Driver)
	}

	sqlDB, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer sqlDB.Close()

	if err := sqlDB.Ping(); err != nil {
		log.Fatalf("Failed to reach database: %v", err)
	}

	var dbName string
	if err := sqlDB.QueryRow("SELECT current_database()").Scan(&dbName); err != nil {
		log.Fatalf("Failed to get database name: %v", err)
	}
	fmt.Printf("📋 Connected to database: %s\n", dbName)

	var exists bool
	err = sqlDB.QueryRow(`
		SELECT EXISTS (
			SELECT 1 FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'blob_proofs'
		)
	`).Scan(&exists)
	if err != nil {
		log.Fatalf("Failed to check blob_proofs table: %v", err)
	}
	if !exists {
		fmt.Println("❌ blob_proofs table does not exist, run the sidecar with --migrate-only")
		os.Exit(1)
	}

	var queued, done, failed int64
	err = sqlDB.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE proof IS NULL AND failed = false),
			COUNT(*) FILTER (WHERE proof IS NOT NULL),
			COUNT(*) FILTER (WHERE proof IS NULL AND failed = true)
		FROM blob_proofs
	`).Scan(&queued, &done, &failed)
	if err != nil {
		log.Fatalf("Failed to count requests: %v", err)
	}

	fmt.Printf("📋 queued: %d  done: %d  failed: %d\n", queued, done, failed)

	var oldest sql.NullTime
	if err := sqlDB.QueryRow(`SELECT MIN(created_at) FROM blob_proofs WHERE proof IS NULL AND failed = false`).Scan(&oldest); err != nil {
		log.Fatalf("Failed to read oldest queued request: %v", err)
	}
	if oldest.Valid {
		fmt.Printf("⏳ oldest queued request: %s\n", oldest.Time.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("✅ Database check complete")
}
