package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/autoattend/autoattend-backend/internal/config"
	"github.com/autoattend/autoattend-backend/internal/database"
	"github.com/joho/godotenv"
)

// ledgerTables hold scan history and security logs; the employee directory and
// admin accounts survive unless -all is given.
var ledgerTables = []string{
	"attendance_records",
	"audit_logs",
	"login_attempts",
	"sessions",
}

var directoryTables = []string{
	"employee_details",
	"employees",
	"users",
}

func main() {
	var dbURLFlag string
	var all bool
	var yes bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.BoolVar(&all, "all", false, "also remove employees and admin users")
	flag.BoolVar(&yes, "yes", false, "skip the confirmation prompt")
	flag.Parse()

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	tables := append([]string{}, ledgerTables...)
	if all {
		tables = append(tables, directoryTables...)
	}

	if !yes {
		fmt.Printf("This will permanently delete all rows in: %s\nType 'yes' to continue: ", strings.Join(tables, ", "))
		var answer string
		if _, err := fmt.Scanln(&answer); err != nil || answer != "yes" {
			fmt.Println("Aborted.")
			return
		}
	}

	// Build minimal database config without loading full app config
	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	fmt.Println("Connected to database. Truncating tables...")

	truncateSQL := fmt.Sprintf("TRUNCATE TABLE %s RESTART IDENTITY CASCADE", strings.Join(tables, ", "))
	if _, err := db.ExecContext(ctx, truncateSQL); err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	fmt.Println("Data cleared successfully (tables truncated, identities reset).")

	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.GetContext(ctx, &count, fmt.Sprintf("SELECT COUNT(*) FROM %s", t)); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
