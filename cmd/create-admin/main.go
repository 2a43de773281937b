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
	"github.com/autoattend/autoattend-backend/internal/utils"
	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"
)

func main() {
	var (
		dbURLFlag string
		username  string
		email     string
		password  string
		role      string
		cost      int
	)
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&username, "username", "admin", "admin username")
	flag.StringVar(&email, "email", "", "admin email (optional)")
	flag.StringVar(&password, "password", "", "initial password (generated when empty)")
	flag.StringVar(&role, "role", "admin", "user role")
	flag.IntVar(&cost, "bcrypt-cost", bcrypt.DefaultCost+2, "bcrypt cost")
	flag.Parse()

	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	username = strings.TrimSpace(username)
	if username == "" {
		log.Fatal("-username must not be empty")
	}

	generated := false
	if password == "" {
		secret, err := utils.GenerateSecret(12)
		if err != nil {
			log.Fatalf("Failed to generate password: %v", err)
		}
		password = secret
		generated = true
	}
	if len(password) < 8 {
		log.Fatal("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	db, err := database.NewConnection(config.DatabaseConfig{
		URL:                dbURL,
		MaxConnections:     2,
		MaxIdleConnections: 1,
	})
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	users := database.NewUserRepository(db)
	user, err := users.Upsert(context.Background(), username, strings.TrimSpace(email), role, string(hash), true)
	if err != nil {
		log.Fatalf("Failed to save admin user: %v", err)
	}

	fmt.Println("===========================================")
	fmt.Printf("✅ Admin user %q ready (id %d)\n", user.Username, user.ID)
	if generated {
		fmt.Printf("Temporary password: %s\n", password)
	}
	fmt.Println("The password must be changed at first login.")
	fmt.Println("===========================================")
}
