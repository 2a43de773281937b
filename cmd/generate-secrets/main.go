package main

import (
	"fmt"
	"log"

	"github.com/autoattend/autoattend-backend/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Device Token Secret Generator for AutoAttend")
	fmt.Println("===========================================")
	fmt.Println()

	deviceSecret, err := utils.GenerateSecret(64)
	if err != nil {
		log.Fatalf("Failed to generate secret: %v", err)
	}

	fmt.Println("✅ Secret generated successfully!")
	fmt.Println()
	fmt.Println("Add this to your .env file:")
	fmt.Println()
	fmt.Printf("DEVICE_JWT_SECRET=%s\n", deviceSecret)
	fmt.Println()
	fmt.Println("Rotating this secret invalidates every issued scanner token.")
	fmt.Println("⚠️  IMPORTANT: Keep this secret safe and never commit it to version control!")
	fmt.Println("===========================================")
}
