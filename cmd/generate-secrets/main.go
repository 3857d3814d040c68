package main

import (
	"fmt"
	"log"

	"github.com/automas/booking-engine/internal/utils"
)

func main() {
	fmt.Println("===========================================")
	fmt.Println("Secret Generator for the Automas booking engine")
	fmt.Println("===========================================")
	fmt.Println()

	jwtSecret, handoffKey, err := utils.GenerateServiceSecrets()
	if err != nil {
		log.Fatalf("Failed to generate secrets: %v", err)
	}

	fmt.Println("Secrets generated successfully!")
	fmt.Println()
	fmt.Println("Add these to your .env file or deployment secrets:")
	fmt.Println()
	fmt.Printf("JWT_SECRET=%s\n", jwtSecret)
	fmt.Printf("HANDOFF_ENCRYPTION_KEY=%s\n", handoffKey)
	fmt.Println()
	fmt.Println("IMPORTANT: rotating HANDOFF_ENCRYPTION_KEY makes in-flight handoff records unreadable.")
	fmt.Println("===========================================")
}
