package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/automas/booking-engine/pkg/jwt"
	"github.com/joho/godotenv"
)

func main() {
	var (
		operatorID string
		roles      string
		expiry     time.Duration
	)
	flag.StringVar(&operatorID, "operator", "", "operator identifier (required)")
	flag.StringVar(&roles, "roles", jwt.RoleSupport, "comma separated roles: admin, support")
	flag.DurationVar(&expiry, "expiry", 12*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	if operatorID == "" {
		log.Fatal("-operator is required")
	}

	var granted []string
	for _, role := range strings.Split(roles, ",") {
		role = strings.TrimSpace(role)
		switch role {
		case "":
			continue
		case jwt.RoleAdmin, jwt.RoleSupport:
			granted = append(granted, role)
		default:
			log.Fatalf("unknown role %q", role)
		}
	}

	token, err := jwt.NewService(secret, expiry).GenerateToken(operatorID, granted)
	if err != nil {
		log.Fatalf("Failed to issue token: %v", err)
	}

	fmt.Println(token)
}
