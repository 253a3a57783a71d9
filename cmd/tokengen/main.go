// Package main provides a CLI tool for minting bearer tokens for local use of
// the Assura API. Tokens are signed with JWT_SIGNING_KEY (or -key), so they
// only work against a server configured with the same key.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	jwttoken "assura/internal/jwt_token"
	id "assura/pkg/domain"
)

type tokenOutput struct {
	Token     string            `json:"token"`
	Type      string            `json:"type"`
	ExpiresIn string            `json:"expires_in"`
	Claims    map[string]any    `json:"claims"`
	Usage     map[string]string `json:"usage"`
}

func main() {
	accessCmd := flag.NewFlagSet("access", flag.ExitOnError)
	userID := accessCmd.Int64("user-id", 1, "Numeric user ID placed in the sub claim")
	role := accessCmd.String("role", string(id.RoleAdmin), "Role: admin, broker, adjuster or client")
	ttl := accessCmd.Duration("ttl", jwttoken.DefaultTokenTTL, "Token time-to-live")
	key := accessCmd.String("key", os.Getenv("JWT_SIGNING_KEY"), "Signing key (defaults to $JWT_SIGNING_KEY)")
	jsonOut := accessCmd.Bool("json", false, "Output as JSON")

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "access":
		_ = accessCmd.Parse(os.Args[2:])
		if err := generateAccessToken(*userID, *role, *key, *ttl, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tokengen - Mint bearer tokens for the Assura API

Usage:
  tokengen access [flags]

Examples:
  # Admin token for user 1, key from the environment
  JWT_SIGNING_KEY=dev-key tokengen access

  # Broker token valid for an hour
  tokengen access -user-id 7 -role broker -ttl 1h -key dev-key

  # Output as JSON
  tokengen access -json

Use "tokengen access -h" for the full flag list.`)
}

func generateAccessToken(userID int64, roleName, key string, ttl time.Duration, jsonOutput bool) error {
	if key == "" {
		return fmt.Errorf("signing key required: set JWT_SIGNING_KEY or pass -key")
	}
	uid := id.UserID(userID)
	if uid.IsNil() {
		return fmt.Errorf("user-id must be positive")
	}
	role, err := id.ParseRole(roleName)
	if err != nil {
		return fmt.Errorf("invalid role %q", roleName)
	}

	svc := jwttoken.NewJWTService(key, jwttoken.DefaultIssuer, jwttoken.DefaultAudience, ttl)
	token, err := svc.GenerateAccessToken(context.Background(), uid, role)
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}

	if jsonOutput {
		return printJSON(tokenOutput{
			Token:     token,
			Type:      "access_token",
			ExpiresIn: ttl.String(),
			Claims: map[string]any{
				"sub":  strconv.FormatInt(userID, 10),
				"role": string(role),
				"iss":  jwttoken.DefaultIssuer,
				"aud":  jwttoken.DefaultAudience,
			},
			Usage: map[string]string{
				"header": "Authorization: Bearer <token>",
			},
		})
	}

	fmt.Println("Access Token (JWT)")
	fmt.Println("==================")
	fmt.Printf("Expires In:  %s\n", ttl)
	fmt.Printf("User ID:     %d\n", userID)
	fmt.Printf("Role:        %s\n", role)
	fmt.Println()
	fmt.Println("Token:")
	fmt.Println(token)
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  curl -H \"Authorization: Bearer <token>\" http://localhost:8080/gdpr/export/1")
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
