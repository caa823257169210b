package main

import (
	"fmt"
	"os"
	"time"

	"eigenda-sidecar/internal/middleware"

	flag "github.com/spf13/pflag"
)

func main() {
	f := flag.NewFlagSet("generate-jwt", flag.ExitOnError)
	secret := f.String("secret", os.Getenv("SIDECAR_JWT_SECRET"), "HS256 secret (server.jwt_secret)")
	client := f.String("client", "sequencer", "client name stored in the token")
	ttl := f.Duration("ttl", 24*time.Hour, "token lifetime")
	_ = f.Parse(os.Args[1:])

	if *secret == "" {
		fmt.Fprintln(os.Stderr, "--secret or SIDECAR_JWT_SECRET is required")
		os.Exit(1)
	}

	tokenString, err := middleware.GenerateToken([]byte(*secret), *client, *ttl)
	if err != nil {
		fmt.Printf("Error generating token: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("============================================================")
	fmt.Println("JWT Token Generated")
	fmt.Println("============================================================")
	fmt.Println()
	fmt.Println(tokenString)
	fmt.Println()
	fmt.Printf("  Client:  %s\n", *client)
	fmt.Printf("  Expires: %s\n", time.Now().Add(*ttl).Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Printf("  curl -H 'Authorization: Bearer %s' -H 'Content-Type: application/json' \\\n", tokenString)
	fmt.Println(`    -d '{"jsonrpc":"2.0","id":1,"method":"get_proof","params":["<blob_id>"]}' http://localhost:3100/`)
}
