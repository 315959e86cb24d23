// Package main generates API keys for the SMS gateway.
//
// It prints the raw key once, for handing to the caller, together with
// a configuration snippet holding only the secret's hash.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/sendrelay/smsgw/internal/auth/apikey"
)

// secretBytes is the entropy of a generated secret.
const secretBytes = 24

func main() {
	keyID := flag.String("id", "", "Public key ID (required)")
	userID := flag.String("user", "", "Owning account ID (required)")
	name := flag.String("name", "", "Human-readable key name")
	permissions := flag.String("permissions", "", "Comma-separated permission tokens")
	rateLimit := flag.Int("rate-limit", 0, "Per-key requests per second (0 = gateway default)")
	algorithm := flag.String("algorithm", apikey.HashAlgSHA256, "Secret hash algorithm (sha256 or bcrypt)")
	flag.Parse()

	if *keyID == "" || *userID == "" {
		fmt.Fprintln(os.Stderr, "both -id and -user are required")
		flag.Usage()
		os.Exit(2)
	}

	secret, err := generateSecret()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to generate secret: %v\n", err)
		os.Exit(1)
	}

	hash, err := apikey.HashSecret(secret, *algorithm)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to hash secret: %v\n", err)
		os.Exit(1)
	}

	rawKey := apikey.FormatKey(*keyID, secret)

	fmt.Printf("API key (store securely, shown only once):\n\n  %s\n\n", rawKey)
	fmt.Println("Configuration snippet:")
	fmt.Println()
	fmt.Printf("  - id: %s\n", *keyID)
	fmt.Printf("    userId: %s\n", *userID)
	if *name != "" {
		fmt.Printf("    name: %s\n", *name)
	}
	fmt.Printf("    secretHash: %s\n", hash)
	if *permissions != "" {
		fmt.Printf("    permissions: [%s]\n", strings.Join(splitPermissions(*permissions), ", "))
	}
	if *rateLimit > 0 {
		fmt.Printf("    rateLimit: %d\n", *rateLimit)
	}
	fmt.Printf("    enabled: true\n")
}

// generateSecret returns a random hex-encoded secret.
func generateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// splitPermissions splits and trims a comma-separated permission list.
func splitPermissions(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
