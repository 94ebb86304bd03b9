package server

import (
	"os"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "fizzgig-dev-insecure-default-pin-secret"

// Settings holds the relay's process-wide configuration: only the JWT
// signing secret, read from PIN_SECRET. No relay state is persisted.
type Settings struct {
	JWTSecret []byte
}

// LoadSettings loads a .env file if present (any error from loading it,
// whether the file is missing or malformed, is ignored) and reads
// PIN_SECRET, falling back to a fixed development default when unset.
func LoadSettings() Settings {
	_ = godotenv.Load()

	secret := os.Getenv("PIN_SECRET")
	if secret == "" {
		secret = defaultJWTSecret
	}
	return Settings{JWTSecret: []byte(secret)}
}
