package main

import (
	"log/slog"
	"os"

	"github.com/awnumar/memguard"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		slog.Error("fatal error", "error", err)
		memguard.Purge()
		os.Exit(1)
	}
	memguard.Purge()
}
