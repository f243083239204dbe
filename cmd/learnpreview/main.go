package main

import (
	"os"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
