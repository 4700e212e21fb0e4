package main

import (
	"github.com/joho/godotenv"

	"github.com/3leaps/ugcreel/internal/cmd"
)

// Set via ldflags at build time.
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()

	cmd.SetVersionInfo(version, commit, buildDate)
	cmd.Execute()
}
