// Package main provides the entry point for the tutorchat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/tutorchat-ai/tutorchat/cmd/tutorchat/commands"
)

func main() {
	// A local .env is optional; missing is fine.
	_ = godotenv.Load()

	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
