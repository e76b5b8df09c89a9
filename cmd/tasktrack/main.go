package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/amirbrooks/tasktrack/internal/cli"
)

func main() {
	// A missing .env is fine; variables already set in the environment win.
	_ = godotenv.Load()
	code := cli.Run(os.Args[1:])
	os.Exit(code)
}
