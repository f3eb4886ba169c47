package main

import (
	"github.com/joho/godotenv"

	"github.com/leeinprogress/aws-currency-tracker/internal/cli"
)

func main() {
	// Local development convenience; ignored when no .env file exists.
	_ = godotenv.Load()

	cli.Execute()
}
