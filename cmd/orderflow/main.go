package main

import (
	"os"

	"github.com/Ulixes-8/orderflow/internal/cli"

	"github.com/joho/godotenv"
)

func main() {
	os.Exit(cli.Execute())
}

func init() {
	godotenv.Load()
}
