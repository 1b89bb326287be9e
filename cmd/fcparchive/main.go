package main

import (
	"os"

	"github.com/gregkopp/Archive-Final-Cut-Libraries-to-AWS-S3/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
