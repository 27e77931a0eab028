package main

import (
	"os"

	"github.com/okian/vists/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
