package main

import (
	"os"

	"github.com/colonq/clonk/internal/client/commands"
	"github.com/colonq/clonk/internal/client/errors"
)

func main() {
	if err := commands.Execute(); err != nil {
		errors.Exit(os.Stderr, err)
	}
}
