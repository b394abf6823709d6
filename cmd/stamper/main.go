package main

import (
	"context"
	"errors"
	"fmt"
	"os"
)

func main() {
	err := newRootCommand().Execute()
	switch {
	case err == nil:
	case errors.Is(err, context.Canceled):
		// Interrupted by the operator; exit quietly with the SIGINT code.
		os.Exit(130)
	default:
		fmt.Fprintf(os.Stderr, "stamper: %v\n", err)
		os.Exit(1)
	}
}
