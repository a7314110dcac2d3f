package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/unipkg/unipkg/internal/cli"
	"github.com/unipkg/unipkg/unipkg/commandmanager"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := cli.Execute(ctx); err != nil {
		if errors.Is(err, commandmanager.ErrCancelled) {
			fmt.Fprintln(os.Stderr, "Cancelled.")
			os.Exit(130)
		}
		os.Exit(1)
	}
}
