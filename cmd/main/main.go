package main

import (
	"context"
	"os"
	"os/signal"

	"civitai/harvester/internal/command"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	return command.Execute(ctx)
}
