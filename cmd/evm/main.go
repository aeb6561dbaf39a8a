package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.creack.net/evm/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cli.Main(ctx, cli.NewRunCommand())
}
