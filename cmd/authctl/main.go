package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spec-kit/backbone-auth/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	factory := cli.NewFactory()
	err := cli.NewRootCommand(factory).ExecuteContext(ctx)
	factory.Close()
	stop()
	if err != nil {
		os.Exit(1)
	}
}
