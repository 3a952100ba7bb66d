package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mariodrm17/Practica1/internal/cli"
	pkglog "github.com/Mariodrm17/Practica1/pkg/log"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand().ExecuteContext(ctx); err != nil {
		l := pkglog.L()
		l.Error().Err(err).Msg("storefront exited with error")
		stop()
		os.Exit(1)
	}
}
