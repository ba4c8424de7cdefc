package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/kyleking/askdb/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	err := cmd.Execute(ctx, os.Args)

	stop()

	if err != nil {
		os.Exit(1)
	}
}
