// main.go - Admin control tool for utmlens
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"utmlens/cmd/utmctl/commands"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	if err := commands.Execute(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
