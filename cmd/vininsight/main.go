package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := NewRootCommand(ctx).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "vininsight: %v\n", err)
		return 1
	}
	return 0
}
