package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/unkn0wn-root/themesync/internal/errdef"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(newApp(os.Stdout, os.Stderr))
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "themesync: %v\n", err)
		if code := errdef.CodeOf(err); code != errdef.CodeUnknown {
			fmt.Fprintf(os.Stderr, "  (%s)\n", code)
		}
		stop()
		os.Exit(1)
	}
}
