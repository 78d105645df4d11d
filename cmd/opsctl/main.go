// Command opsctl is a terminal client for the airline operations console's
// authentication API. It keeps the logged-in session on disk (or in redis)
// between invocations, answers role questions against it, and can run a
// local stub of the API seeded with demo accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}
