// Command borrowledger borrows, returns and lists library books against the lending API,
// keeping a local journal of what the server decided.
//
// Configuration comes from BORROWLEDGER_ environment variables or a .env file, see package config.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)

	stop()
	os.Exit(code)
}
