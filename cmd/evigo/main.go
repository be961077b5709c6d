// Command evigo loads a YAML fixture into an in-memory database and runs or
// explains the query it contains.
//
//	evigo query -f fixture.yaml
//	evigo explain -f fixture.yaml --verbose
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
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
