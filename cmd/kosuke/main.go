// Command kosuke runs the code-editing agent against a project, either once
// from the terminal or as an HTTP service.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultDependencies()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
