// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"visualizer/cmd"
	applog "visualizer/internal/log"
	"visualizer/pkg/build"
)

// main stamps the build information, then hands over to the selected
// command. SIGINT and SIGTERM cancel the command's context, which stops the
// render loop, closes the transports and finalizes any recording.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Fatalf("Build: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
