// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"audiomon/cmd"
	applog "audiomon/internal/log"
	"audiomon/pkg/build"
)

// main runs in three phases:
//
//  1. Startup (cold path): build information, runtime settings, flags and
//     config, socket bind, device or file open.
//
//  2. Streaming (hot path): the source delivers blocks, the analyzer turns
//     each one into a record, the broadcaster writes it to every subscriber.
//
//  3. Shutdown (cold path): SIGINT/SIGTERM cancel the context, the source
//     stops, subscribers are closed and the socket file is removed.
func main() {
	if err := build.Initialize(); err != nil {
		applog.Debugf("development build: %v", err)
	}

	// One thread for the audio callback, one for broadcasting and I/O.
	runtime.GOMAXPROCS(2)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Execute(ctx); err != nil {
		stop()
		applog.Fatalf("%v", err)
	}
}
