/*
Copyright © 2026 The kodman Authors
SPDX-License-Identifier: Apache-2.0
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/epics-containers/kodman/pkg/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := cli.Execute(ctx, os.Args)
	stop()
	os.Exit(code)
}
