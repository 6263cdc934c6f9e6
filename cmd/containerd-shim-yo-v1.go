package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/containerd/containerd/v2/pkg/shim"

	yo_shim "github.com/MarcinKonowalczyk/runyo/shim"
)

const runtimeName = "io.containerd.yo.v1"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Maybe hijack the shim to run as the yo interpreter
	if yo_shim.IsRunArgs(os.Args[1:]) {
		if err := yo_shim.RunProgram(ctx, os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "Error running yo:", err)
			os.Exit(1)
		}
		return
	}

	shim.Run(ctx, yo_shim.NewManager(runtimeName))
}
