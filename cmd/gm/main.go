package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	gmcmd "github.com/hollowmoor/tableside/internal/cmd/gm"
)

func main() {
	cfg, err := gmcmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[GM] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := gmcmd.Run(ctx, cfg, os.Stdin, os.Stdout); err != nil {
		log.Fatalf("failed to run: %v", err)
	}
}
