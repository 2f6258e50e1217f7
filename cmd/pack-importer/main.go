package main

import (
	"context"
	"flag"
	"os"

	importercmd "github.com/hollowmoor/tableside/internal/cmd/importer"
	"github.com/hollowmoor/tableside/internal/platform/config"
)

func main() {
	cfg, err := importercmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	if err := importercmd.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
