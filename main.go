package main

import (
	"flag"
	"log"

	"gsd/internal/di"
	"gsd/internal/structures"
)

func main() {
	flags := &structures.CliFlags{}
	flag.StringVar(&flags.ConfigPath, "config", "config.yaml", "path to the configuration file")
	flag.BoolVar(&flags.DebugMode, "debug", false, "log to stdout instead of the log files")
	flag.Parse()

	if _, err := di.InitApp(flags); err != nil {
		log.Fatalf("failed to start: %s", err)
	}
}
