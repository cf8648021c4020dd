// cutplan optimizes guillotine cutting plans for rectangular panels.
//
// Usage:
//
//	cutplan serve [flags]                 run the HTTP API
//	cutplan optimize [flags] <job|list>   optimize one job and write exports
//
// Flags can also be set in cutplan.yaml or through CUTPLAN_* variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/piwi3910/cutplan/internal/config"
	"github.com/piwi3910/cutplan/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "serve":
		err = serve(ctx, os.Args[2:])
	case "optimize":
		err = optimize(ctx, os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "cutplan:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage:
  cutplan serve [flags]
  cutplan optimize [flags] <job.json | panels.csv | panels.xlsx | panels.dxf>

Run "cutplan <command> --help" for the flags of a command.`)
}

// loadConfig parses args into fs, loads the configuration and sets up
// logging.
func loadConfig(fs *pflag.FlagSet, args []string) (*config.Config, error) {
	configPath := fs.String("config", "", "path to a YAML configuration file")
	config.RegisterFlags(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	cfg, err := config.Load(*configPath, fs)
	if err != nil {
		return nil, err
	}
	logger.Configure(cfg.Logging.Level, logger.ParseFormat(cfg.Logging.Format, logger.FormatPretty))
	return cfg, nil
}
