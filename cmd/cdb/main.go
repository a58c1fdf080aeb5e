package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"

	"github.com/silouanwright/cdb/internal/cli"
	"github.com/silouanwright/cdb/internal/config"
)

const quickStart = `cdb - CircleCI build debugger

START HERE (this is the command you want):
  cdb build https://circleci.com/gh/org/repo/12345

You get smart error detection plus the last 50 lines of each failed
step. If the error isn't there, add --full.

Other useful commands:
  cdb pr                                Check the current PR's CircleCI checks
  cdb pr 123 --watch                    Poll a PR until its checks finish
  cdb doctor                            Verify token, gh CLI, and config
`

func main() {
	// Show quick start if no args provided
	if len(os.Args) == 1 {
		fmt.Print(quickStart)
		return
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to load config: %v\n", err)
		cfg = config.Default()
	}

	var c cli.CLI

	// Config defaults feed kong's interpolation, so CLI flags still win
	vars := kong.Vars{
		"config_format":         cfg.Format,
		"config_watch_interval": cfg.Defaults.WatchInterval,
	}

	ctx := kong.Parse(&c,
		kong.Name("cdb"),
		kong.Description("Debug failing CircleCI builds from the terminal\n\nSTART HERE: cdb build <build-url>\n\nAI agents: rerun with --full when the summary doesn't show the error"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
			Summary: true,
		}),
		vars,
	)

	globals := cli.NewGlobalsWithConfig(&c, cfg)
	if err := ctx.Run(globals); err != nil {
		os.Exit(1)
	}
}
