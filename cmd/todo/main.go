package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/idilsaglam/cloudtodo/internal/cli"
	"github.com/idilsaglam/cloudtodo/internal/config"
	"github.com/idilsaglam/cloudtodo/internal/logging"
	"github.com/idilsaglam/cloudtodo/internal/ui"
)

func main() {
	// Root flags (apply to every subcommand)
	groupPending := flag.Bool("group", false, "group output by pending/done")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintHelp()
		os.Exit(2)
	}

	cfg, err := config.ReadClient()
	if err != nil {
		ui.Fail("config: " + err.Error())
		ui.Hint("Run `todo env` for the list of variables")
		os.Exit(2)
	}
	ui.SetTheme(cfg.Theme)

	logger, closer := logging.New(cfg.Log, "todo")
	code := cli.Run(args, cli.Options{
		Group:  *groupPending,
		Config: cfg,
		Logger: logger,
	})
	closer.Close()
	if code != 0 {
		fmt.Fprintln(os.Stderr)
	}
	os.Exit(code)
}
