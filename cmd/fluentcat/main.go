package main

import (
	"context"
	"fluentsend/internal/cli"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/pflag"
)

func main() {
	global.CmdOpts = cli.DefineOptions()

	args := os.Args
	commandFlags := pflag.NewFlagSet(args[0], pflag.ExitOnError)
	commandFlags.SetInterspersed(false) // subcommand flags belong to the subcommand
	cli.SetGlobalArguments(commandFlags)

	commandFlags.Usage = func() {
		cli.PrintHelpMenu(os.Stdout, commandFlags, cli.RootCLICommand, global.CmdOpts)
	}
	if len(args) < 2 {
		cli.PrintHelpMenu(os.Stdout, commandFlags, cli.RootCLICommand, global.CmdOpts)
		os.Exit(1)
	}
	commandFlags.Parse(args[1:])
	if commandFlags.NArg() < 1 {
		cli.PrintHelpMenu(os.Stdout, commandFlags, cli.RootCLICommand, global.CmdOpts)
		os.Exit(1)
	}

	// Retrieve command and args
	command := commandFlags.Arg(0)
	args = commandFlags.Args()[1:]

	// Setting global logging
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	logger := logctx.NewLogger("global", global.Verbosity, ctx.Done()) // New logger tied to global
	ctx = logctx.WithLogger(ctx, logger)                               // Add logger to global ctx
	logctx.StartWatcher(logger, os.Stderr)                             // Stdout stays free for piped output

	// Process commands
	switch command {
	case "send":
		cli.SendMode(ctx, command, args)
	case "forward":
		cli.ForwardMode(ctx, command, args)
	case "version":
		if len(args) > 0 && (args[0] == "--verbosity" || args[0] == "-v") {
			fmt.Printf("%s %s\n", global.ProgBaseName, global.ProgVersion)
			fmt.Printf("Built using %s(%s) for %s on %s\n", runtime.Version(), runtime.Compiler, runtime.GOOS, runtime.GOARCH)
		} else {
			fmt.Println(global.ProgVersion)
		}
	default:
		cli.PrintHelpMenu(os.Stdout, commandFlags, cli.RootCLICommand, global.CmdOpts)
		cancel()
		logger.Wake()
		logger.Wait()
		os.Exit(1)
	}

	// Finish up any pending writes for global logger
	cancel()
	logger.Wake()
	logger.Wait()
}
