package cli

import (
	"context"
	"errors"
	"fluentsend/internal/forwarder"
	"fluentsend/internal/global"
	"fluentsend/internal/lifecycle"
	"fluentsend/internal/logctx"
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// Command line additions to the file configuration
type forwardFlags struct {
	collector  collectorFlags
	configPath string
	files      []string
	fileLabel  string
	stdin      bool
	stdinLabel string
	stateFile  string
	textfile   string
}

// Loads the config file (a missing default path is allowed) and applies command line overrides
func loadForwardConfig(fs *pflag.FlagSet, flags forwardFlags) (cfg forwarder.Config, err error) {
	var fileCfg forwarder.JSONConfig

	fileCfg, err = forwarder.LoadConfig(flags.configPath)
	if err != nil {
		if !fs.Changed("config") && errors.Is(err, os.ErrNotExist) {
			fileCfg, err = forwarder.JSONConfig{}, nil
		} else {
			return
		}
	}

	cfg, err = fileCfg.NewDaemonConf()
	if err != nil {
		return
	}

	flags.collector.apply(fs, false, &cfg.Tag, &cfg.Sender)

	for _, path := range flags.files {
		cfg.FileSources = append(cfg.FileSources, forwarder.FileInput{Path: path, Label: flags.fileLabel})
	}
	if fs.Changed("stdin") {
		cfg.StdinEnabled = flags.stdin
	}
	if fs.Changed("stdin-label") {
		cfg.StdinLabel = flags.stdinLabel
	}
	if fs.Changed("state-file") {
		cfg.StateFilePath = flags.stateFile
	}
	if fs.Changed("metrics-textfile") {
		cfg.MetricTextfilePath = flags.textfile
	}
	return
}

func ForwardMode(ctx context.Context, commandname string, args []string) {
	var flags forwardFlags

	commandFlags := pflag.NewFlagSet(commandname, pflag.ExitOnError)
	SetGlobalArguments(commandFlags)
	SetCommon(commandFlags, &flags.configPath)
	setCollectorFlags(commandFlags, &flags.collector)
	commandFlags.StringArrayVarP(&flags.files, "file", "f", nil, "File to follow (repeatable)")
	commandFlags.StringVar(&flags.fileLabel, "file-label", "", "Sub-label for records from --file inputs")
	commandFlags.BoolVarP(&flags.stdin, "stdin", "s", false, "Forward lines read from stdin")
	commandFlags.StringVar(&flags.stdinLabel, "stdin-label", "", "Sub-label for records from stdin")
	commandFlags.StringVar(&flags.stateFile, "state-file", global.DefaultStateFile, "Base path for saved file read positions")
	commandFlags.StringVar(&flags.textfile, "metrics-textfile", "", "Write Prometheus metrics to this file after every collection")

	commandFlags.Usage = func() {
		PrintHelpMenu(os.Stdout, commandFlags, commandname, global.CmdOpts)
	}
	commandFlags.Parse(args)
	logctx.SetLogLevel(ctx, global.Verbosity)
	ctx = logctx.AppendCtxTag(ctx, global.NSCLI)

	daemonConfig, err := loadForwardConfig(commandFlags, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if daemonConfig.StdinEnabled && term.IsTerminal(int(os.Stdin.Fd())) {
		fmt.Fprintf(os.Stderr, "Reading records from the terminal, one per line (Ctrl-D to finish)\n")
	}

	forwardDaemon := forwarder.NewDaemon(daemonConfig)
	err = forwardDaemon.Start(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error starting forward daemon: %v\n", err)
		os.Exit(1)
	}

	signalCtx, stopSignals := context.WithCancel(ctx)
	defer stopSignals()
	go lifecycle.SignalHandler(signalCtx, forwardDaemon)

	err = lifecycle.NotifyReady(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify ready failed: %v\n", err)
	}
	err = lifecycle.NotifyStatus(ctx, fmt.Sprintf("forwarding %d file(s), stdin=%v", len(daemonConfig.FileSources), daemonConfig.StdinEnabled))
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify status failed: %v\n", err)
	}

	forwardDaemon.Run()
	forwardDaemon.Shutdown()
}
