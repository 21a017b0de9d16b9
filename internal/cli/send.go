package cli

import (
	"context"
	"encoding/json"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fluentsend/pkg/fluent"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
)

// Builds record fields from "key=value" (string) and "key:=json" (raw JSON value) arguments,
// or from one JSON object argument
func parseFieldArgs(args []string) (fields map[string]any, err error) {
	if len(args) == 1 && strings.HasPrefix(strings.TrimSpace(args[0]), "{") {
		err = json.Unmarshal([]byte(args[0]), &fields)
		if err != nil {
			err = fmt.Errorf("invalid JSON record: %w", err)
		}
		return
	}

	fields = make(map[string]any, len(args))
	for _, arg := range args {
		rawKey, rawValue, isJSON := strings.Cut(arg, ":=")
		if isJSON && !strings.Contains(rawKey, "=") {
			var value any
			err = json.Unmarshal([]byte(rawValue), &value)
			if err != nil {
				err = fmt.Errorf("invalid JSON value for field '%s': %w", rawKey, err)
				return
			}
			fields[rawKey] = value
			continue
		}

		key, value, found := strings.Cut(arg, "=")
		if !found || key == "" {
			err = fmt.Errorf("invalid field '%s': expected key=value or key:=json", arg)
			return
		}
		fields[key] = value
	}

	if len(fields) == 0 {
		err = fmt.Errorf("record has no fields")
		return
	}
	return
}

// Emits one record and waits for it to be delivered
func sendRecord(ctx context.Context, tag string, cfg fluent.Config, label string, timestamp int64, fields map[string]any) (err error) {
	sender := fluent.NewWithContext(ctx, tag, cfg)

	if timestamp != 0 {
		err = sender.EmitWithTime(label, timestamp, fields)
	} else {
		err = sender.Emit(label, fields)
	}
	if err != nil {
		sender.Close()
		return
	}

	// Undelivered bytes surface here
	err = sender.Close()
	if err != nil {
		return
	}

	stats := sender.Stats()
	if stats.BytesDropped > 0 {
		err = fmt.Errorf("record dropped (%d bytes)", stats.BytesDropped)
		return
	}
	return
}

func SendMode(ctx context.Context, commandname string, args []string) {
	var flags collectorFlags
	var label string
	var timestamp int64

	commandFlags := pflag.NewFlagSet(commandname, pflag.ExitOnError)
	SetGlobalArguments(commandFlags)
	setCollectorFlags(commandFlags, &flags)
	commandFlags.StringVarP(&label, "label", "l", "", "Sub-label appended to the tag (tag.label)")
	commandFlags.Int64Var(&timestamp, "time", 0, "Record time in seconds since epoch (default now)")

	commandFlags.Usage = func() {
		PrintHelpMenu(os.Stdout, commandFlags, commandname, global.CmdOpts)
	}
	if len(args) < 1 {
		PrintHelpMenu(os.Stdout, commandFlags, commandname, global.CmdOpts)
		os.Exit(1)
	}
	commandFlags.Parse(args)
	logctx.SetLogLevel(ctx, global.Verbosity)
	ctx = logctx.AppendCtxTag(ctx, global.NSCLI)

	fields, err := parseFieldArgs(commandFlags.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var tag string
	var cfg fluent.Config
	flags.apply(commandFlags, true, &tag, &cfg)
	cfg.Diagnostics = os.Stderr

	err = sendRecord(ctx, tag, cfg, label, timestamp, fields)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
