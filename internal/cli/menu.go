package cli

import (
	"fluentsend/internal/global"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/pflag"
)

const (
	RootCLICommand  string = "root"
	helpMenuTrailer string = `
Collector protocol: fluentd in_forward / in_tcp / in_udp (JSON or msgpack records)
`
)

// Full standardized help menu (wraps option printer as well)
func PrintHelpMenu(out io.Writer, fs *pflag.FlagSet, command string, rootCmd *global.CommandSet) {
	const baseIndentSpaces = 2

	var curCmdSet *global.CommandSet
	var parentStack []*global.CommandSet

	// Find the command in tree
	if command == "" || command == RootCLICommand {
		curCmdSet = rootCmd
	} else if cmd, ok := rootCmd.ChildCommands[command]; ok {
		curCmdSet = cmd
		parentStack = append(parentStack, rootCmd)
	} else {
		fmt.Fprintf(out, "Unknown command: %s\n", command)
		return
	}

	// Build full usage path, root name itself is never shown
	usageParts := []string{os.Args[0]}
	for _, p := range parentStack {
		if p.CommandName != RootCLICommand {
			usageParts = append(usageParts, p.CommandName)
		}
	}
	if curCmdSet != rootCmd {
		usageParts = append(usageParts, curCmdSet.CommandName)
	}

	if len(curCmdSet.ChildCommands) > 0 {
		usageParts = append(usageParts, "[subcommand]")
	}
	usageParts = append(usageParts, "[options]")
	if curCmdSet.UsageOption != "" {
		usageParts = append(usageParts, curCmdSet.UsageOption)
	}

	fmt.Fprintf(out, "Usage: %s\n\n", strings.Join(usageParts, " "))

	// Description
	if curCmdSet == rootCmd {
		fmt.Fprintln(out, curCmdSet.Description)
		fmt.Fprintln(out, curCmdSet.FullDescription)
		fmt.Fprintln(out)
	} else if curCmdSet.FullDescription != "" {
		fmt.Fprintln(out, "  Description:")
		fmt.Fprintf(out, "    %s\n\n", curCmdSet.FullDescription)
	}

	// Subcommands
	if len(curCmdSet.ChildCommands) > 0 {
		indent := strings.Repeat(" ", baseIndentSpaces)
		fmt.Fprintf(out, "%sSubcommands:\n", indent)

		maxLen := 0
		subNames := make([]string, 0, len(curCmdSet.ChildCommands))
		for name := range curCmdSet.ChildCommands {
			subNames = append(subNames, name)
			if len(name) > maxLen {
				maxLen = len(name)
			}
		}
		sort.Strings(subNames)

		cmdIndent := strings.Repeat(" ", baseIndentSpaces+2)
		for _, name := range subNames {
			sub := curCmdSet.ChildCommands[name]
			padding := strings.Repeat(" ", maxLen-len(name)+2)
			fmt.Fprintf(out, "%s%s%s - %s\n", cmdIndent, name, padding, sub.Description)
		}
		fmt.Fprintln(out)
	}

	// Flags
	printFlagOptions(out, fs, baseIndentSpaces)

	// Top-level trailer
	if curCmdSet == rootCmd {
		fmt.Fprint(out, helpMenuTrailer)
	}
}

// Aligned "-s, --long  usage [default: x]" listing, long-only flags indented past the short column
func printFlagOptions(out io.Writer, fs *pflag.FlagSet, baseIndentSpaces int) {
	const shortArgPrefix string = "-"      // like "  [-]t, --test  Some usage text"
	const shortLongArgJoiner string = ", " // like "  -t[, ]--test  Some usage text"
	const longArgPrefix string = "--"      // like "  -t, [--]test  Some usage text"
	const argToUsageSpaces int = 2         // like "  -t, --test[  ]Some usage text"

	// accounts for short arg prefix length, short arg default len (1), and joiner length
	longShortArgOffset := len(shortLongArgJoiner) + len(shortArgPrefix) + 1

	type optInfo struct {
		left       string
		leftLen    int // includes the short column offset for long-only flags
		usage      string
		defaultVal string
		hasShort   bool
	}

	var opts []optInfo
	fs.VisitAll(func(arg *pflag.Flag) {
		if arg.Hidden {
			return
		}
		opt := optInfo{
			left:       longArgPrefix + arg.Name,
			usage:      arg.Usage,
			defaultVal: arg.DefValue,
			hasShort:   arg.Shorthand != "",
		}
		if opt.hasShort {
			opt.left = shortArgPrefix + arg.Shorthand + shortLongArgJoiner + opt.left
			opt.leftLen = len(opt.left)
		} else {
			opt.leftLen = len(opt.left) + longShortArgOffset
		}
		opts = append(opts, opt)
	})

	if len(opts) == 0 {
		return
	}

	maxLen := 0
	for _, opt := range opts {
		if opt.leftLen > maxLen {
			maxLen = opt.leftLen
		}
	}

	fmt.Fprintf(out, "%sOptions:\n", strings.Repeat(" ", baseIndentSpaces))
	for _, opt := range opts {
		indentSpaces := baseIndentSpaces
		if !opt.hasShort {
			indentSpaces += longShortArgOffset
		}
		indent := strings.Repeat(" ", indentSpaces)
		padding := strings.Repeat(" ", maxLen-opt.leftLen+argToUsageSpaces)

		// Skip printing any "empty" defaults
		desc := opt.usage
		if opt.defaultVal != "" && opt.defaultVal != "false" && opt.defaultVal != "0" && opt.defaultVal != "[]" {
			desc += fmt.Sprintf(" [default: %s]", opt.defaultVal)
		}

		fmt.Fprintf(out, "%s%s%s%s\n", indent, opt.left, padding, desc)
	}
}
