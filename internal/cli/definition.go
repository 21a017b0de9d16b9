package cli

import "fluentsend/internal/global"

func DefineOptions() (cmdOpts *global.CommandSet) {
	// Root level
	root := &global.CommandSet{
		Description:     "Fluent log forwarder (fluentcat)",
		FullDescription: "  Sends structured records to a fluentd compatible collector",
		CommandName:     RootCLICommand,
		ChildCommands:   make(map[string]*global.CommandSet),
	}

	// One-shot
	root.ChildCommands["send"] = &global.CommandSet{
		CommandName:     "send",
		UsageOption:     "[key=value|key:=json ...]",
		Description:     "Send One Record",
		FullDescription: "Builds one record from key=value arguments (or a single JSON object) and delivers it to the collector",
		ChildCommands:   nil,
	}

	// Daemon
	root.ChildCommands["forward"] = &global.CommandSet{
		CommandName:     "forward",
		Description:     "Forward Log Lines",
		FullDescription: "Follows files and/or stdin and forwards every line as a record, buffering while the collector is unreachable",
		ChildCommands:   nil,
	}

	// Version Info
	root.ChildCommands["version"] = &global.CommandSet{
		CommandName:     "version",
		Description:     "Show Version Information",
		FullDescription: "Display meta information about program",
	}

	cmdOpts = root
	return
}
