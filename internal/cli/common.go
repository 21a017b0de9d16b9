package cli

import (
	"fluentsend/internal/global"
	"fluentsend/pkg/fluent"
	"time"

	"github.com/spf13/pflag"
)

// Level given before the subcommand stays the default for the subcommand's own flag set
func SetGlobalArguments(fs *pflag.FlagSet) {
	defaultLevel := global.VerbosityStandard
	if global.Verbosity > 0 {
		defaultLevel = global.Verbosity
	}
	fs.IntVarP(&global.Verbosity, "verbosity", "v", defaultLevel, "Increase detailed progress messages (Higher is more verbose) <0...5>")
}

func SetCommon(fs *pflag.FlagSet, configPath *string) {
	fs.StringVarP(configPath, "config", "c", global.DefaultConfigPath, "Path to the configuration file (.json, .yaml)")
}

// Collector settings shared by send and forward
type collectorFlags struct {
	tag         string
	host        string
	port        int
	timeout     time.Duration
	bufferLimit int
	msgpack     bool
	udp         bool
	echo        bool
}

func setCollectorFlags(fs *pflag.FlagSet, flags *collectorFlags) {
	fs.StringVarP(&flags.tag, "tag", "t", global.DefaultTag, "Base tag prefixed to every record label")
	fs.StringVarP(&flags.host, "host", "H", global.DefaultHost, "Collector host, unix://<path> for a UNIX socket")
	fs.IntVarP(&flags.port, "port", "p", global.DefaultPort, "Collector port")
	fs.DurationVar(&flags.timeout, "timeout", fluent.DefaultTimeout, "Connect and write timeout")
	fs.IntVar(&flags.bufferLimit, "buffer-limit", fluent.DefaultBufferLimit, "Maximum bytes kept while the collector is unreachable")
	fs.BoolVar(&flags.msgpack, "msgpack", false, "Encode records as msgpack instead of JSON")
	fs.BoolVarP(&flags.udp, "udp", "u", false, "Send each record as one UDP datagram (no buffering)")
	fs.BoolVarP(&flags.echo, "echo", "e", false, "Echo every record to stderr")
}

// Overrides cfg with every flag given on the command line (all flags when force is set)
func (flags collectorFlags) apply(fs *pflag.FlagSet, force bool, tag *string, cfg *fluent.Config) {
	set := func(name string) bool {
		return force || fs.Changed(name)
	}

	if set("tag") {
		*tag = flags.tag
	}
	if set("host") {
		cfg.Host = flags.host
	}
	if set("port") {
		cfg.Port = flags.port
	}
	if set("timeout") {
		cfg.Timeout = flags.timeout
	}
	if set("buffer-limit") {
		cfg.BufferLimit = flags.bufferLimit
	}
	if set("msgpack") {
		cfg.MsgPack = flags.msgpack
	}
	if set("udp") {
		cfg.UDP = flags.udp
	}
	if set("echo") {
		cfg.Verbose = flags.echo
	}
}
