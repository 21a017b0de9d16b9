package global

import "time"

const (
	// Descriptive Names for available verbosity levels
	VerbosityNone int = iota
	VerbosityStandard
	VerbosityProgress
	VerbosityData
	VerbosityFullData
	VerbosityDebug

	// Descriptive names for available severity levels
	ErrorLog string = "Error"
	WarnLog  string = "Warn"
	InfoLog  string = "Info"
)

const (
	ProgBaseName string = "fluentcat"
	ProgVersion  string = "v0.3.0"

	// Context keys
	LoggerKey  CtxKey = "logger"  // Event queue (mostly for variable log verbosity handling)
	LogTagsKey CtxKey = "logtags" // List of tags in order of broad->specific appended/popped at various parts of the program

	DefaultConfigPath string = "/etc/fluentcat.json"
	DefaultStateFile  string = "/var/cache/fluentcat/last.state"
	DefaultTag        string = "fluentcat"

	// Collector defaults
	DefaultHost string = "localhost"
	DefaultPort int    = 24224

	// Metric defaults
	DefaultMetricInterval  time.Duration = 15 * time.Second
	DefaultMetricRetention time.Duration = 1 * time.Hour

	// Timeout values
	ForwardShutdownTimeout time.Duration = 5 * time.Second

	// Namespacing Name Components
	NSMetric  string = "Metrics"
	NSTest    string = "Test"
	NSCLI     string = "CLI"
	NSFwd     string = "Forwarder"
	NSSender  string = "Sender"
	NSmIngest string = "Ingest"
	NSWatcher string = "Watcher"
	NSoFile   string = "File"
	NSoStdIn  string = "Stdin"
)
