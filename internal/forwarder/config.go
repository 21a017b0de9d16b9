package forwarder

import (
	"encoding/json"
	"fluentsend/internal/global"
	"fluentsend/pkg/fluent"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pbnjay/memory"
	"gopkg.in/yaml.v3"
)

// Loads config from file, YAML for .yaml/.yml and JSON otherwise
func LoadConfig(path string) (cfg JSONConfig, err error) {
	configFile, err := os.ReadFile(path)
	if err != nil {
		err = fmt.Errorf("failed to read config file: %w", err)
		return
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(configFile, &cfg)
	default:
		err = json.Unmarshal(configFile, &cfg)
	}
	if err != nil {
		err = fmt.Errorf("invalid config syntax in '%s': %w", path, err)
		return
	}
	return
}

// Empty text means unset
func parseDuration(field string, text string) (duration time.Duration, err error) {
	if text == "" {
		return
	}
	duration, err = time.ParseDuration(text)
	if err != nil {
		err = fmt.Errorf("failed to parse %s: %w", field, err)
		return
	}
	return
}

// Parses file config into daemon config
func (cfg JSONConfig) NewDaemonConf() (config Config, err error) {
	config.Tag = cfg.Tag

	// Destination
	config.Sender = fluent.Config{
		Host:           cfg.Collector.Host,
		Port:           cfg.Collector.Port,
		BufferLimit:    cfg.Collector.BufferLimit,
		SendBufferSize: cfg.Collector.SendBufferSize,
		MsgPack:        cfg.Collector.MsgPack,
		UDP:            cfg.Collector.UDP,
		Verbose:        cfg.Collector.Verbose,
	}
	config.Sender.Timeout, err = parseDuration("collector timeout", cfg.Collector.Timeout)
	if err != nil {
		return
	}

	// Sources
	config.StateFilePath = cfg.StateFile
	config.FileSources = cfg.Inputs.Files
	config.StdinEnabled = cfg.Inputs.Stdin
	config.StdinLabel = cfg.Inputs.StdinLabel

	// Metrics
	config.MetricTextfilePath = cfg.Metrics.TextfilePath
	config.MetricCollectionInterval, err = parseDuration("collection interval", cfg.Metrics.Interval)
	if err != nil {
		return
	}
	config.MetricMaxAge, err = parseDuration("metric max age", cfg.Metrics.MaxAge)
	if err != nil {
		return
	}
	return
}

// Sets defaults for any missing/invalid values
func (cfg *Config) setDefaults() {
	if cfg.Tag == "" {
		cfg.Tag = global.DefaultTag
	}
	if cfg.Sender.Host == "" {
		cfg.Sender.Host = global.DefaultHost
	}
	if cfg.Sender.Port == 0 && !strings.HasPrefix(cfg.Sender.Host, fluent.UnixPrefix) {
		cfg.Sender.Port = global.DefaultPort
	}
	if cfg.Sender.BufferLimit <= 0 {
		cfg.Sender.BufferLimit = fluent.DefaultBufferLimit
	}
	if cfg.StateFilePath == "" {
		cfg.StateFilePath = global.DefaultStateFile
	}
	if cfg.MetricCollectionInterval <= 0 {
		cfg.MetricCollectionInterval = global.DefaultMetricInterval
	}
	if cfg.MetricMaxAge <= 0 {
		cfg.MetricMaxAge = global.DefaultMetricRetention
	}
}

// Rejects configurations the daemon cannot run with
func (cfg Config) validate() (err error) {
	if len(cfg.FileSources) == 0 && !cfg.StdinEnabled {
		err = fmt.Errorf("no inputs configured (need at least one file or stdin)")
		return
	}

	seen := make(map[string]bool)
	for _, source := range cfg.FileSources {
		if source.Path == "" {
			err = fmt.Errorf("file input without a path")
			return
		}
		if seen[source.Path] {
			err = fmt.Errorf("file input '%s' configured more than once", source.Path)
			return
		}
		seen[source.Path] = true
	}

	// Retry buffer lives in memory, refuse limits the machine cannot back
	freeMemory := memory.FreeMemory()
	if freeMemory > 0 && uint64(cfg.Sender.BufferLimit) > freeMemory {
		err = fmt.Errorf("buffer limit of %d bytes exceeds free memory (%d bytes)", cfg.Sender.BufferLimit, freeMemory)
		return
	}
	return
}
