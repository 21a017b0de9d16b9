package fluent

import (
	"os"
	"strings"
)

// Sets defaults for any missing/invalid values
func (cfg *Config) setDefaults() {
	if cfg.Host == "" {
		cfg.Host = DefaultHost
	}
	if cfg.Port == 0 && !strings.HasPrefix(cfg.Host, UnixPrefix) {
		cfg.Port = DefaultPort
	}
	if cfg.BufferLimit <= 0 {
		cfg.BufferLimit = DefaultBufferLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Diagnostics == nil {
		cfg.Diagnostics = os.Stderr
	}
}
