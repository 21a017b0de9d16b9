package cli

import (
	"bytes"
	"fluentsend/internal/global"
	"fluentsend/pkg/fluent"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
)

func TestParseFieldArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]any
		wantErr bool
	}{
		{
			name: "string pairs",
			args: []string{"msg=hello world", "level=info"},
			want: map[string]any{"msg": "hello world", "level": "info"},
		},
		{
			name: "raw json values",
			args: []string{"count:=3", "ok:=true", "tags:=[\"a\",\"b\"]"},
			want: map[string]any{"count": float64(3), "ok": true, "tags": []any{"a", "b"}},
		},
		{
			name: "value containing separator",
			args: []string{"query=a:=b"},
			want: map[string]any{"query": "a:=b"},
		},
		{
			name: "json object",
			args: []string{`{"msg":"hi","n":1}`},
			want: map[string]any{"msg": "hi", "n": float64(1)},
		},
		{
			name:    "missing separator",
			args:    []string{"novalue"},
			wantErr: true,
		},
		{
			name:    "empty key",
			args:    []string{"=value"},
			wantErr: true,
		},
		{
			name:    "bad json value",
			args:    []string{"n:=nope"},
			wantErr: true,
		},
		{
			name:    "bad json object",
			args:    []string{"{broken"},
			wantErr: true,
		},
		{
			name:    "no fields",
			args:    nil,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseFieldArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got fields %v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func newCollectorFlagSet() (fs *pflag.FlagSet, flags *collectorFlags) {
	flags = &collectorFlags{}
	fs = pflag.NewFlagSet("test", pflag.ContinueOnError)
	setCollectorFlags(fs, flags)
	return
}

func TestCollectorFlagsApply(t *testing.T) {
	t.Run("only changed flags", func(t *testing.T) {
		fs, flags := newCollectorFlagSet()
		if err := fs.Parse([]string{"--host", "collector.local", "-u"}); err != nil {
			t.Fatal(err)
		}

		tag := "kept"
		cfg := fluent.Config{Port: 9999, Timeout: time.Second}
		flags.apply(fs, false, &tag, &cfg)

		if tag != "kept" || cfg.Port != 9999 || cfg.Timeout != time.Second {
			t.Errorf("unchanged flags overrode config: tag=%q cfg=%+v", tag, cfg)
		}
		if cfg.Host != "collector.local" || !cfg.UDP {
			t.Errorf("changed flags not applied: %+v", cfg)
		}
	})

	t.Run("forced uses defaults", func(t *testing.T) {
		fs, flags := newCollectorFlagSet()
		if err := fs.Parse([]string{"-t", "app", "--timeout", "250ms"}); err != nil {
			t.Fatal(err)
		}

		var tag string
		var cfg fluent.Config
		flags.apply(fs, true, &tag, &cfg)

		if tag != "app" || cfg.Timeout != 250*time.Millisecond {
			t.Errorf("given flags not applied: tag=%q cfg=%+v", tag, cfg)
		}
		if cfg.Host != global.DefaultHost || cfg.Port != global.DefaultPort || cfg.BufferLimit != fluent.DefaultBufferLimit {
			t.Errorf("defaults not applied: %+v", cfg)
		}
	})
}

func TestPrintHelpMenu(t *testing.T) {
	cmdOpts := DefineOptions()

	t.Run("root", func(t *testing.T) {
		fs := pflag.NewFlagSet("root", pflag.ContinueOnError)
		SetGlobalArguments(fs)

		var out bytes.Buffer
		PrintHelpMenu(&out, fs, RootCLICommand, cmdOpts)
		text := out.String()

		for _, want := range []string{"Subcommands:", "forward", "send", "version", "-v, --verbosity", "[default: 1]"} {
			if !strings.Contains(text, want) {
				t.Errorf("root help missing %q:\n%s", want, text)
			}
		}
	})

	t.Run("send", func(t *testing.T) {
		fs, _ := newCollectorFlagSet()

		var out bytes.Buffer
		PrintHelpMenu(&out, fs, "send", cmdOpts)
		text := out.String()

		for _, want := range []string{"send [options] [key=value|key:=json ...]", "Description:", "-H, --host", "    --msgpack"} {
			if !strings.Contains(text, want) {
				t.Errorf("send help missing %q:\n%s", want, text)
			}
		}
		if strings.Contains(text, "Subcommands:") {
			t.Errorf("leaf command listed subcommands:\n%s", text)
		}
		if strings.Contains(text, "--msgpack  Encode records as msgpack instead of JSON [default") {
			t.Errorf("false default printed:\n%s", text)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		var out bytes.Buffer
		PrintHelpMenu(&out, pflag.NewFlagSet("x", pflag.ContinueOnError), "bogus", cmdOpts)
		if !strings.HasPrefix(out.String(), "Unknown command: bogus") {
			t.Errorf("unexpected output: %q", out.String())
		}
	})
}

func newForwardFlagSet(flags *forwardFlags) (fs *pflag.FlagSet) {
	fs = pflag.NewFlagSet("forward", pflag.ContinueOnError)
	SetCommon(fs, &flags.configPath)
	setCollectorFlags(fs, &flags.collector)
	fs.StringArrayVarP(&flags.files, "file", "f", nil, "")
	fs.StringVar(&flags.fileLabel, "file-label", "", "")
	fs.BoolVarP(&flags.stdin, "stdin", "s", false, "")
	fs.StringVar(&flags.stdinLabel, "stdin-label", "", "")
	fs.StringVar(&flags.stateFile, "state-file", "", "")
	fs.StringVar(&flags.textfile, "metrics-textfile", "", "")
	return
}

func TestLoadForwardConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "fluentcat.yaml")
	config := "tag: web\ncollector:\n  host: collector.local\n  port: 24225\ninputs:\n  files:\n    - path: /var/log/a.log\n"
	if err := os.WriteFile(configPath, []byte(config), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("file plus overrides", func(t *testing.T) {
		var flags forwardFlags
		fs := newForwardFlagSet(&flags)
		err := fs.Parse([]string{"-c", configPath, "-p", "5170", "-f", "/var/log/b.log", "--file-label", "b", "--stdin"})
		if err != nil {
			t.Fatal(err)
		}

		cfg, err := loadForwardConfig(fs, flags)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Tag != "web" || cfg.Sender.Host != "collector.local" || cfg.Sender.Port != 5170 {
			t.Errorf("destination wrong: tag=%q sender=%+v", cfg.Tag, cfg.Sender)
		}
		if len(cfg.FileSources) != 2 || cfg.FileSources[1].Path != "/var/log/b.log" || cfg.FileSources[1].Label != "b" {
			t.Errorf("file sources wrong: %+v", cfg.FileSources)
		}
		if !cfg.StdinEnabled {
			t.Error("stdin flag not applied")
		}
	})

	t.Run("explicit missing config", func(t *testing.T) {
		var flags forwardFlags
		fs := newForwardFlagSet(&flags)
		if err := fs.Parse([]string{"-c", filepath.Join(dir, "missing.json")}); err != nil {
			t.Fatal(err)
		}
		if _, err := loadForwardConfig(fs, flags); err == nil {
			t.Error("expected error for missing explicit config")
		}
	})

	t.Run("default path may be absent", func(t *testing.T) {
		var flags forwardFlags
		fs := newForwardFlagSet(&flags)
		if err := fs.Parse([]string{"--stdin"}); err != nil {
			t.Fatal(err)
		}
		flags.configPath = filepath.Join(dir, "absent.json")

		cfg, err := loadForwardConfig(fs, flags)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !cfg.StdinEnabled {
			t.Error("stdin flag not applied")
		}
	})
}
