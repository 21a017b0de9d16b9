package forwarder

import (
	"context"
	"fluentsend/internal/ingest"
	"fluentsend/internal/metrics"
	"fluentsend/pkg/fluent"
	"io"
	"sync"
	"time"
)

// On-disk configuration (JSON or YAML)
type JSONConfig struct {
	Tag       string `json:"tag" yaml:"tag"`
	Collector struct {
		Host           string `json:"host" yaml:"host"`
		Port           int    `json:"port,omitempty" yaml:"port,omitempty"`
		Timeout        string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		BufferLimit    int    `json:"bufferLimit,omitempty" yaml:"bufferLimit,omitempty"`
		SendBufferSize int    `json:"sendBufferSize,omitempty" yaml:"sendBufferSize,omitempty"`
		MsgPack        bool   `json:"msgpack,omitempty" yaml:"msgpack,omitempty"`
		UDP            bool   `json:"udp,omitempty" yaml:"udp,omitempty"`
		Verbose        bool   `json:"verbose,omitempty" yaml:"verbose,omitempty"`
	} `json:"collector" yaml:"collector"`
	StateFile string `json:"stateFile,omitempty" yaml:"stateFile,omitempty"`
	Inputs    struct {
		Files      []FileInput `json:"files,omitempty" yaml:"files,omitempty"`
		Stdin      bool        `json:"stdin,omitempty" yaml:"stdin,omitempty"`
		StdinLabel string      `json:"stdinLabel,omitempty" yaml:"stdinLabel,omitempty"`
	} `json:"inputs" yaml:"inputs"`
	Metrics struct {
		Interval     string `json:"collectionInterval,omitempty" yaml:"collectionInterval,omitempty"`
		MaxAge       string `json:"maximumRetention,omitempty" yaml:"maximumRetention,omitempty"`
		TextfilePath string `json:"textfilePath,omitempty" yaml:"textfilePath,omitempty"`
	} `json:"metrics" yaml:"metrics"`
}

// Followed file and the sub-label its records are emitted under
type FileInput struct {
	Path  string `json:"path" yaml:"path"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
}

type Config struct {
	// Destination
	Tag    string
	Sender fluent.Config

	// Sources
	StateFilePath string
	FileSources   []FileInput
	StdinEnabled  bool
	StdinLabel    string

	// Metrics
	MetricCollectionInterval time.Duration
	MetricMaxAge             time.Duration
	MetricTextfilePath       string // Prometheus textfile, empty disables
}

// Anything reporting its own metrics
type Collector interface {
	CollectMetrics() (collection []metrics.Metric)
}

type Daemon struct {
	cfg    Config
	ctx    context.Context
	cancel context.CancelFunc

	Input io.Reader // stream read when stdin is enabled (default os.Stdin)

	inputCtx    context.Context
	inputCancel context.CancelFunc
	inputWG     sync.WaitGroup
	inputsDone  chan struct{}
	wg          sync.WaitGroup
	stopOnce    sync.Once

	// Pipeline components
	Sender      *fluent.Sender
	fileSources []*ingest.FileSource
	stream      *ingest.StreamSource
	gatherer    *Gatherer
}

// Periodically stores sender and source metrics
type Gatherer struct {
	Interval     time.Duration     // Collection interval
	Retention    time.Duration     // Maximum time to keep metrics
	Registry     *metrics.Registry // Storage for metric data
	TextfilePath string            // Prometheus textfile written after every collection

	sender  *fluent.Sender
	sources []Collector
}
