package metrics

import (
	"sync"
	"time"
)

// Time sliced store of forwarder metrics
type Registry struct {
	mu     sync.RWMutex
	slices map[time.Time]map[string]map[string]Metric // slice start -> namespace -> name
}

type MetricType string

const (
	Counter MetricType = "counter" // only ever increases
	Gauge   MetricType = "gauge"   // can go up/down
)

// One sample with its identity
type Metric struct {
	Name        string // e.g. bytes_sent, pending_bytes
	Description string
	Namespace   []string // e.g. "Forwarder/Ingest/File"
	Value       MetricValue
	Type        MetricType
	Timestamp   time.Time // collection time
}

type MetricValue struct {
	Raw  any    // uint64, int, float64
	Unit string // e.g. "bytes", "count"
}
