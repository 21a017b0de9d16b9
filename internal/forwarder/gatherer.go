package forwarder

import (
	"context"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fluentsend/internal/metrics"
	"fluentsend/pkg/fluent"
	"runtime/debug"
	"time"
)

// Exported metric name prefix
const metricPrefix string = global.ProgBaseName

func NewGatherer(sender *fluent.Sender, sources []Collector, interval time.Duration, retention time.Duration, textfilePath string) (gatherer *Gatherer) {
	gatherer = &Gatherer{
		Interval:     interval,
		Retention:    retention,
		Registry:     metrics.New(),
		TextfilePath: textfilePath,
		sender:       sender,
		sources:      sources,
	}
	return
}

func (gatherer *Gatherer) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSMetric)

	ticker := time.NewTicker(gatherer.Interval)
	defer ticker.Stop()

	// Prune roughly every 30 collections
	var tickCount int

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			gatherer.Collect(ctx, now)

			tickCount++
			if tickCount >= 30 {
				gatherer.Registry.Prune(now, gatherer.Retention)
				tickCount = 0
			}
		}
	}
}

// Records one time slice of sender, source and logger metrics, then refreshes the textfile
func (gatherer *Gatherer) Collect(ctx context.Context, now time.Time) {
	// Record panics and continue on next interval
	defer func() {
		if fatalError := recover(); fatalError != nil {
			stack := debug.Stack()
			logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog,
				"panic in metric collector: %v\n%s", fatalError, stack)
		}
	}()

	timeSlice := gatherer.Registry.NewTimeSlice(now, gatherer.Interval)

	if gatherer.sender != nil {
		gatherer.Registry.Add(timeSlice, senderMetrics(gatherer.sender.Stats(), now))
	}
	for _, source := range gatherer.sources {
		gatherer.Registry.Add(timeSlice, source.CollectMetrics())
	}
	if logger := logctx.GetLogger(ctx); logger != nil {
		gatherer.Registry.Add(timeSlice, []metrics.Metric{{
			Name:        "log_events_dropped",
			Description: "Diagnostic log events discarded by a full queue",
			Namespace:   []string{global.NSFwd},
			Value:       metrics.MetricValue{Raw: logger.Dropped(), Unit: "count"},
			Type:        metrics.Counter,
			Timestamp:   now,
		}})
	}

	if gatherer.TextfilePath == "" {
		return
	}
	err := metrics.WriteTextfile(gatherer.TextfilePath, metricPrefix, gatherer.Registry.Latest())
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to write metrics textfile: %v\n", err)
	}
}

// Sender counters as metrics
func senderMetrics(stats fluent.Stats, now time.Time) (collection []metrics.Metric) {
	namespace := []string{global.NSFwd, global.NSSender}

	entries := []struct {
		name        string
		description string
		value       any
		unit        string
		metricType  metrics.MetricType
	}{
		{"events", "Records submitted to the sender", stats.Events, "count", metrics.Counter},
		{"encode_failures", "Records the codec rejected", stats.EncodeFailures, "count", metrics.Counter},
		{"packets_sent", "Successful socket writes", stats.PacketsSent, "count", metrics.Counter},
		{"bytes_sent", "Bytes written to the collector", stats.BytesSent, "bytes", metrics.Counter},
		{"connect_failures", "Failed connection attempts", stats.ConnectFailures, "count", metrics.Counter},
		{"send_failures", "Failed socket writes", stats.SendFailures, "count", metrics.Counter},
		{"overflows", "Retry buffer discards", stats.Overflows, "count", metrics.Counter},
		{"bytes_dropped", "Bytes lost to overflows and failed datagrams", stats.BytesDropped, "bytes", metrics.Counter},
		{"pending_bytes", "Bytes waiting for the next send", stats.PendingBytes, "bytes", metrics.Gauge},
		{"connected", "Collector connection is open", stats.Connected, "bool", metrics.Gauge},
	}

	for _, entry := range entries {
		collection = append(collection, metrics.Metric{
			Name:        entry.name,
			Description: entry.description,
			Namespace:   namespace,
			Value: metrics.MetricValue{
				Raw:  entry.value,
				Unit: entry.unit,
			},
			Type:      entry.metricType,
			Timestamp: now,
		})
	}
	return
}
