package ingest

import (
	"context"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fluentsend/internal/metrics"
	"strings"
	"time"
)

// Parses and emits one line. Blank lines are skipped.
func deliver(ctx context.Context, emitter Emitter, label string, line string, stats *counters) {
	if strings.TrimSpace(line) == "" {
		return
	}
	stats.linesRead.Add(1)

	fields, structured := ParseLine(line)
	if !structured {
		stats.plainLines.Add(1)
	}

	err := emitter.Emit(label, fields)
	if err != nil {
		stats.emitFailures.Add(1)
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "failed to emit record: %v\n", err)
		return
	}
	stats.emitted.Add(1)
}

// Cumulative source counters as metrics
func (stats *counters) collect(namespace []string) (collection []metrics.Metric) {
	recordTime := time.Now()

	entries := []struct {
		name        string
		description string
		value       uint64
	}{
		{"lines_read", "Lines read from the source", stats.linesRead.Load()},
		{"records_emitted", "Records handed to the sender", stats.emitted.Load()},
		{"plain_lines", "Lines forwarded as a bare message", stats.plainLines.Load()},
		{"emit_failures", "Records the sender rejected", stats.emitFailures.Load()},
	}

	for _, entry := range entries {
		collection = append(collection, metrics.Metric{
			Name:        entry.name,
			Description: entry.description,
			Namespace:   namespace,
			Value: metrics.MetricValue{
				Raw:  entry.value,
				Unit: "count",
			},
			Type:      metrics.Counter,
			Timestamp: recordTime,
		})
	}
	return
}
