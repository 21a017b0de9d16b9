package ingest

import (
	"bufio"
	"context"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fluentsend/internal/metrics"
	"io"
)

// Longest accepted input line
const maxLineSize int = 1024 * 1024

func NewStream(namespace []string, input io.Reader, label string, emitter Emitter) (mod *StreamSource) {
	mod = &StreamSource{
		Namespace: append(append([]string{}, namespace...), global.NSoStdIn),
		label:     label,
		input:     input,
		emitter:   emitter,
	}
	return
}

// Emits one record per line until EOF or ctx is cancelled
func (mod *StreamSource) Run(ctx context.Context) {
	ctx = logctx.AppendCtxTag(ctx, global.NSoStdIn)

	lines := make(chan string)
	readErr := make(chan error, 1)

	// Reads on stdin cannot be interrupted, the reader is left behind on cancel
	go func() {
		scanner := bufio.NewScanner(mod.input)
		scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- scanner.Err()
		close(lines)
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				err := <-readErr
				if err != nil {
					logctx.LogEvent(ctx, global.VerbosityStandard, global.ErrorLog, "failed reading input: %v\n", err)
				}
				logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "input closed\n")
				return
			}
			deliver(ctx, mod.emitter, mod.label, line, &mod.metrics)
		}
	}
}

func (mod *StreamSource) CollectMetrics() (collection []metrics.Metric) {
	collection = mod.metrics.collect(mod.Namespace)
	return
}
