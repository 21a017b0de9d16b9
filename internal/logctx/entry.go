// Central logging system. Buffers messages and writes to configured outputs
package logctx

import (
	"context"
	"fluentsend/internal/global"
	"fmt"
	"strings"
	"sync"
	"time"
)

func newCond(logger *Logger) (cond *sync.Cond) {
	cond = sync.NewCond(&logger.mutex)
	return
}

// Entry for logging events
func LogEvent(ctx context.Context, eventLevel int, severity string, message string, vars ...any) {
	logger := GetLogger(ctx)
	if logger == nil {
		return
	}

	newMsg := message
	// Avoiding 'extra' print to log entries when nothing is there to format
	if len(vars) > 0 && strings.Contains(message, "%") {
		newMsg = fmt.Sprintf(message, vars...)
	}
	logger.log(eventLevel, severity, GetTagList(ctx), newMsg)
}

// Queues event for the watcher. Errors are never filtered by level.
func (logger *Logger) log(eventLevel int, eventSeverity string, tags []string, fullMessage string) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()

	if eventLevel > logger.PrintLevel && eventSeverity != global.ErrorLog {
		return
	}

	if logger.MaxQueue > 0 && len(logger.queue) >= logger.MaxQueue {
		// Oldest event goes first, caller never waits on output
		logger.queue = logger.queue[1:]
		logger.dropped++
	}

	logger.queue = append(logger.queue, Event{
		Timestamp: time.Now(),
		Tags:      tags,
		Severity:  eventSeverity,
		Message:   fullMessage,
	})
	logger.cond.Signal()
}
