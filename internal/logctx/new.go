package logctx

import (
	"context"
	"fluentsend/internal/global"
	"time"
)

// Logger Constructor
func NewLogger(id string, logLevel int, done <-chan struct{}) (logger *Logger) {
	// loglevel
	//
	// Integer for printing increasingly detailed information as program progresses
	//
	//	0 - None: quiet (prints nothing but errors)
	//	1 - Standard: normal progress messages
	//	2 - Progress: more progress messages (no actual data outputted)
	//	3 - Data: shows limited data being processed
	//	4 - FullData: shows full data being processed
	//	5 - Debug: shows extra data during processing (raw bytes)
	logger = &Logger{
		ID:         id,
		CreatedAt:  time.Now(),
		PrintLevel: logLevel,
		Done:       done,
		queue:      make([]Event, 0),
	}
	logger.cond = newCond(logger)
	return
}

// Logger Constructor.
// Embeds logger in returned context using provided context as base.
func New(baseCtx context.Context, id string, logLevel int, done <-chan struct{}) (ctxLogger context.Context) {
	ctxLogger = WithLogger(baseCtx, NewLogger(id, logLevel, done))
	return
}

// Attach the logger to context
func WithLogger(ctx context.Context, logger *Logger) (ctxLogger context.Context) {
	ctxLogger = context.WithValue(ctx, global.LoggerKey, logger)
	return
}

// Extracts Logger from context or returns nil
func GetLogger(ctx context.Context) (logger *Logger) {
	if ctx == nil {
		return
	}
	logger, _ = ctx.Value(global.LoggerKey).(*Logger)
	return
}

// Change the loggers level
func SetLogLevel(ctx context.Context, newLevel int) {
	logger := GetLogger(ctx)
	if logger == nil {
		return
	}
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.PrintLevel = newLevel
}

// Number of events discarded because the queue was at MaxQueue
func (logger *Logger) Dropped() (count uint64) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	count = logger.dropped
	return
}

// Current number of events waiting for the watcher
func (logger *Logger) Depth() (depth int) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	depth = len(logger.queue)
	return
}
