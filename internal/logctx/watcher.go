package logctx

import (
	"fmt"
	"fluentsend/internal/global"
	"io"
	"strings"
	"time"
)

// Hold main thread exit until logger is finished its work
func (logger *Logger) Wait() {
	logger.wg.Wait()
}

// Wake signals/broadcasts to any goroutines waiting on the condition variable
func (logger *Logger) Wake() {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()
	logger.cond.Broadcast()
}

// Starts a go routine that reads events and writes formatted output to io.Writer.
// Stops when logger.Done is closed and every queued event has been written.
func StartWatcher(logger *Logger, output io.Writer) {
	logger.wg.Add(1)

	go func() {
		defer logger.wg.Done()

		var dedup dedupState
		for {
			event, ok := logger.next()
			if !ok {
				return
			}

			if dedup.suppress(event, output) {
				continue
			}
			fmt.Fprint(output, event.Format())
		}
	}()
}

// Blocks for the next event. Returns false once done with an empty queue.
func (logger *Logger) next() (event Event, ok bool) {
	logger.mutex.Lock()
	defer logger.mutex.Unlock()

	for len(logger.queue) == 0 {
		select {
		case <-logger.Done:
			return
		default:
		}
		logger.cond.Wait()
	}

	event = logger.queue[0]
	logger.queue = logger.queue[1:]
	ok = true
	return
}

// Highly repetitive messages inside the window are counted instead of printed,
// with one summary line per cooldown period.
func (dedup *dedupState) suppress(event Event, output io.Writer) (skip bool) {
	now := time.Now()

	if event.Message == "" || event.Message != dedup.lastMsg || now.Sub(event.Timestamp) > dedupWindow {
		dedup.lastMsg = event.Message
		dedup.repeatCount = 1
		return
	}

	dedup.repeatCount++
	if dedup.repeatCount >= dedupMinRepeats && now.Sub(dedup.lastSuppressTime) >= suppressCooldown {
		fmt.Fprintf(output, "[%s] [%s] [%s] Suppressed %d repeated messages: %s",
			padTimestamp(event.Timestamp),
			strings.Join(event.Tags, "/"),
			global.InfoLog,
			dedup.repeatCount,
			ensureNewline(dedup.lastMsg))

		dedup.lastSuppressTime = now
		dedup.repeatCount = 0
	}
	skip = true
	return
}

func ensureNewline(msg string) (out string) {
	out = msg
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	return
}
