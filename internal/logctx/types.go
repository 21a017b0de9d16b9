package logctx

import (
	"sync"
	"time"
)

// Log Event Structure
type Event struct {
	Timestamp time.Time
	Severity  string
	Tags      []string
	Message   string
}

// Logger Struct
type Logger struct {
	ID         string
	CreatedAt  time.Time
	PrintLevel int             // Level at which the message should be recorded
	MaxQueue   int             // Oldest events are discarded beyond this depth (0 is unbounded)
	Done       <-chan struct{} // Watcher exits once closed and the queue is empty

	queue   []Event    // event buffer
	dropped uint64     // events discarded due to MaxQueue
	mutex   sync.Mutex // protects buffer
	cond    *sync.Cond // condition to signal new events
	wg      sync.WaitGroup
}

// Suppression tuning for the watcher
const (
	dedupWindow      time.Duration = 5 * time.Second
	dedupMinRepeats  int           = 10
	suppressCooldown time.Duration = 1 * time.Minute
)

// State for repeated message suppression
type dedupState struct {
	lastMsg          string
	repeatCount      int
	lastSuppressTime time.Time
}
