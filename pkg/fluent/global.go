package fluent

import (
	"context"
	"sync"
)

// Process-wide sender shared by PostEvent and other collaborators
var (
	globalMutex  sync.RWMutex
	globalSender *Sender
)

// Installs a new process-wide sender, closing any previously installed one
func Setup(tag string, cfg Config) (sender *Sender) {
	sender = SetupWithContext(context.Background(), tag, cfg)
	return
}

// Like Setup, diagnostics go to the logger carried by ctx
func SetupWithContext(ctx context.Context, tag string, cfg Config) (sender *Sender) {
	sender = NewWithContext(ctx, tag, cfg)

	globalMutex.Lock()
	previous := globalSender
	globalSender = sender
	globalMutex.Unlock()

	if previous != nil {
		_ = previous.Close()
	}
	return
}

// Installed process-wide sender, ErrNoSender if none
func Default() (sender *Sender, err error) {
	globalMutex.RLock()
	defer globalMutex.RUnlock()

	if globalSender == nil {
		err = ErrNoSender
		return
	}
	sender = globalSender
	return
}

// Uninstalls and closes the process-wide sender. No-op if none is installed.
func Shutdown() (err error) {
	globalMutex.Lock()
	sender := globalSender
	globalSender = nil
	globalMutex.Unlock()

	if sender == nil {
		return
	}
	err = sender.Close()
	return
}
