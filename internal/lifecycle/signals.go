package lifecycle

import (
	"context"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"os"
	"os/signal"
	"syscall"
)

type DaemonLike interface {
	Shutdown()
}

// Blocks until an exit signal arrives (then shuts the daemon down) or ctx is done.
// Returns the received signal, nil when ctx ended first.
func SignalHandler(ctx context.Context, daemon DaemonLike) (received os.Signal) {
	// Channel for handling interrupt signals
	sigChan := make(chan os.Signal, 10)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(sigChan)

	received = handleSignals(ctx, daemon, sigChan)
	return
}

func handleSignals(ctx context.Context, daemon DaemonLike, sigChan <-chan os.Signal) (received os.Signal) {
	select {
	case <-ctx.Done():
		return
	case received = <-sigChan:
	}

	logctx.LogEvent(ctx, global.VerbosityStandard, global.InfoLog, "Received signal: %v\n", received)

	err := NotifyStopping(ctx)
	if err != nil {
		logctx.LogEvent(ctx, global.VerbosityStandard, global.WarnLog, "Systemd notify stopping failed: %v\n", err)
	}

	daemon.Shutdown()
	return
}
