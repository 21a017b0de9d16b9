// Process lifecycle shared by long running commands (signals, service manager notifications)
package lifecycle

import (
	"context"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fmt"
	"net"
	"os"
	"strings"
)

// Sends READY=1 to systemd to indicate service startup complete.
func NotifyReady(ctx context.Context) (err error) {
	err = notify(ctx, "READY=1\nMAINPID="+fmt.Sprint(os.Getpid()))
	return
}

// Sends STOPPING=1 to systemd to indicate shutdown has begun.
func NotifyStopping(ctx context.Context) (err error) {
	err = notify(ctx, "STOPPING=1")
	return
}

// Sends custom status message to systemd for context.
func NotifyStatus(ctx context.Context, msg string) (err error) {
	err = notify(ctx, "STATUS="+msg)
	return
}

// Sends a raw sd_notify message.
// If NOTIFY_SOCKET is unset, this is a no-op and returns nil.
func notify(ctx context.Context, msg string) (err error) {
	sockPath := os.Getenv("NOTIFY_SOCKET")
	if sockPath == "" {
		// Not running under systemd
		return
	}

	// Abstract namespace socket
	if strings.HasPrefix(sockPath, "@") {
		sockPath = "\x00" + sockPath[1:]
	}

	addr := &net.UnixAddr{
		Name: sockPath,
		Net:  "unixgram",
	}

	conn, err := net.DialUnix("unixgram", nil, addr)
	if err != nil {
		err = fmt.Errorf("notify dial failed: %w", err)
		return
	}
	defer conn.Close()

	_, err = conn.Write([]byte(msg))
	if err != nil {
		err = fmt.Errorf("notify write failed: %w", err)
		return
	}

	logctx.LogEvent(ctx, global.VerbosityProgress, global.InfoLog, "Successfully notified systemd with message '%s'\n", msg)
	return
}
