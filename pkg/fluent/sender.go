// Forwards structured records to a fluent collector over one persistent connection.
// Failed stream sends are kept (up to Config.BufferLimit) and retried in front of the next record.
package fluent

import (
	"context"
	"encoding/json"
	"errors"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fluentsend/internal/network"
	"fmt"
	"strings"
	"time"
)

// Creates a sender for base tag. Never fails: an unreachable collector
// leaves the sender disconnected and the next emit retries.
func New(tag string, cfg Config) (sender *Sender) {
	sender = NewWithContext(context.Background(), tag, cfg)
	return
}

// Like New, reusing the logctx logger carried by ctx for diagnostics
func NewWithContext(ctx context.Context, tag string, cfg Config) (sender *Sender) {
	cfg.setDefaults()

	sender = &Sender{
		tag:     tag,
		cfg:     cfg,
		codec:   newCodec(tag, cfg),
		conn:    newConnection(cfg),
		pending: pendingBuffer{limit: cfg.BufferLimit},
	}
	sender.ctx = logctx.AppendCtxTag(sender.diagnostics(ctx), global.NSSender)

	if cfg.UDP && !strings.HasPrefix(cfg.Host, UnixPrefix) {
		maxPayload, err := network.MaxDatagramPayload(cfg.Host)
		if err != nil {
			logctx.LogEvent(sender.ctx, global.VerbosityProgress, global.WarnLog,
				"unable to determine maximum datagram payload for %s: %v\n", cfg.Host, err)
		} else {
			sender.maxDatagram = maxPayload
		}
	}

	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	err := sender.conn.ensureConnected()
	if err != nil {
		sender.countFailure(err)
		logctx.LogEvent(sender.ctx, global.VerbosityStandard, global.WarnLog,
			"initial connection failed, retrying on next emit: %v\n", err)
	}
	return
}

// Uses the caller's logger if present, otherwise starts a private watcher in verbose mode
func (sender *Sender) diagnostics(ctx context.Context) (diagCtx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	diagCtx = ctx
	if logctx.GetLogger(ctx) != nil || !sender.cfg.Verbose {
		return
	}

	sender.logDone = make(chan struct{})
	logger := logctx.NewLogger(global.NSSender, global.VerbosityProgress, sender.logDone)
	logger.MaxQueue = diagnosticQueueDepth
	logctx.StartWatcher(logger, sender.cfg.Diagnostics)

	diagCtx = logctx.WithLogger(ctx, logger)
	return
}

// Base tag every label is prefixed with
func (sender *Sender) Tag() (tag string) {
	tag = sender.tag
	return
}

// Emits fields stamped with the current time (seconds since epoch)
func (sender *Sender) Emit(label string, fields map[string]any) (err error) {
	err = sender.EmitWithTime(label, time.Now().Unix(), fields)
	return
}

// Emits fields with caller supplied timestamp.
// Only encode errors are returned, transport failures are absorbed into the retry buffer.
func (sender *Sender) EmitWithTime(label string, timestamp any, fields map[string]any) (err error) {
	sender.metrics.events.Add(1)

	packet, err := sender.makePacket(label, timestamp, fields)
	if err != nil {
		sender.metrics.encodeFailures.Add(1)
		return
	}

	sender.send(packet)
	return
}

func (sender *Sender) makePacket(label string, timestamp any, fields map[string]any) (packet []byte, err error) {
	record := sender.codec.record(label, timestamp, fields)

	if sender.cfg.Verbose {
		sender.echo(record)
	}

	packet, err = sender.codec.encode(record)
	return
}

// Queues merged record on diagnostics, never blocks the send path
func (sender *Sender) echo(record map[string]any) {
	text, err := json.Marshal(record)
	if err != nil {
		logctx.LogEvent(sender.ctx, global.VerbosityStandard, global.InfoLog, "%v\n", record)
		return
	}
	logctx.LogEvent(sender.ctx, global.VerbosityStandard, global.InfoLog, "%s\n", text)
}

// Critical section: retry buffer and connection
func (sender *Sender) send(packet []byte) {
	sender.mutex.Lock()
	defer sender.mutex.Unlock()

	if !sender.conn.stream() {
		sender.sendDatagram(packet)
		return
	}

	attempt := sender.pending.prepare(packet)
	err := sender.transmit(attempt)
	if err == nil {
		sender.pending.succeeded()
		return
	}

	discarded := sender.pending.failed(attempt)
	if discarded != nil {
		sender.overflow(discarded)
	}
}

// Fire and forget, failures are counted and never retried
func (sender *Sender) sendDatagram(packet []byte) {
	if sender.maxDatagram > 0 && len(packet) > sender.maxDatagram {
		logctx.LogEvent(sender.ctx, global.VerbosityProgress, global.WarnLog,
			"datagram of %d bytes exceeds path payload of %d bytes\n", len(packet), sender.maxDatagram)
	}

	err := sender.transmit(packet)
	if err != nil {
		sender.metrics.bytesDropped.Add(uint64(len(packet)))
	}
}

// Connects if needed and writes data. Any failure leaves the sender disconnected.
func (sender *Sender) transmit(data []byte) (err error) {
	err = sender.conn.ensureConnected()
	if err == nil {
		err = sender.conn.send(data)
	}
	if err == nil {
		sender.metrics.packetsSent.Add(1)
		sender.metrics.bytesSent.Add(uint64(len(data)))
		logctx.LogEvent(sender.ctx, global.VerbosityData, global.InfoLog,
			"sent %d bytes to %s\n", len(data), sender.conn.address)
		return
	}

	sender.countFailure(err)
	sender.conn.close()
	logctx.LogEvent(sender.ctx, global.VerbosityStandard, global.WarnLog, "%v\n", err)
	return
}

func (sender *Sender) countFailure(err error) {
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		sender.metrics.sendFailures.Add(1)
		return
	}

	switch transportErr.Op {
	case OpConnect:
		sender.metrics.connectFailures.Add(1)
	default:
		sender.metrics.sendFailures.Add(1)
	}
}

// Retry buffer dropped everything it held
func (sender *Sender) overflow(discarded []byte) {
	sender.metrics.overflows.Add(1)
	sender.metrics.bytesDropped.Add(uint64(len(discarded)))

	logctx.LogEvent(sender.ctx, global.VerbosityStandard, global.WarnLog,
		"pending buffer exceeded %d bytes, discarded %d bytes\n", sender.pending.limit, len(discarded))

	if sender.cfg.OverflowHandler != nil {
		sender.cfg.OverflowHandler(discarded)
	}
}

// Snapshot of counters, pending size and connection state
func (sender *Sender) Stats() (stats Stats) {
	stats = Stats{
		Events:          sender.metrics.events.Load(),
		EncodeFailures:  sender.metrics.encodeFailures.Load(),
		PacketsSent:     sender.metrics.packetsSent.Load(),
		BytesSent:       sender.metrics.bytesSent.Load(),
		ConnectFailures: sender.metrics.connectFailures.Load(),
		SendFailures:    sender.metrics.sendFailures.Load(),
		Overflows:       sender.metrics.overflows.Load(),
		BytesDropped:    sender.metrics.bytesDropped.Load(),
	}

	sender.mutex.Lock()
	defer sender.mutex.Unlock()
	stats.PendingBytes = sender.pending.size()
	stats.Connected = sender.conn.connected()
	return
}

// Makes one last attempt to deliver pending bytes, then closes the connection
// and stops the private diagnostics watcher. Returns an error if pending bytes
// remain undelivered. Later emits reopen the connection.
func (sender *Sender) Close() (err error) {
	sender.mutex.Lock()
	if sender.pending.size() > 0 {
		attempt := sender.pending.prepare(nil)
		sendErr := sender.transmit(attempt)
		if sendErr == nil {
			sender.pending.succeeded()
		} else {
			discarded := sender.pending.failed(attempt)
			if discarded != nil {
				sender.overflow(discarded)
			}
			err = fmt.Errorf("%d pending bytes not delivered: %w", len(attempt), sendErr)
		}
	}
	sender.conn.close()
	sender.mutex.Unlock()

	sender.closeOnce.Do(func() {
		if sender.logDone == nil {
			return
		}
		logger := logctx.GetLogger(sender.ctx)
		close(sender.logDone)
		logger.Wake()
		logger.Wait()
	})
	return
}
