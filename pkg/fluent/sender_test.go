package fluent

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fluentsend/internal/global"
	"fluentsend/internal/logctx"
	"fmt"
	"net"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeLines(t *testing.T, wire []byte) (records []map[string]any) {
	t.Helper()
	for _, line := range bytes.Split(bytes.TrimSuffix(wire, []byte("\n")), []byte("\n")) {
		var record map[string]any
		if err := json.Unmarshal(line, &record); err != nil {
			t.Fatalf("invalid record %q: %v", line, err)
		}
		records = append(records, record)
	}
	return
}

func TestSenderRetryAfterOutage(t *testing.T) {
	transport := newMockTransport(false)
	sender := New("app", Config{BufferLimit: 1024, Dial: transport.dial})

	if err := sender.EmitWithTime("info", 100, map[string]any{"msg": "a"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := sender.EmitWithTime("info", 101, map[string]any{"msg": "b"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(transport.recorded()) != 0 {
		t.Fatal("nothing should reach the collector while it is down")
	}

	transport.setUp(true)
	if err := sender.EmitWithTime("info", 102, map[string]any{"msg": "c"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writes := transport.recorded()
	if len(writes) != 1 {
		t.Fatalf("got %d writes, want 1", len(writes))
	}

	records := decodeLines(t, writes[0])
	if len(records) != 3 {
		t.Fatalf("got %d records, want 3", len(records))
	}
	for i, want := range []string{"a", "b", "c"} {
		if records[i]["msg"] != want {
			t.Errorf("record %d msg = %v, want %s", i, records[i]["msg"], want)
		}
		if records[i]["label"] != "app.info" {
			t.Errorf("record %d label = %v", i, records[i]["label"])
		}
		if records[i]["time"] != float64(100+i) {
			t.Errorf("record %d time = %v", i, records[i]["time"])
		}
	}

	stats := sender.Stats()
	if stats.PendingBytes != 0 || !stats.Connected || stats.PacketsSent != 1 {
		t.Errorf("unexpected stats after recovery: %+v", stats)
	}
	if stats.ConnectFailures != 3 {
		t.Errorf("connect failures = %d, want 3", stats.ConnectFailures)
	}
}

func TestSenderRetryPreservesOrderAfterWriteFailure(t *testing.T) {
	transport := newMockTransport(true)
	sender := New("app", Config{Dial: transport.dial})

	transport.setUp(false)
	_ = sender.EmitWithTime("", 1, map[string]any{"seq": "A"})
	transport.setUp(true)
	_ = sender.EmitWithTime("", 2, map[string]any{"seq": "B"})

	records := decodeLines(t, transport.wire())
	if len(records) != 2 || records[0]["seq"] != "A" || records[1]["seq"] != "B" {
		t.Fatalf("unexpected wire order: %v", records)
	}

	stats := sender.Stats()
	if stats.SendFailures != 1 {
		t.Errorf("send failures = %d, want 1", stats.SendFailures)
	}
	if transport.dialCount() != 2 {
		t.Errorf("dial count = %d, want reconnect after failure", transport.dialCount())
	}
}

func TestSenderOverflowDiscardsEverything(t *testing.T) {
	fields := map[string]any{"n": 1}
	packet, err := newCodec("app", Config{}).encode(newCodec("app", Config{}).record("", 1, fields))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	size := len(packet)

	var discarded []byte
	transport := newMockTransport(false)
	sender := New("app", Config{
		BufferLimit:     3*size + size/2,
		Dial:            transport.dial,
		OverflowHandler: func(data []byte) { discarded = append([]byte(nil), data...) },
	})

	for i := 0; i < 3; i++ {
		_ = sender.EmitWithTime("", 1, fields)
	}
	if got := sender.Stats().PendingBytes; got != 3*size {
		t.Fatalf("pending = %d, want %d", got, 3*size)
	}

	_ = sender.EmitWithTime("", 1, fields)

	stats := sender.Stats()
	if stats.PendingBytes != 0 {
		t.Errorf("pending = %d, want 0 after overflow", stats.PendingBytes)
	}
	if stats.Overflows != 1 || stats.BytesDropped != uint64(4*size) {
		t.Errorf("unexpected overflow counters: %+v", stats)
	}
	if len(discarded) != 4*size {
		t.Errorf("handler got %d bytes, want %d", len(discarded), 4*size)
	}

	// Buffer starts over after discard
	_ = sender.EmitWithTime("", 1, fields)
	if got := sender.Stats().PendingBytes; got != size {
		t.Errorf("pending = %d, want %d", got, size)
	}
}

func TestSenderConstructionNeverFails(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	sender := New("app", Config{Host: "127.0.0.1", Port: port, Timeout: 500 * time.Millisecond})
	if sender == nil {
		t.Fatal("nil sender")
	}
	defer sender.Close()

	stats := sender.Stats()
	if stats.Connected || stats.ConnectFailures != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	if err := sender.Emit("info", map[string]any{"k": "v"}); err != nil {
		t.Errorf("transport failure leaked to caller: %v", err)
	}
	if sender.Stats().PendingBytes == 0 {
		t.Error("record not kept for retry")
	}
}

func TestSenderEncodeError(t *testing.T) {
	transport := newMockTransport(true)
	sender := New("app", Config{Dial: transport.dial})

	err := sender.Emit("info", map[string]any{"bad": func() {}})

	var encodeErr *EncodeError
	if !errors.As(err, &encodeErr) {
		t.Fatalf("expected EncodeError, got %v", err)
	}
	if len(transport.recorded()) != 0 {
		t.Error("nothing should be written for an unencodable record")
	}
	stats := sender.Stats()
	if stats.EncodeFailures != 1 || stats.PendingBytes != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestSenderCallerFieldsUntouched(t *testing.T) {
	transport := newMockTransport(true)
	sender := New("app", Config{Dial: transport.dial})

	fields := map[string]any{"label": "mine", "time": "mine", "k": "v"}
	_ = sender.EmitWithTime("info", 7, fields)

	if fields["label"] != "mine" || fields["time"] != "mine" || len(fields) != 3 {
		t.Errorf("caller map changed: %v", fields)
	}

	records := decodeLines(t, transport.wire())
	if records[0]["label"] != "app.info" || records[0]["time"] != float64(7) {
		t.Errorf("reserved keys not overwritten: %v", records[0])
	}
}

func TestSenderConcurrentEmits(t *testing.T) {
	transport := newMockTransport(true)
	transport.writeDelay = 100 * time.Microsecond
	sender := New("app", Config{Dial: transport.dial})

	const workers = 16
	const perWorker = 25

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				_ = sender.Emit("load", map[string]any{"worker": worker, "i": i})
			}
		}(w)
	}
	wg.Wait()

	transport.mu.Lock()
	overlapped := transport.overlapped
	transport.mu.Unlock()
	if overlapped {
		t.Error("socket writes overlapped")
	}

	records := decodeLines(t, transport.wire())
	if len(records) != workers*perWorker {
		t.Fatalf("got %d records, want %d", len(records), workers*perWorker)
	}

	// Per-worker order is kept
	next := make(map[float64]float64)
	for _, record := range records {
		worker := record["worker"].(float64)
		if record["i"].(float64) != next[worker] {
			t.Fatalf("worker %v out of order: got %v, want %v", worker, record["i"], next[worker])
		}
		next[worker]++
	}
}

func TestSenderTCPFraming(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer listener.Close()

	lines := make(chan string, 10)
	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		scanner := bufio.NewScanner(conn)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	sender := New("app", Config{Host: "127.0.0.1", Port: listener.Addr().(*net.TCPAddr).Port})
	for i := 0; i < 3; i++ {
		if err := sender.EmitWithTime("info", i, map[string]any{"text": fmt.Sprintf("line\twith %d", i)}); err != nil {
			t.Fatalf("emit: %v", err)
		}
	}
	if err := sender.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	var got []string
	timeout := time.After(2 * time.Second)
	for len(got) < 3 {
		select {
		case line, ok := <-lines:
			if !ok {
				t.Fatalf("connection closed after %d lines", len(got))
			}
			got = append(got, line)
		case <-timeout:
			t.Fatalf("timed out after %d lines", len(got))
		}
	}

	for i, line := range got {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			t.Fatalf("line %d not a JSON record: %q", i, line)
		}
		if record["text"] != fmt.Sprintf("line\twith %d", i) {
			t.Errorf("line %d text = %v", i, record["text"])
		}
	}
}

func TestSenderUDPNeverBuffers(t *testing.T) {
	transport := newMockTransport(false)
	sender := New("app", Config{Host: "127.0.0.1", Port: 5160, UDP: true, Dial: transport.dial})

	_ = sender.EmitWithTime("", 1, map[string]any{"seq": "lost"})

	stats := sender.Stats()
	if stats.PendingBytes != 0 {
		t.Errorf("udp payload buffered: %d bytes", stats.PendingBytes)
	}
	if stats.BytesDropped == 0 {
		t.Error("dropped datagram not counted")
	}

	transport.setUp(true)
	_ = sender.EmitWithTime("", 2, map[string]any{"seq": "kept"})

	writes := transport.recorded()
	if len(writes) != 1 {
		t.Fatalf("got %d datagrams, want 1", len(writes))
	}
	if bytes.HasSuffix(writes[0], []byte("\n")) {
		t.Error("datagram should not be newline terminated")
	}
	if !strings.Contains(string(writes[0]), `"seq":"kept"`) || strings.Contains(string(writes[0]), "lost") {
		t.Errorf("unexpected datagram %q", writes[0])
	}
}

func TestSenderCloseFlushesPending(t *testing.T) {
	transport := newMockTransport(false)
	sender := New("app", Config{Dial: transport.dial})
	_ = sender.EmitWithTime("", 1, map[string]any{"seq": "A"})

	// Collector still down
	if err := sender.Close(); err == nil {
		t.Fatal("expected error for undelivered bytes")
	}
	if sender.Stats().PendingBytes == 0 {
		t.Fatal("pending bytes lost on failed close")
	}

	transport.setUp(true)
	if err := sender.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records := decodeLines(t, transport.wire())
	if len(records) != 1 || records[0]["seq"] != "A" {
		t.Errorf("unexpected flush: %v", records)
	}

	// Nothing left, repeated close is harmless
	if err := sender.Close(); err != nil {
		t.Errorf("second close: %v", err)
	}
	if sender.Stats().Connected {
		t.Error("connection open after close")
	}
}

func TestSenderVerboseEcho(t *testing.T) {
	var diag syncBuffer
	transport := newMockTransport(true)
	sender := New("app", Config{Verbose: true, Diagnostics: &diag, Dial: transport.dial})

	_ = sender.EmitWithTime("info", 100, map[string]any{"msg": "a"})
	if err := sender.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	want := `{"label":"app.info","msg":"a","time":100}`
	if !strings.Contains(diag.String(), want) {
		t.Errorf("diagnostics %q missing echo %s", diag.String(), want)
	}
}

func TestSenderReusesContextLogger(t *testing.T) {
	var out syncBuffer
	done := make(chan struct{})
	logger := logctx.NewLogger("test", global.VerbosityStandard, done)
	logctx.StartWatcher(logger, &out)
	ctx := logctx.WithLogger(context.Background(), logger)

	transport := newMockTransport(false)
	sender := NewWithContext(ctx, "app", Config{Verbose: true, Dial: transport.dial})
	if sender.logDone != nil {
		t.Error("sender started its own watcher despite context logger")
	}
	_ = sender.Emit("info", map[string]any{"k": "v"})

	close(done)
	logger.Wake()
	logger.Wait()

	output := out.String()
	if !strings.Contains(output, global.NSSender) {
		t.Errorf("missing sender namespace tag in %q", output)
	}
	if !strings.Contains(output, global.WarnLog) {
		t.Errorf("missing transport warning in %q", output)
	}
}
