package fluent

// Unsent bytes carried from a failed send into the next one.
// Payloads over limit are discarded whole, never truncated.
type pendingBuffer struct {
	data  []byte
	limit int
}

// Returns pending bytes followed by packet; pending is emptied until the
// outcome is reported through succeeded or failed.
func (buf *pendingBuffer) prepare(packet []byte) (attempt []byte) {
	if len(buf.data) == 0 {
		attempt = packet
	} else {
		attempt = append(buf.data, packet...)
	}
	buf.data = nil
	return
}

func (buf *pendingBuffer) succeeded() {
	buf.data = nil
}

// Keeps attempt for the next send, or drops all of it when over the limit.
// Returns the dropped payload, nil when kept.
func (buf *pendingBuffer) failed(attempt []byte) (discarded []byte) {
	if len(attempt) > buf.limit {
		buf.data = nil
		discarded = attempt
		return
	}
	buf.data = attempt
	return
}

func (buf *pendingBuffer) size() (n int) {
	n = len(buf.data)
	return
}
