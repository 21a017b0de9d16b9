package ingest

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// Record keys produced for unstructured lines
const (
	MessageKey string = "message"
	HostKey    string = "host"
	IdentKey   string = "ident"
	PIDKey     string = "pid"
)

const syslogStampLayout string = "Jan _2 15:04:05"

// Turns one input line into record fields.
// A JSON object becomes the record, a traditional syslog line is split into
// host/ident/pid/message, anything else is sent as {"message": line}.
// structured is false only for the plain message fallback.
func ParseLine(rawLine string) (fields map[string]any, structured bool) {
	line := strings.TrimSpace(rawLine)

	if strings.HasPrefix(line, "{") {
		err := json.Unmarshal([]byte(line), &fields)
		if err == nil {
			structured = true
			return
		}
		fields = nil
	}

	fields, structured = parseSyslog(line)
	if structured {
		return
	}

	fields = map[string]any{MessageKey: line}
	return
}

// Format: "Jan _2 15:04:05 host ident[pid]: message"
func parseSyslog(line string) (fields map[string]any, ok bool) {
	if len(line) < len(syslogStampLayout) {
		return
	}
	_, err := time.Parse(syslogStampLayout, line[:len(syslogStampLayout)])
	if err != nil {
		return
	}
	rest := strings.TrimSpace(line[len(syslogStampLayout):])

	hostEnd := strings.IndexByte(rest, ' ')
	if hostEnd <= 0 {
		return
	}
	host := rest[:hostEnd]
	rest = strings.TrimSpace(rest[hostEnd+1:])

	colon := strings.Index(rest, ":")
	if colon <= 0 {
		return
	}
	header := rest[:colon]

	fields = map[string]any{
		HostKey:    host,
		IdentKey:   header,
		MessageKey: strings.TrimSpace(rest[colon+1:]),
	}

	// ident[pid]
	if lb := strings.IndexByte(header, '['); lb > 0 {
		fields[IdentKey] = header[:lb]
		if rb := strings.IndexByte(header, ']'); rb > lb+1 {
			pid, err := strconv.Atoi(header[lb+1 : rb])
			if err == nil {
				fields[PIDKey] = pid
			}
		}
	}
	ok = true
	return
}
