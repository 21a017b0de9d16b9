package fluent

import (
	"bytes"
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Turns label, timestamp and fields into one wire packet
type codec struct {
	tag       string // base tag
	msgpack   bool
	delimited bool // newline after each JSON record (stream transports)
}

func newCodec(tag string, cfg Config) (c codec) {
	c = codec{
		tag:       tag,
		msgpack:   cfg.MsgPack,
		delimited: !cfg.UDP,
	}
	return
}

// Base tag, or base tag and sub-label joined with a dot
func (c codec) label(subLabel string) (full string) {
	if subLabel == "" {
		full = c.tag
		return
	}
	full = c.tag + "." + subLabel
	return
}

// Copies fields and writes label and time last so they always win
func (c codec) record(subLabel string, timestamp any, fields map[string]any) (record map[string]any) {
	record = make(map[string]any, len(fields)+2)
	for key, value := range fields {
		record[key] = value
	}
	record[LabelKey] = c.label(subLabel)
	record[TimeKey] = timestamp
	return
}

func (c codec) format() (name string) {
	if c.msgpack {
		name = "msgpack"
	} else {
		name = "json"
	}
	return
}

// Serializes a merged record
func (c codec) encode(record map[string]any) (packet []byte, err error) {
	var buf bytes.Buffer

	if c.msgpack {
		enc := msgpack.NewEncoder(&buf)
		enc.SetSortMapKeys(true)
		err = enc.Encode(record)
	} else {
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		err = enc.Encode(record) // always appends '\n'
	}
	if err != nil {
		err = &EncodeError{Format: c.format(), Err: err}
		return
	}

	packet = buf.Bytes()
	if !c.msgpack && !c.delimited {
		// Datagrams are self-delimiting
		packet = bytes.TrimSuffix(packet, []byte("\n"))
	}
	return
}
