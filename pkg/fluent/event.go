package fluent

import (
	"fmt"
	"time"
)

// Forwards data through the process-wide sender.
// data["time"] overrides the default timestamp (now, EventTimeLayout) and
// data["label"] overrides label; the record keeps every key of data.
func PostEvent(label string, data map[string]any) (err error) {
	sender, err := Default()
	if err != nil {
		return
	}

	var timestamp any = time.Now().Format(EventTimeLayout)
	if value, ok := data[TimeKey]; ok {
		timestamp = value
	}

	if value, ok := data[LabelKey]; ok {
		switch v := value.(type) {
		case string:
			label = v
		default:
			label = fmt.Sprint(v)
		}
	}

	err = sender.EmitWithTime(label, timestamp, data)
	return
}
