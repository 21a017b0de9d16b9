package metrics

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"
)

// Label carrying the registry namespace on exported samples
const NamespaceLabel string = "namespace"

// Numeric value of a raw sample, false for unsupported types
func toFloat(raw any) (value float64, ok bool) {
	ok = true
	switch v := raw.(type) {
	case uint64:
		value = float64(v)
	case uint32:
		value = float64(v)
	case int:
		value = float64(v)
	case int64:
		value = float64(v)
	case float64:
		value = v
	case bool:
		if v {
			value = 1
		}
	default:
		ok = false
	}
	return
}

// Exposition safe metric name (letters, digits and underscores)
func familyName(prefix string, name string) (full string) {
	full = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, prefix+"_"+name)
	return
}

// Groups metrics into Prometheus families named prefix_name, one sample per namespace.
// Families are sorted by name. Metrics without a numeric value are skipped.
func Families(prefix string, metrics []Metric) (families []*dto.MetricFamily) {
	byName := make(map[string]*dto.MetricFamily)

	for _, metric := range metrics {
		value, ok := toFloat(metric.Value.Raw)
		if !ok {
			continue
		}

		name := familyName(prefix, metric.Name)
		family := byName[name]
		if family == nil {
			family = &dto.MetricFamily{
				Name: proto.String(name),
				Help: proto.String(metric.Description),
				Type: dto.MetricType_GAUGE.Enum(),
			}
			if metric.Type == Counter {
				family.Type = dto.MetricType_COUNTER.Enum()
			}
			byName[name] = family
		}

		sample := &dto.Metric{
			Label: []*dto.LabelPair{{
				Name:  proto.String(NamespaceLabel),
				Value: proto.String(strings.Join(metric.Namespace, "/")),
			}},
		}
		if !metric.Timestamp.IsZero() {
			sample.TimestampMs = proto.Int64(metric.Timestamp.UnixMilli())
		}
		if metric.Type == Counter {
			sample.Counter = &dto.Counter{Value: proto.Float64(value)}
		} else {
			sample.Gauge = &dto.Gauge{Value: proto.Float64(value)}
		}
		family.Metric = append(family.Metric, sample)
	}

	for _, family := range byName {
		families = append(families, family)
	}
	sort.Slice(families, func(i, j int) bool {
		return families[i].GetName() < families[j].GetName()
	})
	return
}

// Writes families in the Prometheus text exposition format
func WriteText(output io.Writer, families []*dto.MetricFamily) (err error) {
	for _, family := range families {
		_, err = expfmt.MetricFamilyToText(output, family)
		if err != nil {
			err = fmt.Errorf("failed to format metric family %s: %w", family.GetName(), err)
			return
		}
	}
	return
}

// Replaces the textfile at path with the given metrics (written to a temporary file then renamed)
func WriteTextfile(path string, prefix string, metrics []Metric) (err error) {
	var buf bytes.Buffer
	err = WriteText(&buf, Families(prefix, metrics))
	if err != nil {
		return
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		err = fmt.Errorf("failed to create temporary metrics file: %w", err)
		return
	}
	defer os.Remove(tmp.Name())

	_, err = tmp.Write(buf.Bytes())
	if err != nil {
		tmp.Close()
		err = fmt.Errorf("failed to write metrics file: %w", err)
		return
	}
	err = tmp.Close()
	if err != nil {
		err = fmt.Errorf("failed to write metrics file: %w", err)
		return
	}

	err = os.Chmod(tmp.Name(), 0644)
	if err != nil {
		err = fmt.Errorf("failed to set metrics file permissions: %w", err)
		return
	}

	err = os.Rename(tmp.Name(), path)
	if err != nil {
		err = fmt.Errorf("failed to replace metrics file: %w", err)
		return
	}
	return
}
