package metrics

import (
	"sort"
	"strings"
	"time"
)

// Exact or prefix namespace match. Empty query matches all.
func matchesNamespace(metricNS, queryNS []string) (matches bool) {
	if len(queryNS) > len(metricNS) {
		return
	}
	for i := range queryNS {
		if metricNS[i] != queryNS[i] {
			return
		}
	}
	matches = true
	return
}

// Slice starts inside [start, end] (zero bounds are open), oldest first
func (registry *Registry) sliceTimes(start, end time.Time) (times []time.Time) {
	for ts := range registry.slices {
		if !start.IsZero() && ts.Before(start) {
			continue
		}
		if !end.IsZero() && ts.After(end) {
			continue
		}
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool {
		return times[i].Before(times[j])
	})
	return
}

// Orders metrics of one slice by namespace then name
func sortMetrics(metrics []Metric) {
	sort.Slice(metrics, func(i, j int) bool {
		nsI := strings.Join(metrics[i].Namespace, "/")
		nsJ := strings.Join(metrics[j].Namespace, "/")
		if nsI != nsJ {
			return nsI < nsJ
		}
		return metrics[i].Name < metrics[j].Name
	})
}

// Returns metrics with matching name (empty for all) under namespacePrefix,
// optionally bounded by a time window. Oldest slice first.
func (registry *Registry) Search(name string, namespacePrefix []string, start, end time.Time) (results []Metric) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	for _, ts := range registry.sliceTimes(start, end) {
		var found []Metric
		for nsStr, byName := range registry.slices[ts] {
			if !matchesNamespace(strings.Split(nsStr, "/"), namespacePrefix) {
				continue
			}
			for metricName, metric := range byName {
				if name == "" || metricName == name {
					found = append(found, metric)
				}
			}
		}
		sortMetrics(found)
		results = append(results, found...)
	}
	return
}

// Metrics of the newest non-empty time slice
func (registry *Registry) Latest() (results []Metric) {
	registry.mu.RLock()
	defer registry.mu.RUnlock()

	times := registry.sliceTimes(time.Time{}, time.Time{})
	for i := len(times) - 1; i >= 0; i-- {
		for _, byName := range registry.slices[times[i]] {
			for _, metric := range byName {
				results = append(results, metric)
			}
		}
		if len(results) > 0 {
			break
		}
	}
	sortMetrics(results)
	return
}
