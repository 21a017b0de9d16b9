// Registry of collected metrics grouped in collection intervals
package metrics

import (
	"strings"
	"time"
)

// Creates empty registry
func New() (registry *Registry) {
	registry = &Registry{
		slices: make(map[time.Time]map[string]map[string]Metric),
	}
	return
}

// Returns the start of the interval containing now, creating storage for it.
// A non-positive interval uses now unrounded.
func (registry *Registry) NewTimeSlice(now time.Time, interval time.Duration) (timeSlice time.Time) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	timeSlice = now
	if interval > 0 {
		timeSlice = now.Truncate(interval)
	}

	if registry.slices[timeSlice] == nil {
		registry.slices[timeSlice] = make(map[string]map[string]Metric)
	}
	return
}

// Stores metrics in an existing time slice. Same namespace and name replaces the earlier sample.
func (registry *Registry) Add(timeSlice time.Time, metrics []Metric) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	slice := registry.slices[timeSlice]
	if slice == nil {
		return
	}

	for _, metric := range metrics {
		namespace := strings.Join(metric.Namespace, "/")
		if slice[namespace] == nil {
			slice[namespace] = make(map[string]Metric)
		}
		slice[namespace][metric.Name] = metric
	}
}

// Drops time slices older than maxAge relative to currentTime
func (registry *Registry) Prune(currentTime time.Time, maxAge time.Duration) {
	registry.mu.Lock()
	defer registry.mu.Unlock()

	for timeSlice := range registry.slices {
		if currentTime.Sub(timeSlice) > maxAge {
			delete(registry.slices, timeSlice)
		}
	}
}
