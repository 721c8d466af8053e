// Package profiling keeps per-frame section timings and counters.
package profiling

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

var (
	mu       sync.Mutex
	timings  = make(map[string]time.Duration)
	counters = make(map[string]int)
)

// Track returns a stop function that adds the elapsed time to name.
// Usage: defer profiling.Track("renderer.Draw")()
func Track(name string) func() {
	start := time.Now()
	return func() {
		d := time.Since(start)
		mu.Lock()
		timings[name] += d
		mu.Unlock()
	}
}

// Count adds n to the named counter for the current frame.
func Count(name string, n int) {
	mu.Lock()
	counters[name] += n
	mu.Unlock()
}

// ResetFrame clears timings and counters. Call at the start of each frame.
func ResetFrame() {
	mu.Lock()
	clear(timings)
	clear(counters)
	mu.Unlock()
}

// Snapshot returns a copy of the current frame timings.
func Snapshot() map[string]time.Duration {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]time.Duration, len(timings))
	for k, v := range timings {
		out[k] = v
	}
	return out
}

// Counters returns a copy of the current frame counters.
func Counters() map[string]int {
	mu.Lock()
	defer mu.Unlock()
	out := make(map[string]int, len(counters))
	for k, v := range counters {
		out[k] = v
	}
	return out
}

type entry struct {
	name string
	dur  time.Duration
}

func sorted() []entry {
	ss := Snapshot()
	list := make([]entry, 0, len(ss))
	for k, v := range ss {
		list = append(list, entry{k, v})
	}
	slices.SortFunc(list, func(a, b entry) int {
		if c := cmp.Compare(b.dur, a.dur); c != 0 {
			return c
		}
		return strings.Compare(a.name, b.name)
	})
	return list
}

// TopN formats the n slowest sections, e.g. "renderer.Draw:4.2ms, pass.main:2.1ms".
func TopN(n int) string {
	list := sorted()
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, e := range list[:n] {
		parts = append(parts, e.name+":"+formatMs(e.dur))
	}
	return strings.Join(parts, ", ")
}

// Summary returns one line per section followed by one line per counter,
// suitable for an overlay.
func Summary(n int) []string {
	list := sorted()
	n = min(n, len(list))
	lines := make([]string, 0, n)
	for _, e := range list[:n] {
		lines = append(lines, e.name+" "+formatMs(e.dur))
	}

	cs := Counters()
	names := make([]string, 0, len(cs))
	for k := range cs {
		names = append(names, k)
	}
	slices.Sort(names)
	for _, k := range names {
		lines = append(lines, k+" "+strconv.Itoa(cs[k]))
	}
	return lines
}

// formatMs keeps one decimal and drops ".0".
func formatMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000
	s := strconv.FormatFloat(ms, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0") + "ms"
}
