// Package stats provides a mutex-guarded set of named counters shared by
// the pipeline's worker pools, with a periodic single-line terminal write
// and an end-of-run summary. It stands in for an external metrics
// collector; the pipeline's only observability need is progress counts.
package stats

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"
)

// Collector accumulates named counters and periodically rewrites a
// progress line on out. All methods are safe for concurrent use; the
// read-modify-write of each counter is the critical section.
type Collector struct {
	lock    sync.Mutex
	indexes map[string]int
	names   []string
	counts  []int64
	changed bool
	out     io.Writer
}

// NewCollector returns a Collector writing progress to out every two
// seconds while counts are changing.
func NewCollector(out io.Writer) *Collector {
	c := &Collector{
		indexes: make(map[string]int),
		out:     out,
	}
	go func() {
		tick := time.NewTicker(time.Second * 2)
		for ; ; <-tick.C {
			c.write()
		}
	}()
	return c
}

// Count adds value to the named counter, creating it at zero first if it
// has never been seen.
func (c *Collector) Count(name string, value int64) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.changed = true
	idx, ok := c.indexes[name]
	if !ok {
		idx = len(c.counts)
		c.counts = append(c.counts, 0)
		c.names = append(c.names, name)
		c.indexes[name] = idx
	}
	c.counts[idx] += value
}

// Get returns the current value of the named counter, zero if unknown.
func (c *Collector) Get(name string) int64 {
	c.lock.Lock()
	defer c.lock.Unlock()
	idx, ok := c.indexes[name]
	if !ok {
		return 0
	}
	return c.counts[idx]
}

// Summary writes one "Name: count" line per counter, sorted by name.
func (c *Collector) Summary(w io.Writer) {
	c.lock.Lock()
	lines := make([]string, len(c.names))
	for i, name := range c.names {
		lines[i] = fmt.Sprintf("%s: %d", name, c.counts[i])
	}
	c.lock.Unlock()
	sort.Strings(lines)
	for _, l := range lines {
		fmt.Fprintln(w, l)
	}
}

func (c *Collector) write() {
	sb := strings.Builder{}
	c.lock.Lock()
	if !c.changed {
		c.lock.Unlock()
		return
	}
	for i := range c.counts {
		fmt.Fprintf(&sb, "%s: %d ", c.names[i], c.counts[i])
	}
	c.changed = false
	fmt.Fprintf(c.out, "\r"+sb.String())
	c.lock.Unlock()
}
