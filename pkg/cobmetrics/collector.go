package cobmetrics

import "time"

// Collector periodically refreshes the ObjectsTotal gauge by calling back
// into whatever stores are registered with it. It is deliberately generic
// over "count objects by type" rather than importing pkg/cob directly,
// since pkg/cob already depends on this package for its append/fold
// counters and a reverse import would cycle.
type Collector struct {
	counts func() (map[string]int, error)
	stopCh chan struct{}
}

// NewCollector builds a Collector that calls counts on each tick to learn
// the current number of objects per type name.
func NewCollector(counts func() (map[string]int, error)) *Collector {
	return &Collector{counts: counts, stopCh: make(chan struct{})}
}

// Start begins the periodic refresh loop.
func (c *Collector) Start(interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop ends the refresh loop.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	counts, err := c.counts()
	if err != nil {
		return
	}
	for typeName, n := range counts {
		ObjectsTotal.WithLabelValues(typeName).Set(float64(n))
	}
}
