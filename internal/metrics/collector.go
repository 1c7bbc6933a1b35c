package metrics

import (
	"time"

	"thumbnail-service/internal/logging"
)

// StatsProvider interface for collecting stats
type StatsProvider interface {
	GetStats() Stats
}

// Stats holds the current statistics
type Stats struct {
	StoredFiles      int
	CacheEntries     int
	CacheWeightBytes int64
	CacheMaxBytes    int64
	ActiveWorkers    int
}

// Collector periodically collects and updates metrics
type Collector struct {
	statsProvider StatsProvider
	interval      time.Duration
	stopChan      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Collector{
		statsProvider: provider,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	go c.collectLoop()
}

// Stop stops the metrics collection
func (c *Collector) Stop() {
	close(c.stopChan)
}

func (c *Collector) collectLoop() {
	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	if c.statsProvider == nil {
		return
	}

	stats := c.statsProvider.GetStats()

	StoredFiles.Set(float64(stats.StoredFiles))
	ThumbnailCacheEntries.Set(float64(stats.CacheEntries))
	ThumbnailCacheWeight.Set(float64(stats.CacheWeightBytes))
	ThumbnailCacheMaxWeight.Set(float64(stats.CacheMaxBytes))
	ThumbnailWorkersActive.Set(float64(stats.ActiveWorkers))

	logging.Debug("Metrics collected: files=%d, cache entries=%d, cache weight=%d/%d bytes",
		stats.StoredFiles, stats.CacheEntries, stats.CacheWeightBytes, stats.CacheMaxBytes)
}
