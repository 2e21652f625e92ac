package metrics

import (
	"context"
	"time"

	"github.com/Eursukkul/carpark-service/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const collectTimeout = 2 * time.Second

// OccupancySource is the part of the ledger the collector reads.
type OccupancySource interface {
	CountByOccupancy(ctx context.Context) (free, occupied int64, err error)
}

// OccupancyCollector reports live space counts on every scrape.
type OccupancyCollector struct {
	source OccupancySource

	spaces   *prometheus.Desc
	capacity *prometheus.Desc
	up       *prometheus.Desc
}

func NewOccupancyCollector(source OccupancySource) *OccupancyCollector {
	return &OccupancyCollector{
		source: source,
		spaces: prometheus.NewDesc(
			"carpark_spaces",
			"Number of parking spaces by state.",
			[]string{"state"}, nil,
		),
		capacity: prometheus.NewDesc(
			"carpark_capacity",
			"Number of parking spaces in the ledger.",
			nil, nil,
		),
		up: prometheus.NewDesc(
			"carpark_ledger_up",
			"Whether the last read of the space ledger succeeded.",
			nil, nil,
		),
	}
}

func (c *OccupancyCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.spaces
	ch <- c.capacity
	ch <- c.up
}

func (c *OccupancyCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), collectTimeout)
	defer cancel()

	free, occupied, err := c.source.CountByOccupancy(ctx)
	if err != nil {
		logging.Warn(ctx).Err(err).Msg("occupancy scrape failed")
		ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 0)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(free+occupied))
	ch <- prometheus.MustNewConstMetric(c.spaces, prometheus.GaugeValue, float64(free), "available")
	ch <- prometheus.MustNewConstMetric(c.spaces, prometheus.GaugeValue, float64(occupied), "occupied")
	ch <- prometheus.MustNewConstMetric(c.up, prometheus.GaugeValue, 1)
}

// NewRegistry returns a registry with the occupancy collector and the
// standard Go runtime and process collectors.
func NewRegistry(occupancy *OccupancyCollector) *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		occupancy,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}
