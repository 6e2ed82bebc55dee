package metrics

import "github.com/prometheus/client_golang/prometheus"

func SelectionsCounter(c *Collector, identity string) prometheus.Collector {
	return c.prometheus.selections.WithLabelValues(identity)
}
