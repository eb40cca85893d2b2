/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package dcpstats

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// PrometheusExporter periodically scrapes a JSONStats snapshot and
// republishes it as Prometheus gauges, mirroring
// ptp/sptp/stats.PrometheusExporter's scrape-then-serve loop but reading
// directly from an in-process JSONStats rather than fetching over http.
type PrometheusExporter struct {
	registry *prometheus.Registry
	source   *JSONStats
	interval time.Duration
}

// NewPrometheusExporter returns an exporter that re-scrapes source every
// scrapeInterval.
func NewPrometheusExporter(source *JSONStats, scrapeInterval time.Duration) *PrometheusExporter {
	return &PrometheusExporter{registry: prometheus.NewRegistry(), source: source, interval: scrapeInterval}
}

// Start scrapes once immediately, then serves /metrics on listenPort,
// re-scraping every interval in the background.
func (e *PrometheusExporter) Start(listenPort int) {
	go func() {
		for {
			e.scrape()
			time.Sleep(e.interval)
		}
	}()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{EnableOpenMetrics: true}))
	log.Fatal(http.ListenAndServe(fmt.Sprintf(":%d", listenPort), mux))
}

func (e *PrometheusExporter) scrape() {
	for name, value := range e.source.Snapshot() {
		gauge := prometheus.NewGauge(prometheus.GaugeOpts{Name: flattenKey(name), Help: name})
		if err := e.registry.Register(gauge); err != nil {
			are := &prometheus.AlreadyRegisteredError{}
			if errors.As(err, are) {
				gauge = are.ExistingCollector.(prometheus.Gauge)
			} else {
				log.Errorf("dcpstats: failed to register metric %s: %v", name, err)
				continue
			}
		}
		gauge.Set(float64(value))
	}
}

func flattenKey(key string) string {
	key = strings.ReplaceAll(key, " ", "_")
	key = strings.ReplaceAll(key, ".", "_")
	key = strings.ReplaceAll(key, "-", "_")
	key = strings.ReplaceAll(key, "=", "_")
	return key
}
