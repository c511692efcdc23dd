// Package datadog sends pipeline metrics to a DogStatsD agent.
package datadog

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/DataDog/datadog-go/v5/statsd"

	"musiclake/internal/metrics"
)

// Config holds Datadog backend configuration.
type Config struct {
	// Addr is the DogStatsD address, e.g. "127.0.0.1:8125" or
	// "unix:///var/run/datadog/dsd.socket".
	Addr string

	// Namespace prefixes every metric name. A trailing dot is added when
	// missing, so "musiclake" and "musiclake." are equivalent.
	Namespace string

	// GlobalTags are attached to every metric, e.g. "env:prod".
	GlobalTags []string
}

// client is the subset of statsd.ClientInterface the backend uses.
type client interface {
	Count(name string, value int64, tags []string, rate float64) error
	Distribution(name string, value float64, tags []string, rate float64) error
	Close() error
}

// Backend implements metrics.Backend. Row counters become DogStatsD counts
// and step durations become distributions, so percentiles aggregate across
// hosts.
type Backend struct {
	client client
	// carry keeps the fractional part of counter deltas per series until it
	// adds up to a whole count.
	carry map[string]float64
}

// NewBackend dials the agent at cfg.Addr.
func NewBackend(cfg Config) (*Backend, error) {
	if cfg.Addr == "" {
		return nil, errors.New("datadog: addr is required")
	}

	opts := []statsd.Option{statsd.WithoutTelemetry()}
	if ns := cfg.Namespace; ns != "" {
		if !strings.HasSuffix(ns, ".") {
			ns += "."
		}
		opts = append(opts, statsd.WithNamespace(ns))
	}
	if len(cfg.GlobalTags) > 0 {
		opts = append(opts, statsd.WithTags(cfg.GlobalTags))
	}

	c, err := statsd.New(cfg.Addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("datadog: dial %s: %w", cfg.Addr, err)
	}
	return newBackend(c), nil
}

func newBackend(c client) *Backend {
	return &Backend{client: c, carry: map[string]float64{}}
}

// IncCounter implements metrics.Backend.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	tags := labelsToTags(labels)
	key := name + "|" + strings.Join(tags, ",")
	total := b.carry[key] + delta
	whole := math.Trunc(total)
	b.carry[key] = total - whole
	if whole != 0 {
		_ = b.client.Count(name, int64(whole), tags, 1)
	}
}

// ObserveHistogram implements metrics.Backend.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if b.client == nil {
		return
	}
	_ = b.client.Distribution(name, value, labelsToTags(labels), 1)
}

// Flush closes the client, which sends anything still buffered. The backend
// is installed once per process, so it is only flushed at shutdown.
func (b *Backend) Flush() error {
	if b.client == nil {
		return nil
	}
	return b.client.Close()
}

// labelsToTags renders labels as sorted "key:value" tags.
func labelsToTags(lbls metrics.Labels) []string {
	if len(lbls) == 0 {
		return nil
	}
	out := make([]string, 0, len(lbls))
	for k, v := range lbls {
		out = append(out, k+":"+v)
	}
	sort.Strings(out)
	return out
}
