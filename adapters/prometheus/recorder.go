package prometheus

import (
	"context"
	"strings"
	"sync"

	"github.com/goliatone/go-resources/core"
	promclient "github.com/prometheus/client_golang/prometheus"
)

// DefaultLabels are the tags core.Observer attaches to operation metrics.
var DefaultLabels = []string{"operation", "status", "error_kind", "collection"}

// Recorder implements core.MetricsRecorder on top of a prometheus registerer.
// Every metric name gets one vector with a fixed label set; tags outside the
// set are dropped and missing ones are recorded as empty.
type Recorder struct {
	registerer promclient.Registerer
	namespace  string
	labels     []string
	buckets    []float64

	mu         sync.Mutex
	counters   map[string]*promclient.CounterVec
	histograms map[string]*promclient.HistogramVec
	logger     core.Logger
}

type Option func(*Recorder)

func WithNamespace(namespace string) Option {
	return func(r *Recorder) {
		r.namespace = sanitize(namespace)
	}
}

func WithLabels(labels ...string) Option {
	return func(r *Recorder) {
		if len(labels) > 0 {
			r.labels = append([]string(nil), labels...)
		}
	}
}

// WithBuckets sets the histogram buckets, in milliseconds.
func WithBuckets(buckets ...float64) Option {
	return func(r *Recorder) {
		if len(buckets) > 0 {
			r.buckets = append([]float64(nil), buckets...)
		}
	}
}

func WithLogger(logger core.Logger) Option {
	return func(r *Recorder) {
		r.logger = logger
	}
}

func NewRecorder(registerer promclient.Registerer, opts ...Option) *Recorder {
	if registerer == nil {
		registerer = promclient.DefaultRegisterer
	}
	r := &Recorder{
		registerer: registerer,
		labels:     append([]string(nil), DefaultLabels...),
		buckets:    []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500},
		counters:   map[string]*promclient.CounterVec{},
		histograms: map[string]*promclient.HistogramVec{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

func (r *Recorder) IncCounter(_ context.Context, name string, value int64, tags map[string]string) {
	if r == nil || value < 0 {
		return
	}
	vec := r.counter(name)
	if vec == nil {
		return
	}
	vec.WithLabelValues(r.values(tags)...).Add(float64(value))
}

func (r *Recorder) ObserveHistogram(_ context.Context, name string, value float64, tags map[string]string) {
	if r == nil {
		return
	}
	vec := r.histogram(name)
	if vec == nil {
		return
	}
	vec.WithLabelValues(r.values(tags)...).Observe(value)
}

func (r *Recorder) counter(name string) *promclient.CounterVec {
	name = sanitize(name)
	if name == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.counters[name]; ok {
		return vec
	}
	vec := promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Resource operation counter " + name + ".",
	}, r.labels)
	if err := r.registerer.Register(vec); err != nil {
		existing, ok := alreadyRegistered[*promclient.CounterVec](err)
		if !ok {
			r.warn("prometheus counter registration failed", name, err)
			return nil
		}
		vec = existing
	}
	r.counters[name] = vec
	return vec
}

func (r *Recorder) histogram(name string) *promclient.HistogramVec {
	name = sanitize(name)
	if name == "" {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if vec, ok := r.histograms[name]; ok {
		return vec
	}
	vec := promclient.NewHistogramVec(promclient.HistogramOpts{
		Namespace: r.namespace,
		Name:      name,
		Help:      "Resource operation histogram " + name + ".",
		Buckets:   r.buckets,
	}, r.labels)
	if err := r.registerer.Register(vec); err != nil {
		existing, ok := alreadyRegistered[*promclient.HistogramVec](err)
		if !ok {
			r.warn("prometheus histogram registration failed", name, err)
			return nil
		}
		vec = existing
	}
	r.histograms[name] = vec
	return vec
}

func (r *Recorder) values(tags map[string]string) []string {
	values := make([]string, len(r.labels))
	for i, label := range r.labels {
		values[i] = strings.TrimSpace(tags[label])
	}
	return values
}

func (r *Recorder) warn(message, name string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.Warn(message, "metric", name, "error", err)
}

func alreadyRegistered[V promclient.Collector](err error) (V, bool) {
	var zero V
	are, ok := err.(promclient.AlreadyRegisteredError)
	if !ok {
		return zero, false
	}
	existing, ok := are.ExistingCollector.(V)
	return existing, ok
}

// sanitize maps an observer metric name such as "resources.auth.sign_up.total"
// onto the prometheus name charset.
func sanitize(name string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	var b strings.Builder
	b.Grow(len(name) + 1)
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == ':':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out != "" && out[0] >= '0' && out[0] <= '9' {
		out = "_" + out
	}
	return out
}

var _ core.MetricsRecorder = (*Recorder)(nil)
