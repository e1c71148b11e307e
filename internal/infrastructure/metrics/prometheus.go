package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/streamvault/upload-gateway/internal/domain/port"
	"github.com/streamvault/upload-gateway/internal/domain/vobj"
)

const defaultNamespace = "upload_gateway"

// PrometheusObserver exports upload pipeline metrics. A nil observer is a no-op.
type PrometheusObserver struct {
	stageDuration     *prometheus.HistogramVec
	uploads           *prometheus.CounterVec
	uploadedBytes     prometheus.Counter
	publishedMessages *prometheus.CounterVec
}

// NewPrometheusObserver registers the pipeline collectors on reg. Collectors
// already registered under the same name are reused.
func NewPrometheusObserver(namespace string, reg prometheus.Registerer) (*PrometheusObserver, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	stageDuration, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "stage_duration_seconds",
		Help:      "Latency of each upload pipeline stage.",
		Buckets:   []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60, 120},
	}, []string{"stage", "outcome"}))
	if err != nil {
		return nil, err
	}
	uploads, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploads_total",
		Help:      "Uploads handled, by category and outcome.",
	}, []string{"category", "outcome"}))
	if err != nil {
		return nil, err
	}
	uploadedBytes, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "uploaded_bytes_total",
		Help:      "Cumulative payload size of completed uploads.",
	}))
	if err != nil {
		return nil, err
	}
	published, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "published_messages_total",
		Help:      "Fanout messages handed to the bus, by message type and outcome.",
	}, []string{"message_type", "outcome"}))
	if err != nil {
		return nil, err
	}

	return &PrometheusObserver{
		stageDuration:     stageDuration,
		uploads:           uploads,
		uploadedBytes:     uploadedBytes,
		publishedMessages: published,
	}, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, collector C) (C, error) {
	if err := reg.Register(collector); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		var zero C
		return zero, fmt.Errorf("register upload metric: %w", err)
	}
	return collector, nil
}

func (o *PrometheusObserver) RecordStage(stage string, duration time.Duration, err error) {
	if o == nil {
		return
	}
	o.stageDuration.WithLabelValues(stage, outcome(err)).Observe(duration.Seconds())
}

func (o *PrometheusObserver) RecordUpload(category vobj.MediaCategory, result string, sizeBytes int64) {
	if o == nil {
		return
	}
	o.uploads.WithLabelValues(category.Label(), result).Inc()
	if result == port.OutcomeCompleted && sizeBytes > 0 {
		o.uploadedBytes.Add(float64(sizeBytes))
	}
}

func (o *PrometheusObserver) RecordPublish(eventType string, err error) {
	if o == nil {
		return
	}
	o.publishedMessages.WithLabelValues(eventType, outcome(err)).Inc()
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

var _ port.UploadObserver = (*PrometheusObserver)(nil)
