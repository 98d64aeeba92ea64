package orchestrator

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes Prometheus collectors that report orchestrator activity.
type Metrics struct {
	postsPublished  prometheus.Counter
	publishFailures prometheus.Counter
	repliesSent     *prometheus.CounterVec
	replyFailures   prometheus.Counter
	commentsIgnored prometheus.Counter
}

var (
	defaultMetricsOnce sync.Once
	sharedMetrics      *Metrics
)

// defaultMetrics returns the package-level metrics instance registered with
// the global Prometheus registry. The collectors are created only once so
// repeated orchestrator construction (unit tests, re-invocation) cannot
// trip duplicate registration panics.
func defaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		sharedMetrics = MustNewMetrics(prometheus.DefaultRegisterer)
	})
	return sharedMetrics
}

// MustNewMetrics constructs a Metrics instance using the provided registerer.
// Registration errors other than AlreadyRegistered panic, surfacing
// configuration bugs early.
func MustNewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	postsPublished := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bintly",
		Subsystem: "orchestrator",
		Name:      "posts_published_total",
		Help:      "Posts published to Moltbook.",
	})
	publishFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bintly",
		Subsystem: "orchestrator",
		Name:      "publish_failures_total",
		Help:      "Publish attempts that failed at the transport.",
	})
	repliesSent := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "bintly",
		Subsystem: "orchestrator",
		Name:      "replies_sent_total",
		Help:      "Confirmed replies, by comment kind.",
	}, []string{"kind"})
	replyFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bintly",
		Subsystem: "orchestrator",
		Name:      "reply_failures_total",
		Help:      "Reply attempts with failed or unknown outcome.",
	})
	commentsIgnored := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "bintly",
		Subsystem: "orchestrator",
		Name:      "comments_ignored_total",
		Help:      "Comments classified as not answerable.",
	})

	collectors := []prometheus.Collector{postsPublished, publishFailures, repliesSent, replyFailures, commentsIgnored}
	for i, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
				switch i {
				case 0:
					postsPublished = already.ExistingCollector.(prometheus.Counter)
				case 1:
					publishFailures = already.ExistingCollector.(prometheus.Counter)
				case 2:
					repliesSent = already.ExistingCollector.(*prometheus.CounterVec)
				case 3:
					replyFailures = already.ExistingCollector.(prometheus.Counter)
				case 4:
					commentsIgnored = already.ExistingCollector.(prometheus.Counter)
				}
				continue
			}
			panic(err)
		}
	}

	return &Metrics{
		postsPublished:  postsPublished,
		publishFailures: publishFailures,
		repliesSent:     repliesSent,
		replyFailures:   replyFailures,
		commentsIgnored: commentsIgnored,
	}
}

// IncPostPublished records a confirmed publish.
func (m *Metrics) IncPostPublished() {
	if m == nil || m.postsPublished == nil {
		return
	}
	m.postsPublished.Inc()
}

// IncPublishFailure records a failed publish attempt.
func (m *Metrics) IncPublishFailure() {
	if m == nil || m.publishFailures == nil {
		return
	}
	m.publishFailures.Inc()
}

// IncReplySent records a confirmed reply of the given kind.
func (m *Metrics) IncReplySent(kind string) {
	if m == nil || m.repliesSent == nil {
		return
	}
	m.repliesSent.WithLabelValues(kind).Inc()
}

// IncReplyFailure records a reply with failed or unknown outcome.
func (m *Metrics) IncReplyFailure() {
	if m == nil || m.replyFailures == nil {
		return
	}
	m.replyFailures.Inc()
}

// IncCommentIgnored records a comment that will never be answered.
func (m *Metrics) IncCommentIgnored() {
	if m == nil || m.commentsIgnored == nil {
		return
	}
	m.commentsIgnored.Inc()
}
