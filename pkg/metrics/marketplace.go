package metrics

import "github.com/prometheus/client_golang/prometheus"

// MarketplaceMetrics counts listing lifecycle transitions, chat traffic and
// advisory failures. The zero value and nil receivers are no-ops.
type MarketplaceMetrics struct {
	listings      *prometheus.CounterVec
	messages      prometheus.Counter
	imageFailures *prometheus.CounterVec
	subscribers   *prometheus.GaugeVec
}

func NewMarketplaceMetrics(reg prometheus.Registerer) *MarketplaceMetrics {
	if reg == nil {
		return &MarketplaceMetrics{}
	}
	listings := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "listing_transitions_total",
		Help:      "Listing lifecycle transitions (created, sold, deleted, purged).",
	}, []string{"transition"})
	messages := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "Chat messages appended.",
	})
	imageFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_removal_failures_total",
		Help:      "Listing image removals that failed and were skipped.",
	}, []string{"path"})
	subscribers := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "live_subscribers",
		Help:      "Open live subscriptions by kind.",
	}, []string{"kind"})
	reg.MustRegister(listings, messages, imageFailures, subscribers)
	return &MarketplaceMetrics{
		listings:      listings,
		messages:      messages,
		imageFailures: imageFailures,
		subscribers:   subscribers,
	}
}

func (m *MarketplaceMetrics) ListingTransition(transition string) {
	if m == nil || m.listings == nil {
		return
	}
	m.listings.WithLabelValues(label(transition)).Inc()
}

func (m *MarketplaceMetrics) MessageSent() {
	if m == nil || m.messages == nil {
		return
	}
	m.messages.Inc()
}

func (m *MarketplaceMetrics) ImageRemovalFailed(path string) {
	if m == nil || m.imageFailures == nil {
		return
	}
	m.imageFailures.WithLabelValues(label(path)).Inc()
}

// SubscriberOpened returns the matching close func for a live subscription.
func (m *MarketplaceMetrics) SubscriberOpened(kind string) func() {
	if m == nil || m.subscribers == nil {
		return func() {}
	}
	g := m.subscribers.WithLabelValues(label(kind))
	g.Inc()
	return g.Dec
}
