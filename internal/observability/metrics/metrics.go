package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics exposes counters/histograms for the message pipeline.
type WebhookMetrics struct {
	inboundTotal   *prometheus.CounterVec
	statusTotal    *prometheus.CounterVec
	sendTotal      *prometheus.CounterVec
	replyLatency   prometheus.Histogram
	replyTokens    prometheus.Counter
	webhookLatency prometheus.Histogram
}

func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	m := &WebhookMetrics{
		inboundTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autopilot",
			Subsystem: "webhook",
			Name:      "inbound_messages_total",
			Help:      "Inbound WhatsApp messages by type and outcome",
		}, []string{"message_type", "outcome"}),
		statusTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autopilot",
			Subsystem: "webhook",
			Name:      "status_events_total",
			Help:      "Delivery/read status events by status",
		}, []string{"status"}),
		sendTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "autopilot",
			Subsystem: "outbound",
			Name:      "sends_total",
			Help:      "Outbound WhatsApp sends by result",
		}, []string{"result"}),
		replyLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autopilot",
			Subsystem: "llm",
			Name:      "reply_latency_seconds",
			Help:      "Latency of reply generation",
			Buckets:   prometheus.DefBuckets,
		}),
		replyTokens: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "autopilot",
			Subsystem: "llm",
			Name:      "reply_tokens_total",
			Help:      "Total tokens consumed generating replies",
		}),
		webhookLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "autopilot",
			Subsystem: "webhook",
			Name:      "latency_seconds",
			Help:      "Latency of webhook batch processing",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.inboundTotal, m.statusTotal, m.sendTotal, m.replyLatency, m.replyTokens, m.webhookLatency)
	return m
}

func (m *WebhookMetrics) ObserveInbound(messageType, outcome string) {
	if m == nil {
		return
	}
	m.inboundTotal.WithLabelValues(messageType, outcome).Inc()
}

func (m *WebhookMetrics) ObserveStatus(status string) {
	if m == nil {
		return
	}
	m.statusTotal.WithLabelValues(status).Inc()
}

func (m *WebhookMetrics) ObserveSend(result string) {
	if m == nil {
		return
	}
	m.sendTotal.WithLabelValues(result).Inc()
}

func (m *WebhookMetrics) ObserveReply(seconds float64, tokens int) {
	if m == nil {
		return
	}
	m.replyLatency.Observe(seconds)
	m.replyTokens.Add(float64(tokens))
}

func (m *WebhookMetrics) ObserveWebhookLatency(seconds float64) {
	if m == nil {
		return
	}
	m.webhookLatency.Observe(seconds)
}
