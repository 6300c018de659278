package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsReceived = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_webhook_events_received_total",
		Help: "The total number of webhook events received, by event kind",
	}, []string{"event"})
	eventsDropped = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notify_events_dropped_total",
		Help: "The total number of events dropped before delivery, by reason",
	}, []string{"reason"})
	notificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_notifications_sent_total",
		Help: "The total number of messages delivered to the channel",
	})
	deliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_delivery_failures_total",
		Help: "The total number of failed delivery attempts",
	})
	persistenceFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "notify_store_persistence_failures_total",
		Help: "The total number of failed correlation store writes",
	})
)
