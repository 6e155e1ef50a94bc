// Package metrics exposes Prometheus collectors for the realtime layer.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

const namespace = "chatline"

// Delivery outcomes recorded by the chat router.
const (
	DeliveryDelivered = "delivered"
	DeliveryOffline   = "offline"
	DeliveryDropped   = "dropped"
)

// Metrics groups the collectors and the registry they are registered on.
// Each server gets its own registry so tests can build several side by side.
type Metrics struct {
	Registry *prometheus.Registry

	OnlineUsers        prometheus.Gauge
	ActiveConnections  prometheus.Gauge
	ConnectionAttempts *prometheus.CounterVec
	PresenceBroadcasts prometheus.Counter
	Deliveries         *prometheus.CounterVec
	DroppedFrames      prometheus.Counter
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		OnlineUsers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "online_users",
			Help:      "Number of users with a live realtime connection.",
		}),
		ActiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_connections",
			Help:      "Number of open websocket connections, including superseded ones still draining.",
		}),
		ConnectionAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "connection_attempts_total",
			Help:      "Realtime connection attempts by outcome.",
		}, []string{"result"}),
		PresenceBroadcasts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "presence_broadcasts_total",
			Help:      "Number of online-set broadcasts.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "message_deliveries_total",
			Help:      "Live message pushes by outcome.",
		}, []string{"result"}),
		DroppedFrames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dropped_frames_total",
			Help:      "Outbound frames dropped because a connection's send buffer was full.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.OnlineUsers,
		m.ActiveConnections,
		m.ConnectionAttempts,
		m.PresenceBroadcasts,
		m.Deliveries,
		m.DroppedFrames,
	)
	return m
}
