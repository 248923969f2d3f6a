package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Relay metrics
var (
	ConnectedParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "relay_connected_participants",
		Help: "Current number of participants connected to this node",
	})

	EnvelopesRelayedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_envelopes_relayed_total",
		Help: "Total number of call signaling envelopes forwarded",
	}, []string{"type"})

	EnvelopesUndeliverableTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_envelopes_undeliverable_total",
		Help: "Total number of envelopes whose recipient was offline",
	}, []string{"type"})

	EnvelopesRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_envelopes_rejected_total",
		Help: "Total number of malformed envelopes received from clients",
	}, []string{"reason"})

	ChatMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_chat_messages_total",
		Help: "Total number of chat messages relayed",
	})

	SlowClientsDroppedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "relay_slow_clients_dropped_total",
		Help: "Total number of connections dropped because their send buffer was full",
	})

	BridgeFramesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_bridge_frames_total",
		Help: "Total number of frames exchanged with other relay nodes",
	}, []string{"direction"})
)
