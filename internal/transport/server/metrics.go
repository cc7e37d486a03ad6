package server

import "github.com/prometheus/client_golang/prometheus"

// connectedPushClients — текущее число подключённых push-клиентов по транспортам.
var connectedPushClients = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "fleetsync_connected_push_clients",
		Help: "Number of currently connected push clients by transport.",
	},
	[]string{"transport"},
)

func init() {
	prometheus.MustRegister(connectedPushClients)
}
