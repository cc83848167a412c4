package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RidesRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{Namespace: "aubus", Name: "rides_requested_total", Help: "Ride requests received, matched or not"})
	RidesMatchedTotal   = promauto.NewCounter(prometheus.CounterOpts{Namespace: "aubus", Name: "rides_matched_total", Help: "Ride requests that found at least one eligible driver"})
	OffersTotal         = promauto.NewCounter(prometheus.CounterOpts{Namespace: "aubus", Name: "offers_total", Help: "Ride offers fanned out to drivers"})
	AcceptRacesTotal    = promauto.NewCounter(prometheus.CounterOpts{Namespace: "aubus", Name: "accept_races_total", Help: "Accept attempts that lost to an earlier acceptance"})
	PushesDroppedTotal  = promauto.NewCounter(prometheus.CounterOpts{Namespace: "aubus", Name: "pushes_dropped_total", Help: "Async pushes dropped because a client queue was full"})
	ClientsConnected    = promauto.NewGauge(prometheus.GaugeOpts{Namespace: "aubus", Name: "clients_connected", Help: "Currently connected clients"})

	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{Namespace: "aubus", Name: "requests_total", Help: "Protocol requests handled, by type"},
		[]string{"type"},
	)
)
