// Package web serves the operator HTTP API: devices, topics, transports,
// server-side publishing and Prometheus metrics.
package web

import (
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mbocsi/avi/server"
	"github.com/mbocsi/avi/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// WebClient serves the HTTP API over the service layer
type WebClient struct {
	services *services.ServiceContainer
	metrics  *server.Metrics

	sseMutex       sync.RWMutex
	sseConnections map[string]map[*SSEConnection]struct{}
}

// NewWebClient creates the API server. metrics may be nil, in which case
// /metrics is not mounted.
func NewWebClient(serviceContainer *services.ServiceContainer, metrics *server.Metrics) *WebClient {
	return &WebClient{
		services:       serviceContainer,
		metrics:        metrics,
		sseConnections: make(map[string]map[*SSEConnection]struct{}),
	}
}

// Routes returns the HTTP routes for the API
func (w *WebClient) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/", w.HandleHome)
	r.Get("/devices", w.HandleDevices)
	r.Get("/devices/{id}", w.HandleDeviceDetail)
	r.Get("/devices/{id}/sensors", w.HandleDeviceSensors)
	r.Get("/topics", w.HandleTopics)
	r.Get("/events/*", w.HandleTopicEvents)
	r.Post("/publish/*", w.HandlePublish)
	r.Post("/request/*", w.HandleRequest)
	r.Get("/transports", w.HandleTransports)
	r.Get("/transports/{i}", w.HandleTransportDetail)
	if w.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(w.metrics.Registry, promhttp.HandlerOpts{}))
	}
	return r
}
