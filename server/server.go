// Package server exposes a run-scoped status HTTP server: live residencies,
// the ledger so far, and prometheus metrics for a run in flight.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.uber.org/config"
	"go.uber.org/fx"

	"github.com/vageesanr/food-order-system/kitchen"
)

// StatusServer serves read-only views of the kitchen and ledger. Snapshots go
// through the engine's shared-mode lock; the server never mutates run state.
type StatusServer struct {
	router  *mux.Router
	server  *http.Server
	kitchen *kitchen.Kitchen
	ledger  *kitchen.Ledger
	log     zerolog.Logger
	port    int
	enabled bool
}

type Config struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// allow zero values and set defaults
func loadConfig(provider config.Provider) Config {
	var cfg Config
	provider.Get("server").Populate(&cfg)
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	return cfg
}

func (s *StatusServer) HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("ok"))
}

// OrderStatus is the JSON view of one current residency.
type OrderStatus struct {
	OrderID   string  `json:"orderID"`
	Name      string  `json:"name"`
	Temp      string  `json:"temp"`
	Area      string  `json:"area"`
	Freshness float64 `json:"freshness"`
	EnteredAt int64   `json:"enteredAt"`
}

type ListOrdersResponse struct {
	Orders []OrderStatus `json:"orders"`
}

func (s *StatusServer) OrdersHandler(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UnixMicro()
	residents := s.kitchen.Residents(now)
	res := ListOrdersResponse{Orders: make([]OrderStatus, len(residents))}
	for i, rs := range residents {
		res.Orders[i] = OrderStatus{
			OrderID:   rs.Order.ID,
			Name:      rs.Order.Name,
			Temp:      string(rs.Order.Temp),
			Area:      string(rs.Area),
			Freshness: rs.Freshness,
			EnteredAt: rs.EnteredAt,
		}
	}
	writeJSON(w, res)
}

// LedgerEntry is the JSON view of one ledger entry.
type LedgerEntry struct {
	Timestamp int64  `json:"timestamp"`
	OrderID   string `json:"id"`
	Action    string `json:"action"`
	Target    string `json:"target"`
}

type LedgerResponse struct {
	Entries []LedgerEntry `json:"entries"`
}

func (s *StatusServer) LedgerHandler(w http.ResponseWriter, r *http.Request) {
	sorted := s.ledger.Sorted()
	res := LedgerResponse{Entries: make([]LedgerEntry, len(sorted))}
	for i, e := range sorted {
		res.Entries[i] = LedgerEntry{
			Timestamp: e.Timestamp,
			OrderID:   e.OrderID,
			Action:    string(e.Action),
			Target:    string(e.Target),
		}
	}
	writeJSON(w, res)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
	}
}

// runCollector exports the run's state as prometheus metrics. Values are read
// at scrape time so nothing on the hot path touches a metric.
type runCollector struct {
	kitchen *kitchen.Kitchen
	ledger  *kitchen.Ledger

	residents *prometheus.Desc
	capacity  *prometheus.Desc
	actions   *prometheus.Desc
}

func newRunCollector(k *kitchen.Kitchen, l *kitchen.Ledger) *runCollector {
	return &runCollector{
		kitchen: k,
		ledger:  l,
		residents: prometheus.NewDesc(
			"kitchen_area_residents", "Current residents per storage area.",
			[]string{"area"}, nil),
		capacity: prometheus.NewDesc(
			"kitchen_area_capacity", "Configured capacity per storage area.",
			[]string{"area"}, nil),
		actions: prometheus.NewDesc(
			"kitchen_ledger_actions_total", "Ledger entries per action kind.",
			[]string{"action"}, nil),
	}
}

func (c *runCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.residents
	ch <- c.capacity
	ch <- c.actions
}

func (c *runCollector) Collect(ch chan<- prometheus.Metric) {
	for area, count := range c.kitchen.Counts() {
		ch <- prometheus.MustNewConstMetric(c.residents, prometheus.GaugeValue, float64(count), string(area))
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(c.kitchen.Capacity(area)), string(area))
	}
	for action, count := range c.ledger.ActionCounts() {
		ch <- prometheus.MustNewConstMetric(c.actions, prometheus.CounterValue, float64(count), string(action))
	}
}

func Provide(provider config.Provider, k *kitchen.Kitchen, l *kitchen.Ledger, log zerolog.Logger) (*StatusServer, error) {
	cfg := loadConfig(provider)
	s := &StatusServer{
		kitchen: k,
		ledger:  l,
		log:     log.With().Str("component", "server").Logger(),
		port:    cfg.Port,
		enabled: cfg.Enabled,
	}

	registry := prometheus.NewRegistry()
	if err := registry.Register(newRunCollector(k, l)); err != nil {
		return nil, err
	}

	s.router = mux.NewRouter()
	s.router.HandleFunc("/health", s.HealthHandler).Methods("GET")
	s.router.HandleFunc("/orders", s.OrdersHandler).Methods("GET")
	s.router.HandleFunc("/ledger", s.LedgerHandler).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{})).Methods("GET")
	s.server = &http.Server{
		Addr:    fmt.Sprintf("127.0.0.1:%d", cfg.Port),
		Handler: s.router,
	}
	return s, nil
}

// Start attaches the server to the application lifecycle. A disabled server
// registers no hooks at all.
func Start(lifecycle fx.Lifecycle, s *StatusServer) error {
	if !s.enabled {
		return nil
	}
	lifecycle.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.server.ListenAndServe()
			s.log.Info().Int("port", s.port).Msg("status server listening")
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return s.server.Shutdown(ctx)
		},
	})
	return nil
}
