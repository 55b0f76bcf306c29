package obs

import (
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	domainOnce sync.Once

	// CartOpsTotal counts cart ledger mutations by operation.
	CartOpsTotal *prometheus.CounterVec
	// CartsActive tracks the number of live cart sessions.
	CartsActive prometheus.Gauge
	// SalesCompletedTotal counts successful checkout submissions by payment method.
	SalesCompletedTotal *prometheus.CounterVec
	// UpstreamRequestsTotal counts outbound calls to the inventory API by target and result.
	UpstreamRequestsTotal *prometheus.CounterVec
	// ChatRequestsTotal counts chat completions by backend and result.
	ChatRequestsTotal *prometheus.CounterVec
	// ReceiptDeliveriesTotal counts receipt webhook delivery outcomes.
	ReceiptDeliveriesTotal *prometheus.CounterVec
)

// MustRegisterDomainMetrics initialises and registers domain-specific Prometheus collectors.
func MustRegisterDomainMetrics(namespace string, reg prometheus.Registerer) {
	domainOnce.Do(func() {
		if reg == nil {
			reg = prometheus.DefaultRegisterer
		}
		CartOpsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_operations_total",
			Help:      "Count of cart ledger mutations by operation.",
		}, []string{"op"})
		CartsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "carts_active",
			Help:      "Number of live cart sessions held in memory.",
		})
		SalesCompletedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sales_completed_total",
			Help:      "Count of successful checkout submissions by payment method.",
		}, []string{"payment_method"})
		UpstreamRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upstream_requests_total",
			Help:      "Count of outbound inventory API calls by target and result.",
		}, []string{"target", "result"})
		ChatRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "chat_requests_total",
			Help:      "Count of chat completions by backend and result.",
		}, []string{"backend", "result"})
		ReceiptDeliveriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "receipt_deliveries_total",
			Help:      "Count of receipt webhook delivery outcomes.",
		}, []string{"result"})

		mustRegisterCollector(reg, CartOpsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				CartOpsTotal = v
			}
		})
		mustRegisterCollector(reg, CartsActive, func(existing prometheus.Collector) {
			if v, ok := existing.(prometheus.Gauge); ok {
				CartsActive = v
			}
		})
		mustRegisterCollector(reg, SalesCompletedTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				SalesCompletedTotal = v
			}
		})
		mustRegisterCollector(reg, UpstreamRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				UpstreamRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, ChatRequestsTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ChatRequestsTotal = v
			}
		})
		mustRegisterCollector(reg, ReceiptDeliveriesTotal, func(existing prometheus.Collector) {
			if v, ok := existing.(*prometheus.CounterVec); ok {
				ReceiptDeliveriesTotal = v
			}
		})
	})
}

func mustRegisterCollector(reg prometheus.Registerer, c prometheus.Collector, replace func(prometheus.Collector)) {
	if err := reg.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			replace(are.ExistingCollector)
			return
		}
		panic(fmt.Errorf("register collector: %w", err))
	}
}
