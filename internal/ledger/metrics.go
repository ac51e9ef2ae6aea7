package ledger

import "github.com/prometheus/client_golang/prometheus"

// Metrics counts ledger events worth alerting on.
type Metrics struct {
	BalanceMutations    prometheus.Counter
	ConversionFailures  prometheus.Counter
	OwnershipMismatches prometheus.Counter
}

// NewMetrics registers the ledger collectors against the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BalanceMutations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_ledger_balance_mutations_total",
			Help: "Number of client balance increments applied.",
		}),
		ConversionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_ledger_conversion_failures_total",
			Help: "Number of failed currency conversions during balance updates.",
		}),
		OwnershipMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meridian_ledger_ownership_mismatches_total",
			Help: "Delete-time balance rows that no longer belong to the transaction's client.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.BalanceMutations, m.ConversionFailures, m.OwnershipMismatches)
	}
	return m
}
