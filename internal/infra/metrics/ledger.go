package metrics

import "github.com/prometheus/client_golang/prometheus"

func init() {
	register(ledgerFlushes)
}

var ledgerFlushes = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "ledger_flushes_total",
		Help: "Ledger document writes to disk, debounced and explicit.",
	},
)

func IncLedgerFlush() { ledgerFlushes.Inc() }
