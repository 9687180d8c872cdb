package store

import "github.com/prometheus/client_golang/prometheus"

// metrics holds the prometheus collectors a Store registers for its
// mutation and cursor paths: per-operation counters rather than ad-hoc
// log lines.
type metrics struct {
	puts           *prometheus.CounterVec
	deletes        *prometheus.CounterVec
	gets           *prometheus.CounterVec
	cursorSteps    *prometheus.CounterVec
	batchExplodes  *prometheus.CounterVec
	batchWrites    *prometheus.CounterVec
	staleIndexHits *prometheus.CounterVec
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		puts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acid", Subsystem: "store", Name: "puts_total",
			Help: "Number of Collection.Put calls, by collection.",
		}, []string{"collection"}),
		deletes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acid", Subsystem: "store", Name: "deletes_total",
			Help: "Number of Collection.Delete calls, by collection.",
		}, []string{"collection"}),
		gets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acid", Subsystem: "store", Name: "gets_total",
			Help: "Number of Collection.Get calls, by collection.",
		}, []string{"collection"}),
		cursorSteps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acid", Subsystem: "store", Name: "cursor_steps_total",
			Help: "Number of cursor Next steps, by collection.",
		}, []string{"collection"}),
		batchExplodes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acid", Subsystem: "store", Name: "batch_explodes_total",
			Help: "Number of batch explosions performed, by collection.",
		}, []string{"collection"}),
		batchWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acid", Subsystem: "store", Name: "batch_writes_total",
			Help: "Number of physical batch records written, by collection.",
		}, []string{"collection"}),
		staleIndexHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "acid", Subsystem: "store", Name: "stale_index_hits_total",
			Help: "Number of stale index entries encountered by Index.Items, by index.",
		}, []string{"index"}),
	}
	if reg != nil {
		reg.MustRegister(m.puts, m.deletes, m.gets, m.cursorSteps, m.batchExplodes, m.batchWrites, m.staleIndexHits)
	}
	return m
}
