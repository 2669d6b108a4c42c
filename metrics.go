package lexgo

import (
	"github.com/hupe1980/lexgo/engine"
	"github.com/hupe1980/lexgo/telemetry"
)

// MetricsCollector returns a Prometheus collector sampling every index
// currently open through this DB. Register it once; indexes opened later
// need a new collector.
//
// Example:
//
//	db, _ := lexgo.Open("./data.db")
//	prometheus.MustRegister(db.MetricsCollector(""))
func (db *DB) MetricsCollector(namespace string) *telemetry.Collector {
	db.mu.Lock()
	defer db.mu.Unlock()

	engines := make([]*engine.Engine, 0, len(db.indexes))
	for _, ix := range db.indexes {
		engines = append(engines, ix.eng)
	}
	return telemetry.NewCollector(namespace, engines...)
}
