package observability

import (
	"gorm.io/gorm"
	"gorm.io/plugin/opentelemetry/tracing"
)

// InstrumentDB registers the GORM OpenTelemetry plugin so every query made
// through db emits a child span of the caller's context. Metrics are left to
// prometheus; only tracing is enabled.
func InstrumentDB(db *gorm.DB) error {
	return db.Use(tracing.NewPlugin(tracing.WithoutMetrics()))
}
