package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/furniro/storefront/internal/infrastructure/telemetry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap/zaptest"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type tracedRow struct {
	ID   uint `gorm:"primaryKey"`
	Name string
}

func openTracedDB(t *testing.T, plugin *telemetry.DBTracingPlugin) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&tracedRow{}))
	require.NoError(t, plugin.RegisterOtelGorm(db))
	return db
}

func TestDBTracingPlugin_Disabled(t *testing.T) {
	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{Enabled: false}, zaptest.NewLogger(t))
	db := openTracedDB(t, plugin)

	assert.NoError(t, db.Create(&tracedRow{Name: "x"}).Error)
}

func TestDBTracingPlugin_SpansAndDuration(t *testing.T) {
	sr := setupTestTracer(t)
	reader, mp := newTestMeter(t)

	in := telemetry.NewInstruments(mp.Meter("db"))
	hist := in.Histogram("db_query_duration_seconds", "", "s", telemetry.DBDurationBuckets...)
	require.NoError(t, in.Err())

	plugin := telemetry.NewDBTracingPlugin(telemetry.DBTracingConfig{
		Enabled:         true,
		SlowQueryThresh: time.Nanosecond,
		DBSystem:        "sqlite",
	}, zaptest.NewLogger(t)).WithDurationHistogram(hist)
	db := openTracedDB(t, plugin)

	ctx, span := telemetry.StartSpan(context.Background(), "test.parent")
	require.NoError(t, db.WithContext(ctx).Create(&tracedRow{Name: "Syltherine"}).Error)
	var rows []tracedRow
	require.NoError(t, db.WithContext(ctx).Find(&rows).Error)
	span.End()
	require.Len(t, rows, 1)

	var dbSpans int
	for _, s := range sr.Ended() {
		if s.Name() != "test.parent" {
			dbSpans++
			assert.Equal(t, span.SpanContext().TraceID(), s.SpanContext().TraceID())
		}
	}
	assert.GreaterOrEqual(t, dbSpans, 2)

	h, ok := collect(t, reader)["db_query_duration_seconds"].Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	var total uint64
	for _, dp := range h.DataPoints {
		total += dp.Count
	}
	assert.Equal(t, uint64(2), total)
}
