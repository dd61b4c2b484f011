package telemetry

import (
	"context"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultSlowQueryThresh = 200 * time.Millisecond

// DBTracingConfig holds configuration for database tracing.
type DBTracingConfig struct {
	Enabled         bool
	LogFullSQL      bool // include query variables in spans; dev only
	SlowQueryThresh time.Duration
	DBSystem        string
}

// DBTracingPlugin wraps the otelgorm plugin with slow query detection and an
// optional query duration histogram.
type DBTracingPlugin struct {
	config   DBTracingConfig
	logger   *zap.Logger
	duration *Histogram
}

// NewDBTracingPlugin creates a database tracing plugin.
func NewDBTracingPlugin(cfg DBTracingConfig, logger *zap.Logger) *DBTracingPlugin {
	if cfg.SlowQueryThresh <= 0 {
		cfg.SlowQueryThresh = defaultSlowQueryThresh
	}
	if cfg.DBSystem == "" {
		cfg.DBSystem = "postgresql"
	}
	return &DBTracingPlugin{config: cfg, logger: logger}
}

// WithDurationHistogram records every statement's duration into h.
func (p *DBTracingPlugin) WithDurationHistogram(h *Histogram) *DBTracingPlugin {
	p.duration = h
	return p
}

// RegisterOtelGorm installs otelgorm plus the timing callbacks on db.
func (p *DBTracingPlugin) RegisterOtelGorm(db *gorm.DB) error {
	if !p.config.Enabled {
		p.logger.Debug("Database tracing disabled, skipping otelgorm registration")
		return nil
	}

	opts := []otelgorm.Option{otelgorm.WithDBName(p.config.DBSystem)}
	if !p.config.LogFullSQL {
		opts = append(opts, otelgorm.WithoutQueryVariables())
	}
	if err := db.Use(otelgorm.NewPlugin(opts...)); err != nil {
		return err
	}
	if err := p.registerCallbacks(db); err != nil {
		return err
	}

	p.logger.Info("Database tracing enabled",
		zap.Bool("log_full_sql", p.config.LogFullSQL),
		zap.Duration("slow_query_threshold", p.config.SlowQueryThresh),
		zap.String("db_system", p.config.DBSystem),
	)
	return nil
}

func (p *DBTracingPlugin) registerCallbacks(db *gorm.DB) error {
	cb := db.Callback()
	registrations := []func() error{
		func() error { return cb.Create().Before("gorm:create").Register("otel_timing:before_create", beforeQuery) },
		func() error { return cb.Query().Before("gorm:query").Register("otel_timing:before_query", beforeQuery) },
		func() error { return cb.Update().Before("gorm:update").Register("otel_timing:before_update", beforeQuery) },
		func() error { return cb.Delete().Before("gorm:delete").Register("otel_timing:before_delete", beforeQuery) },
		func() error { return cb.Row().Before("gorm:row").Register("otel_timing:before_row", beforeQuery) },
		func() error { return cb.Raw().Before("gorm:raw").Register("otel_timing:before_raw", beforeQuery) },
		func() error {
			return cb.Create().After("gorm:create").Register("otel_timing:after_create", p.afterQuery("create"))
		},
		func() error {
			return cb.Query().After("gorm:query").Register("otel_timing:after_query", p.afterQuery("query"))
		},
		func() error {
			return cb.Update().After("gorm:update").Register("otel_timing:after_update", p.afterQuery("update"))
		},
		func() error {
			return cb.Delete().After("gorm:delete").Register("otel_timing:after_delete", p.afterQuery("delete"))
		},
		func() error { return cb.Row().After("gorm:row").Register("otel_timing:after_row", p.afterQuery("row")) },
		func() error { return cb.Raw().After("gorm:raw").Register("otel_timing:after_raw", p.afterQuery("raw")) },
	}
	for _, register := range registrations {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}

type contextKey string

const queryStartTimeKey contextKey = "otel_query_start_time"

func beforeQuery(db *gorm.DB) {
	if db.Statement.Context != nil {
		db.Statement.Context = context.WithValue(db.Statement.Context, queryStartTimeKey, time.Now())
	}
}

func (p *DBTracingPlugin) afterQuery(operation string) func(*gorm.DB) {
	return func(db *gorm.DB) {
		ctx := db.Statement.Context
		if ctx == nil {
			return
		}

		startTime, timed := ctx.Value(queryStartTimeKey).(time.Time)
		var elapsed time.Duration
		if timed {
			elapsed = time.Since(startTime)
			if p.duration != nil {
				p.duration.RecordDuration(ctx, elapsed,
					AttrDBOperation.String(operation),
					AttrDBTable.String(db.Statement.Table),
				)
			}
		}

		span := trace.SpanFromContext(ctx)
		if !span.IsRecording() {
			return
		}
		if db.Statement.RowsAffected >= 0 {
			span.SetAttributes(attribute.Int64("db.rows_affected", db.Statement.RowsAffected))
		}
		if db.Statement.Table != "" {
			span.SetAttributes(attribute.String("db.sql.table", db.Statement.Table))
		}
		if db.Error != nil && !errors.Is(db.Error, gorm.ErrRecordNotFound) {
			span.SetStatus(codes.Error, db.Error.Error())
			span.RecordError(db.Error)
		}
		if timed && elapsed > p.config.SlowQueryThresh {
			span.SetAttributes(
				attribute.Bool("db.slow_query", true),
				attribute.Int64("db.query_duration_ms", elapsed.Milliseconds()),
			)
			span.AddEvent("slow_query_warning", trace.WithAttributes(
				attribute.Int64("duration_ms", elapsed.Milliseconds()),
				attribute.Int64("threshold_ms", p.config.SlowQueryThresh.Milliseconds()),
			))
		}
	}
}
