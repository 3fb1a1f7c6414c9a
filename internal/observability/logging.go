// Package observability provides logging utilities for the engine binaries.
package observability

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/cory-johannsen/dnd-combat/internal/config"
	"github.com/cory-johannsen/dnd-combat/internal/game/event"
)

// NewLogger creates a structured logger from the given logging configuration.
//
// Precondition: cfg.Level must be one of "debug", "info", "warn", "error".
// Precondition: cfg.Format must be "json" or "console".
// Postcondition: Returns a configured zap.Logger or a non-nil error.
func NewLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("parsing log level %q: %w", cfg.Level, err)
	}

	var zapCfg zap.Config
	switch cfg.Format {
	case "json":
		zapCfg = zap.NewProductionConfig()
	case "console":
		zapCfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("building logger: %w", err)
	}
	return logger, nil
}

// EventLogger is an event.Sink that writes every engine event to a logger.
// Turn and round boundaries log at info; everything else at debug.
type EventLogger struct {
	logger *zap.Logger
}

// NewEventLogger returns a sink logging to logger under the "combat" name.
//
// Precondition: logger must not be nil.
func NewEventLogger(logger *zap.Logger) *EventLogger {
	return &EventLogger{logger: logger.Named("combat")}
}

// Emit implements event.Sink.
func (l *EventLogger) Emit(e event.Event) {
	level := zapcore.DebugLevel
	switch e.Type {
	case event.RoundStart, event.TurnStart, event.CombatantRemoved, event.DeathSave:
		level = zapcore.InfoLevel
	}
	ce := l.logger.Check(level, e.String())
	if ce == nil {
		return
	}
	fields := []zap.Field{zap.String("type", string(e.Type))}
	if e.Actor != "" {
		fields = append(fields, zap.String("actor", e.Actor))
	}
	if e.ActorID != uuid.Nil {
		fields = append(fields, zap.Stringer("actor_id", e.ActorID))
	}
	if e.Target != "" {
		fields = append(fields, zap.String("target", e.Target))
	}
	if e.TargetID != uuid.Nil {
		fields = append(fields, zap.Stringer("target_id", e.TargetID))
	}
	if e.Amount != 0 {
		fields = append(fields, zap.Int("amount", e.Amount))
	}
	ce.Write(fields...)
}
