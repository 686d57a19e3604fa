// Copyright (C) 2025 sage-x-project
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.

// SPDX-License-Identifier: LGPL-3.0-or-later

package logging

import (
	"context"
	"math"
	"sync/atomic"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger backs Logger with go.uber.org/zap. StructuredLogger remains
// available for callers that want a dependency-free logger (e.g. short-lived
// CLIs embedding the toolkit); components built without a logger use NoOp.
type ZapLogger struct {
	base   *zap.Logger
	fields []Field
	level  *zap.AtomicLevel
	// samplingRate records the rate set through SetSamplingRate. It is
	// advisory: zap's own sampler operates on log volume, not on a
	// caller-tunable probability, and Debug does not consult this value.
	samplingRate atomic.Uint64 // stores math.Float64bits
}

// NewZapLogger builds a ZapLogger writing JSON to stdout at the given level.
func NewZapLogger(level Level) (*ZapLogger, error) {
	atomicLevel := zap.NewAtomicLevelAt(toZapLevel(level))
	cfg := zap.Config{
		Level:            atomicLevel,
		Encoding:         "json",
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}
	base, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	l := &ZapLogger{base: base, level: &atomicLevel}
	l.SetSamplingRate(1.0)
	return l, nil
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case LevelDebug:
		return zapcore.DebugLevel
	case LevelInfo:
		return zapcore.InfoLevel
	case LevelWarn:
		return zapcore.WarnLevel
	case LevelError:
		return zapcore.ErrorLevel
	case LevelFatal:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func toZapFields(fields []Field) []zap.Field {
	out := make([]zap.Field, 0, len(fields))
	for _, f := range fields {
		out = append(out, zap.Any(f.Key, f.Value))
	}
	return out
}

func (l *ZapLogger) merged(fields []Field) []zap.Field {
	all := make([]Field, 0, len(l.fields)+len(fields))
	all = append(all, l.fields...)
	all = append(all, fields...)
	return toZapFields(all)
}

// Debug implements Logger.
func (l *ZapLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.base.Debug(msg, l.merged(append(extractContextFields(ctx), fields...))...)
}

// Info implements Logger.
func (l *ZapLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.base.Info(msg, l.merged(append(extractContextFields(ctx), fields...))...)
}

// Warn implements Logger.
func (l *ZapLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.base.Warn(msg, l.merged(append(extractContextFields(ctx), fields...))...)
}

// Error implements Logger.
func (l *ZapLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.base.Error(msg, l.merged(append(extractContextFields(ctx), fields...))...)
}

// Fatal implements Logger.
func (l *ZapLogger) Fatal(ctx context.Context, msg string, fields ...Field) {
	l.base.Fatal(msg, l.merged(append(extractContextFields(ctx), fields...))...)
}

// With implements Logger.
func (l *ZapLogger) With(fields ...Field) Logger {
	next := &ZapLogger{base: l.base, level: l.level}
	next.fields = append(append([]Field(nil), l.fields...), fields...)
	next.samplingRate.Store(l.samplingRate.Load())
	return next
}

// SetLevel implements Logger.
func (l *ZapLogger) SetLevel(level Level) {
	l.level.SetLevel(toZapLevel(level))
}

// SetSamplingRate implements Logger. zap's own logger always emits; a rate
// below 1.0 here is advisory metadata callers may use to pre-filter debug
// call sites, matching StructuredLogger's contract without duplicating
// zap's internal sampling core.
func (l *ZapLogger) SetSamplingRate(rate float64) {
	if rate < 0 {
		rate = 0
	}
	if rate > 1 {
		rate = 1
	}
	l.samplingRate.Store(math.Float64bits(rate))
}

// Sync flushes any buffered log entries, matching zap.Logger.Sync.
func (l *ZapLogger) Sync() error {
	return l.base.Sync()
}
