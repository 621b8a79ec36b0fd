package logger

import (
	"go.temporal.io/sdk/log"
	"go.uber.org/zap"
)

// temporalLogger routes Temporal SDK logs through zap
type temporalLogger struct {
	s *zap.SugaredLogger
}

// Temporal returns a Temporal SDK logger backed by the shared logger.
func Temporal() log.Logger {
	return &temporalLogger{s: Named("temporal").WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

func (l *temporalLogger) Debug(msg string, keyvals ...interface{}) { l.s.Debugw(msg, keyvals...) }
func (l *temporalLogger) Info(msg string, keyvals ...interface{})  { l.s.Infow(msg, keyvals...) }
func (l *temporalLogger) Warn(msg string, keyvals ...interface{})  { l.s.Warnw(msg, keyvals...) }
func (l *temporalLogger) Error(msg string, keyvals ...interface{}) { l.s.Errorw(msg, keyvals...) }

// With implements log.WithLogger.
func (l *temporalLogger) With(keyvals ...interface{}) log.Logger {
	return &temporalLogger{s: l.s.With(keyvals...)}
}
