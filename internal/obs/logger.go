// Package obs holds the structured logging and metrics shared by the
// service and worker: a thin zap wrapper and the Prometheus
// collectors the hit worker reports to.
package obs

import "go.uber.org/zap"

// Logger is a structured logger built on zap.SugaredLogger, used
// instead of the stdlib log package everywhere, cmd/*'s startup
// messages included.
type Logger struct {
	sugar *zap.SugaredLogger
}

// NewLogger builds a Logger. development selects zap's human-readable
// console encoder; otherwise JSON production encoding is used.
func NewLogger(development bool) (*Logger, error) {
	var zl *zap.Logger
	var err error
	if development {
		zl, err = zap.NewDevelopment()
	} else {
		zl, err = zap.NewProduction()
	}
	if err != nil {
		return nil, err
	}
	return &Logger{sugar: zl.Sugar()}, nil
}

// NewNop builds a Logger that discards everything, for tests.
func NewNop() *Logger {
	return &Logger{sugar: zap.NewNop().Sugar()}
}

func (l *Logger) Info(msg string, keysAndValues ...interface{}) {
	l.sugar.Infow(msg, keysAndValues...)
}

func (l *Logger) Warn(msg string, keysAndValues ...interface{}) {
	l.sugar.Warnw(msg, keysAndValues...)
}

func (l *Logger) Error(msg string, keysAndValues ...interface{}) {
	l.sugar.Errorw(msg, keysAndValues...)
}

// Sync flushes any buffered log entries. Call it before process exit.
func (l *Logger) Sync() error {
	return l.sugar.Sync()
}
