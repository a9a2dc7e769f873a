package gui

import "log/slog"

// loggerAdapter routes the webview runtime's log output into slog
type loggerAdapter struct {
	logger *slog.Logger
}

func newLoggerAdapter(logger *slog.Logger) *loggerAdapter {
	return &loggerAdapter{logger: logger.With("source", "wails")}
}

func (l *loggerAdapter) Print(message string)   { l.logger.Info(message) }
func (l *loggerAdapter) Trace(message string)   { l.logger.Debug(message, "level", "trace") }
func (l *loggerAdapter) Debug(message string)   { l.logger.Debug(message) }
func (l *loggerAdapter) Info(message string)    { l.logger.Info(message) }
func (l *loggerAdapter) Warning(message string) { l.logger.Warn(message) }
func (l *loggerAdapter) Error(message string)   { l.logger.Error(message) }

// Fatal is logged only; the runtime must not take the process down
func (l *loggerAdapter) Fatal(message string) { l.logger.Error(message, "level", "fatal") }
