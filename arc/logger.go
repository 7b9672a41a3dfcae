package arc

import (
	"github.com/fatih/color"
	"go.uber.org/zap"
)

// Logger encapsulates a Logger and module which it belongs to.
// Use this through SetLogger() of Evaluator.
type Logger struct {
	*zap.SugaredLogger
	module string
}

// NewLogger wraps a zap logger for use with SetLogger.
func NewLogger(l *zap.SugaredLogger) *Logger {
	return &Logger{SugaredLogger: l}
}

// Module returns (stylised) module name.
func (l *Logger) Module() string {
	return l.module
}

func nopLogger() *Logger {
	return &Logger{SugaredLogger: zap.NewNop().Sugar(), module: "arc"}
}

func (l *Logger) withModule(module string, c *color.Color) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger, module: c.Sprint(module)}
}
