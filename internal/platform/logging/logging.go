// Package logging provides the structured logger shared by both services.
//
// The public API mirrors a simple level/fields logging facade: package-level
// Init/Debug/Info/Warn/Error functions backed by a process-wide logger, so
// call sites never need to thread a logger instance through every function.
package logging

import (
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Level mirrors zap's level model with the small, closed set this codebase
// actually configures via LOG_LEVEL.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case DEBUG:
		return zapcore.DebugLevel
	case WARN:
		return zapcore.WarnLevel
	case ERROR:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Config configures the package-level logger.
type Config struct {
	Level   string // debug|info|warn|error
	Format  string // json|console
	Service string // "coordinator" or "ledger", attached to every line
}

var (
	mu     sync.RWMutex
	sugar  *zap.SugaredLogger
	inited bool
)

// Init installs the process-wide logger. Safe to call once at startup from
// each service's main.go; uninitialized calls to Debug/Info/Warn/Error are
// silently dropped so packages can log unconditionally in tests.
func Init(cfg Config) {
	zapLevel := parseLevel(cfg.Level).zapLevel()

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if strings.EqualFold(cfg.Format, "console") {
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), zapLevel)
	logger := zap.New(core)
	if cfg.Service != "" {
		logger = logger.With(zap.String("service", cfg.Service))
	}

	mu.Lock()
	sugar = logger.Sugar()
	inited = true
	mu.Unlock()
}

func parseLevel(s string) Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return DEBUG
	case "WARN":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

func fields(kv map[string]interface{}) []interface{} {
	if len(kv) == 0 {
		return nil
	}
	out := make([]interface{}, 0, len(kv)*2)
	for k, v := range kv {
		out = append(out, k, v)
	}
	return out
}

// Debug logs at debug level with optional structured fields.
func Debug(msg string, kv ...map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if !inited {
		return
	}
	sugar.Debugw(msg, flatten(kv)...)
}

// Info logs at info level with optional structured fields.
func Info(msg string, kv ...map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if !inited {
		return
	}
	sugar.Infow(msg, flatten(kv)...)
}

// Warn logs at warn level with optional structured fields.
func Warn(msg string, kv ...map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if !inited {
		return
	}
	sugar.Warnw(msg, flatten(kv)...)
}

// Error logs at error level, attaching err under the "error" field.
func Error(msg string, err error, kv map[string]interface{}) {
	mu.RLock()
	defer mu.RUnlock()
	if !inited {
		return
	}
	if kv == nil {
		kv = map[string]interface{}{}
	}
	if err != nil {
		kv["error"] = err.Error()
	}
	sugar.Errorw(msg, fields(kv)...)
}

func flatten(kvs []map[string]interface{}) []interface{} {
	if len(kvs) == 0 {
		return nil
	}
	return fields(kvs[0])
}

// Sync flushes any buffered log entries. Call during graceful shutdown.
func Sync() {
	mu.RLock()
	defer mu.RUnlock()
	if !inited {
		return
	}
	_ = sugar.Sync()
}
