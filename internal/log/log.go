// Package log is a thin leveled key/value logging facade over zerolog.
// Call sites use positional pairs:
//
//	log.Info("ledger append completed", "rows", n, "table", name)
//	log.Error("slack post failed", err, "channel", ch)
package log

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	mu   sync.RWMutex
	root zerolog.Logger
	once sync.Once
)

// Options configures the process-wide logger.
type Options struct {
	// Level is one of debug, info, warn, error. Empty means info.
	Level string
	// Format is "console" or "json". Empty means console.
	Format string
	// Writer overrides the output stream; nil means stderr.
	Writer io.Writer
}

// FromEnv builds Options from LOG_LEVEL / LOG_FORMAT.
func FromEnv() Options {
	return Options{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: os.Getenv("LOG_FORMAT"),
	}
}

// Init configures the root logger. Safe to call more than once; only the
// first call wins.
func Init(opt Options) {
	once.Do(func() { configure(opt) })
}

func configure(opt Options) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.ToLower(opt.Format) != "json" {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}

	mu.Lock()
	defer mu.Unlock()
	root = zerolog.New(w).Level(parseLevel(opt.Level)).With().Timestamp().Logger()
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func get() *zerolog.Logger {
	Init(FromEnv())
	mu.RLock()
	defer mu.RUnlock()
	l := root
	return &l
}

// Debug logs at debug level with key/value pairs.
func Debug(msg string, kv ...any) {
	emit(get().Debug(), msg, kv)
}

// Info logs at info level with key/value pairs.
func Info(msg string, kv ...any) {
	emit(get().Info(), msg, kv)
}

// Warn logs at warn level with key/value pairs.
func Warn(msg string, kv ...any) {
	emit(get().Warn(), msg, kv)
}

// Error logs at error level, attaching err plus key/value pairs.
func Error(msg string, err error, kv ...any) {
	emit(get().Error().Err(err), msg, kv)
}

// emit attaches kv as fields. Pairs with a non-string key, and a trailing
// odd value, are dropped.
func emit(ev *zerolog.Event, msg string, kv []any) {
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		ev = ev.Interface(key, kv[i+1])
	}
	ev.Msg(msg)
}
