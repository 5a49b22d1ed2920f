package logger

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const modulePrefix = "SmartEnergy"

type Logger struct {
	zl        zerolog.Logger
	collector *LogCollector
}

type Config struct {
	Level      string // debug, info, warn, error
	Format     string // json or console
	Output     string // stdout, stderr, or file path
	TimeFormat string
}

// New creates a logger from config.
func New(cfg *Config) (*Logger, error) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	zerolog.SetGlobalLevel(level)

	var output io.Writer
	switch cfg.Output {
	case "", "stdout":
		output = os.Stdout
	case "stderr":
		output = os.Stderr
	default:
		file, err := os.OpenFile(cfg.Output, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("could not open log file: %w", err)
		}
		output = file
	}

	if cfg.TimeFormat == "" {
		cfg.TimeFormat = time.RFC3339Nano
	}
	zerolog.TimeFieldFormat = cfg.TimeFormat

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{Out: output, TimeFormat: cfg.TimeFormat}
	}

	zl := zerolog.New(output).
		With().
		Timestamp().
		CallerWithSkipFrameCount(3).
		Logger()

	return &Logger{zl: zl}, nil
}

// Nop returns a logger that discards everything. Used by tests and CLI tools.
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger that always carries the given fields.
// The child shares the parent's collector.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		k, v := f.GetKeyValue()
		ctx = ctx.Interface(k, v)
	}
	return &Logger{zl: ctx.Logger(), collector: l.collector}
}

func (l *Logger) emit(event *zerolog.Event, msg string, fields []Field) {
	for _, field := range fields {
		field.AddTo(event)
	}
	event.Msg(msg)
}

func (l *Logger) collect(level, msg string, fields []Field) {
	if l.collector == nil {
		return
	}

	// skip: collect -> Error/Warn -> caller
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		parts := strings.Split(file, modulePrefix)
		caller = fmt.Sprintf("%s:%d", parts[len(parts)-1], line)
	}

	fieldMap := make(map[string]interface{}, len(fields))
	for _, field := range fields {
		key, value := field.GetKeyValue()
		fieldMap[key] = value
	}

	l.collector.AddLog(level, msg, fieldMap, caller)
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.emit(l.zl.Debug(), msg, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.emit(l.zl.Info(), msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.emit(l.zl.Warn(), msg, fields)
	l.collect("warn", msg, fields)
}

// Error logs at error level and feeds the collector.
func (l *Logger) Error(msg string, fields ...Field) {
	l.emit(l.zl.Error(), msg, fields)
	l.collect("error", msg, fields)
}

// AddCollector attaches an aggregating collector, replacing any existing one.
func (l *Logger) AddCollector(config *CollectionConfig) {
	if l.collector != nil {
		l.collector.Close()
	}
	l.collector = NewLogCollector(config)
}

// RemoveCollector detaches and closes the collector.
func (l *Logger) RemoveCollector() {
	if l.collector != nil {
		l.collector.Close()
		l.collector = nil
	}
}

// Field is a typed key/value attached to a log event.
type Field interface {
	AddTo(event *zerolog.Event)
	GetKeyValue() (string, interface{})
}

type StringField struct {
	Key   string
	Value string
}

func (f StringField) AddTo(event *zerolog.Event)        { event.Str(f.Key, f.Value) }
func (f StringField) GetKeyValue() (string, interface{}) { return f.Key, f.Value }

type IntField struct {
	Key   string
	Value int
}

func (f IntField) AddTo(event *zerolog.Event)        { event.Int(f.Key, f.Value) }
func (f IntField) GetKeyValue() (string, interface{}) { return f.Key, f.Value }

type Int64Field struct {
	Key   string
	Value int64
}

func (f Int64Field) AddTo(event *zerolog.Event)        { event.Int64(f.Key, f.Value) }
func (f Int64Field) GetKeyValue() (string, interface{}) { return f.Key, f.Value }

type Float64Field struct {
	Key   string
	Value float64
}

func (f Float64Field) AddTo(event *zerolog.Event)        { event.Float64(f.Key, f.Value) }
func (f Float64Field) GetKeyValue() (string, interface{}) { return f.Key, f.Value }

type ErrorField struct {
	Key   string
	Value error
}

func (f ErrorField) AddTo(event *zerolog.Event) { event.Err(f.Value) }

func (f ErrorField) GetKeyValue() (string, interface{}) {
	if f.Value == nil {
		return f.Key, nil
	}
	return f.Key, f.Value.Error()
}

type AnyField struct {
	Key   string
	Value interface{}
}

func (f AnyField) AddTo(event *zerolog.Event)        { event.Interface(f.Key, f.Value) }
func (f AnyField) GetKeyValue() (string, interface{}) { return f.Key, f.Value }

type BoolField struct {
	Key   string
	Value bool
}

func (f BoolField) AddTo(event *zerolog.Event)        { event.Bool(f.Key, f.Value) }
func (f BoolField) GetKeyValue() (string, interface{}) { return f.Key, f.Value }

func String(key, value string) Field          { return StringField{Key: key, Value: value} }
func Int(key string, value int) Field         { return IntField{Key: key, Value: value} }
func Int64(key string, value int64) Field     { return Int64Field{Key: key, Value: value} }
func Float64(key string, value float64) Field { return Float64Field{Key: key, Value: value} }
func Bool(key string, value bool) Field       { return BoolField{Key: key, Value: value} }
func Any(key string, value interface{}) Field { return AnyField{Key: key, Value: value} }
func Error(err error) Field                   { return ErrorField{Key: "error", Value: err} }

// Duration logs milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int64Field{Key: key, Value: value.Milliseconds()}
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}
