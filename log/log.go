// Package log is the structured logging facade used across the relay.
// Every call site passes a component prefix in brackets and a set of fields.
package log

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type M map[string]any

type Level uint32

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
	LevelPanic
)

var levelNames = map[string]Level{
	"trace": LevelTrace,
	"debug": LevelDebug,
	"info":  LevelInfo,
	"warn":  LevelWarn,
	"error": LevelError,
	"fatal": LevelFatal,
	"panic": LevelPanic,
}

// ParseLevel maps a level name such as "debug" to its Level.
func ParseLevel(name string) (Level, error) {
	l, ok := levelNames[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return LevelInfo, fmt.Errorf("unknown log level %q", name)
	}
	return l, nil
}

func (l Level) String() string {
	for name, level := range levelNames {
		if level == l {
			return name
		}
	}
	return "unknown"
}

func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// SetJSON switches the output to one JSON object per line.
func SetJSON(enabled bool) {
	if enabled {
		logrus.SetFormatter(&logrus.JSONFormatter{})
		return
	}
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

func SetLevel(level Level) {
	var l logrus.Level
	switch level {
	case LevelTrace:
		l = logrus.TraceLevel
	case LevelDebug:
		l = logrus.DebugLevel
	case LevelInfo:
		l = logrus.InfoLevel
	case LevelWarn:
		l = logrus.WarnLevel
	case LevelError:
		l = logrus.ErrorLevel
	case LevelFatal:
		l = logrus.FatalLevel
	case LevelPanic:
		l = logrus.PanicLevel
	}
	logrus.SetLevel(l)
}

// Logw logs msg at the given level. It is used by callers that carry the
// level as data, such as engine events.
func Logw(level Level, msg string, args M) {
	switch level {
	case LevelTrace:
		Tracew(msg, args)
	case LevelDebug:
		Debugw(msg, args)
	case LevelInfo:
		Infow(msg, args)
	case LevelWarn:
		Warnw(msg, args)
	default:
		Errorw(msg, args)
	}
}

func Infow(msg string, args M) {
	logrus.WithFields(logrus.Fields(args)).Info(msg)
}

func Debugw(msg string, args M) {
	logrus.WithFields(logrus.Fields(args)).Debug(msg)
}

func Warnw(msg string, args M) {
	logrus.WithFields(logrus.Fields(args)).Warn(msg)
}

func Errorw(msg string, args M) {
	logrus.WithFields(logrus.Fields(args)).Error(msg)
}

func Tracew(msg string, args M) {
	logrus.WithFields(logrus.Fields(args)).Trace(msg)
}

func Fatalw(msg string, args M) {
	logrus.WithFields(logrus.Fields(args)).Fatal(msg)
}

func init() {
	logrus.SetLevel(logrus.InfoLevel)
}
