package main

import (
	"io"
	"strings"

	"github.com/charmbracelet/log"
)

func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// logf bridges prefixed printf-style logging ("E: ", "W: ", "I: ") to the
// matching levels of l. Anything without a prefix is debug.
func logf(l *log.Logger) func(string, ...interface{}) {
	return func(format string, args ...interface{}) {
		switch {
		case strings.HasPrefix(format, "E: "):
			l.Errorf(format[3:], args...)

		case strings.HasPrefix(format, "W: "):
			l.Warnf(format[3:], args...)

		case strings.HasPrefix(format, "I: "):
			l.Infof(format[3:], args...)

		default:
			l.Debugf(format, args...)
		}
	}
}
