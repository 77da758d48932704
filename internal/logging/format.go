package logging

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// plainValue renders v for display without quoting.
func plainValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return v.String()
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindTime:
		return consoleTime(v.Time())
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return err.Error()
		}
		return fmt.Sprint(v.Any())
	default:
		return v.String()
	}
}

// quotedValue renders v as the right-hand side of a console key=value pair.
func quotedValue(v slog.Value) string {
	s := plainValue(v)
	if s == "" || strings.IndexFunc(s, breaksPair) >= 0 {
		return strconv.Quote(s)
	}
	return s
}

func breaksPair(r rune) bool {
	return r <= ' ' || r == '=' || r == '"'
}

func consoleTime(ts time.Time) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Local().Format(time.DateTime)
}
