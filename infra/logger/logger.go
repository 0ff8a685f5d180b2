package logger

import (
	"context"
	"os"
	"strings"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

type ctxKey struct{}

// DefaultLogger is used whenever a context carries no logger.
var DefaultLogger = log.NewEntry(log.StandardLogger())

// Setup configures the standard logrus logger. Format is "text" or "json".
func Setup(level, format string) error {
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return errors.Wrapf(err, "can't parse log level %q", level)
	}
	log.SetLevel(lvl)
	log.SetOutput(os.Stdout)

	switch strings.ToLower(format) {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	default:
		return errors.Errorf("unknown log format %q", format)
	}
	return nil
}

func ToContext(ctx context.Context, entry *log.Entry) context.Context {
	return context.WithValue(ctx, ctxKey{}, entry)
}

func FromContext(ctx context.Context) *log.Entry {
	if ctx == nil {
		return DefaultLogger
	}
	if entry, ok := ctx.Value(ctxKey{}).(*log.Entry); ok && entry != nil {
		return entry
	}
	return DefaultLogger
}
