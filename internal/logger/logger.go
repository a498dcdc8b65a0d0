package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type Options struct {
	Level       string
	Development bool
	Service     string
	// Extra receives a copy of every JSON log line, e.g. a KafkaWriter.
	Extra []io.Writer
}

// New builds the process logger. Development mode writes human readable
// lines to stdout; otherwise JSON.
func New(opts Options) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
	if err != nil || opts.Level == "" {
		level = zerolog.InfoLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339Nano

	var out io.Writer = os.Stdout
	if opts.Development {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	if len(opts.Extra) > 0 {
		out = zerolog.MultiLevelWriter(append([]io.Writer{out}, opts.Extra...)...)
	}

	ctx := zerolog.New(out).Level(level).With().Timestamp()
	if opts.Service != "" {
		ctx = ctx.Str("service", opts.Service)
	}
	return ctx.Logger()
}
