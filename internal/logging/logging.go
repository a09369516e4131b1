package logging

import (
	"io"
	"os"
	"strings"
	"sync"

	"botdash/internal/config"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	sinkMu sync.RWMutex
	sink   io.Writer = os.Stdout
)

// Init configures the global zerolog logger. Output goes to stdout unless
// cfg.File is set, in which case a size-capped file is used instead.
func Init(cfg config.LogConfig) {
	level := zerolog.InfoLevel
	if v := strings.TrimSpace(cfg.Level); v != "" {
		if parsed, err := zerolog.ParseLevel(strings.ToLower(v)); err == nil {
			level = parsed
		}
	}

	var output io.Writer = os.Stdout
	if cfg.File != "" {
		if w, err := newRotatingWriter(cfg.File, cfg.MaxMB); err == nil {
			output = w
		} else {
			log.Warn().Err(err).Str("path", cfg.File).Msg("open log file failed; using stdout")
		}
	}
	setWriter(output)
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output, NoColor: cfg.File != ""}
	}

	zerolog.SetGlobalLevel(level)
	logger := zerolog.New(output).With().Timestamp().Logger()
	if cfg.SampleEvery > 1 {
		logger = logger.Sample(&zerolog.BasicSampler{N: uint32(cfg.SampleEvery)})
	}
	log.Logger = logger
}

// Writer returns the raw sink selected by Init, for loggers that are not zerolog.
func Writer() io.Writer {
	sinkMu.RLock()
	defer sinkMu.RUnlock()
	return sink
}

func setWriter(w io.Writer) {
	sinkMu.Lock()
	sink = w
	sinkMu.Unlock()
}
