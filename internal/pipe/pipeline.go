// Package pipe implements the producer-consumer pipeline that loads an
// event log file into memory: reader -> parser -> log builder.
package pipe

import (
	"context"
	"fmt"
	"io"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/tracelens/tracelens/internal/model"
	"github.com/tracelens/tracelens/pkg/parser"
	"github.com/tracelens/tracelens/pkg/util"
)

// Config holds pipeline configuration.
type Config struct {
	// ParserConfig is passed through to the format parser.
	ParserConfig parser.Config

	// EventBufferSize is the channel buffer size between the parser and
	// the collector.
	EventBufferSize int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		ParserConfig:    parser.DefaultConfig(),
		EventBufferSize: 4096,
	}
}

// ProgressStats provides loading statistics to the progress callback.
type ProgressStats struct {
	EventsRead      int64
	EventsPerSecond float64
	Elapsed         time.Duration
}

// Loader runs the load pipeline.
type Loader struct {
	cfg        Config
	eventsRead atomic.Int64
	progressFn func(ProgressStats)
}

// NewLoader creates a loader.
func NewLoader(cfg Config) *Loader {
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = 4096
	}
	return &Loader{cfg: cfg}
}

// SetProgressCallback installs a callback invoked periodically while
// events stream in.
func (l *Loader) SetProgressCallback(fn func(ProgressStats)) {
	l.progressFn = fn
}

// EventsRead returns the number of events consumed so far.
func (l *Loader) EventsRead() int64 {
	return l.eventsRead.Load()
}

// Load reads the file at path, autodetecting the format from the
// extension (gzip transparent), and assembles the in-memory log.
func (l *Loader) Load(ctx context.Context, path string) (*model.Log, error) {
	format := DetectFormat(path)
	if format == parser.FormatUnknown {
		return nil, fmt.Errorf("pipe: cannot detect format of %s", path)
	}

	r, cleanup, err := util.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	return l.LoadFrom(ctx, r, format)
}

// LoadFrom assembles a log from an already-open reader.
// The parser runs in its own goroutine; the collector drains the event
// channel into a model.Builder. Either side failing cancels the other.
func (l *Loader) LoadFrom(ctx context.Context, r io.Reader, format parser.Format) (*model.Log, error) {
	p, err := parser.New(format, l.cfg.ParserConfig)
	if err != nil {
		return nil, err
	}

	events := make(chan *model.Event, l.cfg.EventBufferSize)
	builder := model.NewBuilder()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(events)
		return p.Parse(ctx, r, events)
	})

	g.Go(func() error {
		start := time.Now()
		lastReport := start
		for e := range events {
			if e.CaseOnly {
				builder.AddCase(e.CaseID)
				continue
			}
			builder.Add(e)
			n := l.eventsRead.Add(1)

			if l.progressFn != nil && n%10000 == 0 {
				now := time.Now()
				if now.Sub(lastReport) >= 100*time.Millisecond {
					elapsed := now.Sub(start)
					l.progressFn(ProgressStats{
						EventsRead:      n,
						EventsPerSecond: float64(n) / elapsed.Seconds(),
						Elapsed:         elapsed,
					})
					lastReport = now
				}
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return builder.Build(), nil
}

// DetectFormat determines the input format from the file extension,
// stripping a .gz suffix first.
func DetectFormat(path string) parser.Format {
	switch util.BaseFormat(path) {
	case ".xes":
		return parser.FormatXES
	case ".csv":
		return parser.FormatCSV
	default:
		return parser.FormatUnknown
	}
}
