package phi

import (
	"log/slog"
	"runtime"

	"github.com/lehigh-university-libraries/phieval/internal/eval/annotation"
	"github.com/lehigh-university-libraries/phieval/internal/eval/filter"
)

// Option configures Score.
type Option func(*config)

type config struct {
	filter      *filter.Spec
	verbose     bool
	concurrency int
	vocabulary  annotation.Vocabulary
	logger      *slog.Logger
}

func defaultConfig() config {
	return config{
		concurrency: runtime.NumCPU(),
		vocabulary:  annotation.DefaultVocabulary(),
		logger:      slog.Default(),
	}
}

// WithFilter restricts every regime to annotations accepted by spec.
func WithFilter(spec filter.Spec) Option {
	return func(c *config) {
		c.filter = &spec
	}
}

// WithVerbose includes per-document partitions in the report.
func WithVerbose(v bool) Option {
	return func(c *config) {
		c.verbose = v
	}
}

// WithConcurrency sets how many documents are matched at once (default: runtime.NumCPU()).
func WithConcurrency(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithVocabulary sets the tag vocabulary filters are validated against.
func WithVocabulary(v annotation.Vocabulary) Option {
	return func(c *config) {
		c.vocabulary = v
	}
}

// WithLogger sets the logger (default: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}
