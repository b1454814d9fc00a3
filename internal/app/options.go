package service

import (
	"github.com/okian/churnlens/internal/domain/classify"
	"github.com/okian/churnlens/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithDataPath sets the CSV evaluated on every pass.
func WithDataPath(path string) Option {
	return func(s *Service) {
		if path != "" {
			s.dataPath = path
		}
	}
}

// WithStrictLoad makes a single malformed row fail the whole pass.
func WithStrictLoad(strict bool) Option {
	return func(s *Service) {
		s.strict = strict
	}
}

// WithWorkerCount sets the number of classification workers. More than one
// enables the parallel pass.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the job queue capacity of the parallel pass.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithEngine sets the classification engine.
func WithEngine(e *classify.Engine) Option {
	return func(s *Service) {
		if e != nil {
			s.engine = e
		}
	}
}

// WithReloadSchedule sets a cron expression for scheduled reloads.
func WithReloadSchedule(spec string) Option {
	return func(s *Service) {
		s.schedule = spec
	}
}

// WithMaxLimit caps the number of rows returned by the table queries.
func WithMaxLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLimit = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
