// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/okian/churnlens/internal/adapters/loader"
	repository "github.com/okian/churnlens/internal/adapters/repository"
	"github.com/okian/churnlens/internal/domain/classify"
	"github.com/okian/churnlens/internal/domain/model"
	"github.com/okian/churnlens/internal/domain/portfolio"
	"github.com/okian/churnlens/internal/domain/types"
	"github.com/okian/churnlens/pkg/logger"
	"github.com/okian/churnlens/pkg/metrics"
)

// Reload triggers, used as metric labels and log fields.
const (
	TriggerStart    = "start"
	TriggerManual   = "manual"
	TriggerSchedule = "schedule"
)

const cronStopTimeout = 5 * time.Second

// evaluation is everything derived from one pass besides the ranked accounts.
type evaluation struct {
	kpis    model.PortfolioKPIs
	summary portfolio.Summary
	run     types.RunInfo
}

// Service implements the API dependencies for the churn early-warning system.
type Service struct {
	mu       sync.RWMutex
	reloadMu sync.Mutex

	// Core components
	store  *repository.SnapshotStore
	engine *classify.Engine
	cron   *cron.Cron

	// Configuration
	dataPath    string
	strict      bool
	workerCount int
	queueSize   int
	schedule    string
	maxLimit    int

	// State
	started      bool
	current      atomic.Pointer[evaluation]
	reloads      atomic.Int64
	reloadErrors atomic.Int64

	// Logging
	logger logger.Logger
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		engine:      classify.NewEngine(),
		dataPath:    "data/accounts.csv",
		strict:      true,
		workerCount: 1,
		queueSize:   4096,
		maxLimit:    1000,
		logger:      nil, // replaced on Start
	}

	for _, opt := range opts {
		opt(s)
	}

	s.store = repository.NewSnapshotStore(repository.WithMaxLimit(s.maxLimit))
	return s
}

// Start runs the first evaluation pass and arms the reload schedule.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting churnlens service...",
		logger.String("data_path", s.dataPath),
		logger.String("strategy", string(s.engine.Strategy())),
		logger.String("needs_review_policy", string(s.engine.Rules().Policy())),
	)

	if _, err := s.reload(ctx, TriggerStart); err != nil {
		return fmt.Errorf("initial evaluation: %w", err)
	}

	if s.schedule != "" {
		c := cron.New()
		if _, err := c.AddFunc(s.schedule, func() {
			_, _ = s.reload(context.Background(), TriggerSchedule)
		}); err != nil {
			return fmt.Errorf("reload schedule %q: %w", s.schedule, err)
		}
		c.Start()
		s.cron = c
	}

	s.started = true
	s.logger.Info(ctx, "churnlens service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.String("schedule", s.schedule),
	)
	return nil
}

// Stop halts scheduled reloads. The last snapshot stays readable.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping churnlens service...")

	if s.cron != nil {
		select {
		case <-s.cron.Stop().Done():
		case <-time.After(cronStopTimeout):
			s.logger.Warn(ctx, "scheduled reload still running at shutdown")
		}
		s.cron = nil
	}

	s.started = false
	s.logger.Info(ctx, "churnlens service stopped")
}

// Reload runs a fresh evaluation pass over the dataset. Concurrent calls are
// serialized; a failed pass keeps the previous snapshot.
func (s *Service) Reload(ctx context.Context) (types.RunInfo, error) {
	return s.reload(ctx, TriggerManual)
}

func (s *Service) reload(ctx context.Context, trigger string) (types.RunInfo, error) {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	start := time.Now()
	runID := uuid.NewString()
	log := s.log().With(logger.String("run_id", runID), logger.String("trigger", trigger))

	run, err := s.evaluate(ctx, log, runID, start)
	elapsed := float64(time.Since(start).Microseconds()) / 1000
	s.reloads.Add(1)
	if err != nil {
		s.reloadErrors.Add(1)
		metrics.RecordReloadError(trigger)
		metrics.RecordEvaluationPass(trigger, "error", elapsed)
		metrics.RecordErrorByComponent("service", "evaluation_failed")
		log.Error(ctx, "evaluation failed", logger.Error(err))
		return types.RunInfo{}, err
	}

	metrics.RecordEvaluationPass(trigger, "ok", elapsed)
	metrics.UpdateLastEvaluation(start.Unix())
	log.Info(ctx, "evaluation complete",
		logger.Int("accounts", s.store.Count(ctx)),
		logger.Int("rejected", run.Rejected),
		logger.Int("anomalies", run.Anomalies),
		logger.String("duration", run.Duration),
	)
	return run, nil
}

// evaluate loads, classifies and aggregates the dataset, then publishes it.
func (s *Service) evaluate(ctx context.Context, log logger.Logger, runID string, start time.Time) (types.RunInfo, error) {
	ds, err := loader.LoadFile(ctx, s.dataPath, loader.WithStrict(s.strict))
	if err != nil {
		var recErr *loader.RecordError
		if errors.As(err, &recErr) {
			metrics.RecordMalformedRecords(1)
		}
		return types.RunInfo{}, fmt.Errorf("load %s: %w", s.dataPath, err)
	}
	reportDataQuality(ctx, log, ds)

	var accounts []model.ClassifiedAccount
	if s.workerCount > 1 && len(ds.Records) > 1 {
		accounts, err = s.classifyParallel(ctx, ds.Records)
	} else {
		accounts, err = s.classifySequential(ctx, ds.Records)
	}
	if err != nil {
		return types.RunInfo{}, fmt.Errorf("classify: %w", err)
	}
	anomalies := reportAnomalies(ctx, log, accounts)

	ev := &evaluation{
		kpis:    portfolio.Aggregate(accounts),
		summary: portfolio.Summarize(accounts),
		run: types.RunInfo{
			RunID:       runID,
			EvaluatedAt: start.UTC(),
			Source:      s.dataPath,
			Strategy:    string(s.engine.Strategy()),
			Policy:      string(s.engine.Rules().Policy()),
			Rejected:    len(ds.Rejected),
			Duplicates:  ds.Duplicates,
			Anomalies:   anomalies,
		},
	}

	s.store.Replace(ctx, runID, start, accounts)
	ev.run.Duration = time.Since(start).Round(time.Microsecond).String()
	s.current.Store(ev)

	metrics.RecordAccountsEvaluated(len(accounts))
	counts := make(map[string]int, len(ev.kpis.CountByCategory))
	for c, n := range ev.kpis.CountByCategory {
		counts[string(c)] = n
	}
	metrics.UpdatePortfolio(ev.kpis.Accounts, ev.kpis.TotalARR, ev.kpis.TotalRevenueAtRisk, counts)

	return ev.run, nil
}

func (s *Service) classifySequential(ctx context.Context, records []model.AccountRecord) ([]model.ClassifiedAccount, error) {
	out := make([]model.ClassifiedAccount, len(records))
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = model.ClassifiedAccount{Record: rec, Classification: s.engine.Classify(rec)}
	}
	return out, nil
}

func reportDataQuality(ctx context.Context, log logger.Logger, ds loader.Dataset) {
	if n := len(ds.Rejected); n > 0 {
		metrics.RecordMalformedRecords(n)
		for _, r := range ds.Rejected {
			log.Warn(ctx, "skipped malformed record",
				logger.Int("line", r.Line),
				logger.String("field", r.Field),
				logger.String("value", r.Value),
				logger.Error(r.Err),
			)
		}
	}
	if n := len(ds.Duplicates); n > 0 {
		metrics.RecordDuplicateAccounts(n)
		for _, d := range ds.Duplicates {
			log.Warn(ctx, "duplicate account id",
				logger.String("account_id", d.AccountID),
				logger.Int("count", d.Count),
				logger.Any("lines", d.Lines),
			)
		}
	}
}

// reportAnomalies logs and counts unknown enumeration values and returns how
// many were seen.
func reportAnomalies(ctx context.Context, log logger.Logger, accounts []model.ClassifiedAccount) int {
	total := 0
	for i := range accounts {
		for _, a := range accounts[i].Classification.Anomalies {
			total++
			metrics.RecordUnknownEnumValue(a.Field)
			log.Warn(ctx, "unknown enumeration value",
				logger.String("account_id", accounts[i].Record.AccountID),
				logger.String("field", a.Field),
				logger.String("value", a.Value),
				logger.String("category", string(accounts[i].Classification.Category)),
			)
		}
	}
	return total
}

// log returns the service logger, falling back to the global one before Start.
func (s *Service) log() logger.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logger.Get().Named("service")
}
