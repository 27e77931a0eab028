// Package service runs recomputes and serves their standings.
package service

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	runqueue "github.com/okian/vists/internal/adapters/mq/queue"
	"github.com/okian/vists/internal/adapters/mq/worker"
	"github.com/okian/vists/internal/adapters/repository"
	"github.com/okian/vists/internal/domain/dedupe"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/internal/domain/types"
	"github.com/okian/vists/pkg/logger"
	"github.com/okian/vists/pkg/metrics"
)

const workerShutdownTimeout = 30 * time.Second

// Service accepts games tables, recomputes them one at a time and publishes
// the final ratings of each successful run as the current standings.
type Service struct {
	mu sync.RWMutex

	runner    *Runner
	standings *repository.TreapStore
	deduper   dedupe.Deduper
	queue     *runqueue.InMemoryQueue
	worker    *worker.InMemoryWorker

	queueSize    int
	dedupeSize   int
	topCacheSize int
	settings     model.Settings

	runsMu        sync.RWMutex
	runs          map[string]*types.Run
	runOrder      []string
	fingerprints  map[string]string
	byFingerprint map[string]string

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithQueueSize sets how many runs may wait for the worker.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets how many submissions are remembered for dedupe and
// run status.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithTopCacheSize sets the standings snapshot cache size.
func WithTopCacheSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.topCacheSize = size
		}
	}
}

// WithRunner sets the runner used by the worker.
func WithRunner(r *Runner) Option {
	return func(s *Service) {
		if r != nil {
			s.runner = r
		}
	}
}

// WithDefaultSettings sets the rating constants used when a submission
// carries none.
func WithDefaultSettings(settings model.Settings) Option {
	return func(s *Service) { s.settings = settings }
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service. Call Start before submitting.
func New(opts ...Option) *Service {
	s := &Service{
		queueSize:     64,
		dedupeSize:    1024,
		topCacheSize:  100,
		settings:      model.Settings{InitialRating: 1500, KFactor: 32, DifferenceDivisor: 400},
		runs:          make(map[string]*types.Run),
		fingerprints:  make(map[string]string),
		byFingerprint: make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start creates the components and starts the single worker.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Named("service")
	}
	if s.runner == nil {
		s.runner = NewRunner()
	}

	s.standings = repository.NewTreapStore(repository.WithTopCacheSize(s.topCacheSize))
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.queue = runqueue.NewInMemoryQueue(runqueue.WithCapacity(s.queueSize), runqueue.WithLogger(s.logger.Named("queue")))
	s.worker = worker.NewInMemoryWorker(s.queue, worker.RecomputerFunc(s.recompute), s.standings,
		worker.WithTracker(s),
		worker.WithLogger(s.logger.Named("worker")),
	)
	go s.worker.Run(ctx)

	s.started = true
	s.logger.Info(ctx, "service started",
		logger.Int("queue_size", s.queueSize),
		logger.Int("dedupe_size", s.dedupeSize),
	)
	return nil
}

// Stop closes the queue and waits for the current run. Runs still queued
// are marked failed.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}
	_ = s.queue.Close()

	sctx, cancel := context.WithTimeout(ctx, workerShutdownTimeout)
	defer cancel()
	err := s.worker.Shutdown(sctx)
	s.failQueued(ctx)

	s.started = false
	s.logger.Info(ctx, "service stopped")
	return err
}

// Submit queues a recompute of table. A table identical to one already
// submitted is not queued again; its earlier run id is returned instead.
func (s *Service) Submit(ctx context.Context, table model.Table, settings *model.Settings) (types.Submission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return types.Submission{}, ErrNotStarted
	}

	effective := s.settings
	if settings != nil {
		effective = *settings
	}
	fp := fingerprint(table, effective)

	if s.deduper.SeenAndRecord(ctx, fp) {
		s.runsMu.RLock()
		id, ok := s.byFingerprint[fp]
		s.runsMu.RUnlock()
		if ok {
			metrics.RecordLedgerDuplicate()
			s.logger.Debug(ctx, "duplicate submission", logger.String("run_id", id))
			return types.Submission{RunID: id, Duplicate: true}, nil
		}
		// The run this fingerprint belonged to was evicted; queue it again.
	}

	id := uuid.NewString()
	s.track(ctx, id, fp)

	req := model.RunRequest{ID: id, Fingerprint: fp, Table: table.Clone(), Settings: effective}
	if err := s.queue.Enqueue(ctx, req); err != nil {
		s.forget(ctx, id)
		s.logger.Warn(ctx, "run rejected", logger.Error(err))
		return types.Submission{}, fmt.Errorf("%w: %w", ErrBackpressure, err)
	}

	s.logger.Info(ctx, "run queued", logger.String("run_id", id), logger.Int("rows", len(table)-1))
	return types.Submission{RunID: id}, nil
}

// Run returns the status of a submitted run.
func (s *Service) Run(_ context.Context, id string) (types.Run, error) {
	s.runsMu.RLock()
	defer s.runsMu.RUnlock()
	r, ok := s.runs[id]
	if !ok {
		return types.Run{}, ErrRunNotFound
	}
	return *r, nil
}

// TopN returns the first n standings.
func (s *Service) TopN(ctx context.Context, n int) ([]types.Standing, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	entries, err := s.standings.TopN(ctx, n)
	if err != nil {
		return nil, err
	}
	out := make([]types.Standing, len(entries))
	for i, e := range entries {
		out[i] = standing(e)
	}
	return out, nil
}

// Rank returns one player's standing.
func (s *Service) Rank(ctx context.Context, player string) (types.Standing, error) {
	if err := s.ready(); err != nil {
		return types.Standing{}, err
	}
	e, err := s.standings.Rank(ctx, player)
	if err != nil {
		return types.Standing{}, err
	}
	return standing(e), nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]any{
		"started":    s.started,
		"queueSize":  s.queueSize,
		"dedupeSize": s.dedupeSize,
	}
	if s.started {
		queueLen := s.queue.Len(ctx)
		stats["queueLength"] = queueLen
		stats["players"] = s.standings.Count(ctx)
		stats["fingerprints"] = s.deduper.Size()
		metrics.UpdateQueueSize(queueLen)
	}

	s.runsMu.RLock()
	counts := make(map[types.RunState]int, 4)
	for _, r := range s.runs {
		counts[r.State]++
	}
	s.runsMu.RUnlock()
	stats["runs"] = counts
	return stats
}

// Started marks a run as running.
func (s *Service) Started(_ context.Context, id string) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	if r, ok := s.runs[id]; ok {
		r.State = types.RunRunning
	}
}

// Finished records the outcome of a run. A failed submission is forgotten
// by the deduper so it may be sent again.
func (s *Service) Finished(ctx context.Context, id string, res worker.Result, err error) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	r, ok := s.runs[id]
	if !ok {
		return
	}
	r.FinishedAt = time.Now().UTC()
	if err != nil {
		s.deduper.Unrecord(ctx, s.fingerprints[id])
		r.State = types.RunFailed
		r.Error = err.Error()
		return
	}
	r.State = types.RunDone
	r.Games = res.Games
	r.Players = len(res.Ratings)
}

// failQueued marks runs that never reached the worker as failed.
func (s *Service) failQueued(ctx context.Context) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	for id, r := range s.runs {
		if r.State != types.RunQueued {
			continue
		}
		s.deduper.Unrecord(ctx, s.fingerprints[id])
		r.State = types.RunFailed
		r.Error = worker.ErrShutdown.Error()
		r.FinishedAt = time.Now().UTC()
	}
}

func (s *Service) recompute(ctx context.Context, r worker.Request) (worker.Result, error) { //nolint:gocritic // hugeParam
	res, err := s.runner.Recompute(ctx, r.Table, r.Settings)
	if err != nil {
		return worker.Result{}, err
	}
	return worker.Result{
		Games:   res.Games,
		Ratings: res.Ratings.All(),
		Counts:  res.Ratings.Games(),
	}, nil
}

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.standings == nil {
		return ErrNotStarted
	}
	return nil
}

// track registers a queued run, evicting the oldest once dedupeSize runs
// are remembered.
func (s *Service) track(ctx context.Context, id, fp string) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()

	if len(s.runOrder) >= s.dedupeSize {
		oldest := s.runOrder[0]
		s.runOrder = s.runOrder[1:]
		s.dropLocked(ctx, oldest)
	}
	s.runs[id] = &types.Run{ID: id, State: types.RunQueued, SubmittedAt: time.Now().UTC()}
	s.runOrder = append(s.runOrder, id)
	s.fingerprints[id] = fp
	s.byFingerprint[fp] = id
}

func (s *Service) forget(ctx context.Context, id string) {
	s.runsMu.Lock()
	defer s.runsMu.Unlock()
	s.dropLocked(ctx, id)
	for i, v := range s.runOrder {
		if v == id {
			s.runOrder = append(s.runOrder[:i], s.runOrder[i+1:]...)
			break
		}
	}
}

// dropLocked removes a run. A fingerprint whose latest run is dropped is
// also forgotten by the deduper, so the registry and the deduper agree on
// which submissions count as duplicates.
func (s *Service) dropLocked(ctx context.Context, id string) {
	fp := s.fingerprints[id]
	if s.byFingerprint[fp] == id {
		delete(s.byFingerprint, fp)
		s.deduper.Unrecord(ctx, fp)
	}
	delete(s.fingerprints, id)
	delete(s.runs, id)
}

// fingerprint identifies a submission by its cells and the constants it is
// rated with.
func fingerprint(table model.Table, settings model.Settings) string {
	withSettings := append(model.Table{{
		strconv.FormatFloat(settings.InitialRating, 'g', -1, 64),
		strconv.Itoa(settings.KFactor),
		strconv.Itoa(settings.DifferenceDivisor),
	}}, table...)
	return dedupe.Fingerprint(withSettings)
}

func standing(e repository.Entry) types.Standing {
	return types.Standing{Rank: e.Rank, Player: e.Player, Rating: e.Rating, Games: e.Games}
}
