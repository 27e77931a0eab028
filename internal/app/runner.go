package service

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/vists/internal/domain/ledger"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/internal/domain/rating"
	"github.com/okian/vists/internal/domain/sequence"
	"github.com/okian/vists/pkg/logger"
	"github.com/okian/vists/pkg/metrics"
)

// Result is the outcome of a successful recompute.
type Result struct {
	Ledger  *ledger.Ledger
	Ratings *rating.Ratings
	Games   int

	// Columns holds the four computed columns in row order.
	Columns map[model.Field][]string
}

// Table returns the games table with computed values filled in.
func (r *Result) Table() model.Table { return r.Ledger.Table() }

// ComputedColumns returns Columns keyed by header label.
func (r *Result) ComputedColumns() map[string][]string {
	out := make(map[string][]string, len(r.Columns))
	for f, values := range r.Columns {
		out[r.Ledger.Label(f)] = values
	}
	return out
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithSchema sets the column labels of the games table.
func WithSchema(schema model.Schema) RunnerOption {
	return func(r *Runner) { r.schema = schema }
}

// WithEngineOptions adds rating engine options applied on every run.
func WithEngineOptions(opts ...rating.Option) RunnerOption {
	return func(r *Runner) { r.engineOpts = append(r.engineOpts, opts...) }
}

// WithRunnerLogger sets the runner logger.
func WithRunnerLogger(l logger.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// Runner recomputes every rating of a games table from scratch.
type Runner struct {
	schema     model.Schema
	engineOpts []rating.Option
	logger     logger.Logger
}

// NewRunner creates a Runner.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{schema: model.DefaultSchema()}
	for _, opt := range opts {
		opt(r)
	}
	if r.logger == nil {
		r.logger = logger.Named("runner")
	}
	return r
}

// Recompute walks the games of table in ascending id order, rating each game
// from the ratings left by the previous ones. On any error no result is
// returned, so nothing computed by a failed run can be flushed.
func (r *Runner) Recompute(ctx context.Context, table model.Table, settings model.Settings) (*Result, error) {
	start := time.Now()
	res, err := r.recompute(ctx, table, settings)
	metrics.RecordRunDuration(float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordRun("failed")
		r.logger.Error(ctx, "recompute failed", logger.Error(err))
		return nil, err
	}

	metrics.RecordRun("success")
	metrics.UpdatePlayersRated(res.Ratings.Len())
	r.logger.Info(ctx, "recompute finished",
		logger.Int("games", res.Games),
		logger.Int("players", res.Ratings.Len()),
		logger.Int("rows", res.Ledger.Rows()),
		logger.Duration("took", time.Since(start)),
	)
	return res, nil
}

func (r *Runner) recompute(ctx context.Context, table model.Table, settings model.Settings) (*Result, error) {
	engine, err := rating.NewEngine(append([]rating.Option{rating.WithSettings(settings)}, r.engineOpts...)...)
	if err != nil {
		metrics.RecordErrorByComponent("runner", "params")
		return nil, err
	}

	l, err := ledger.New(table, ledger.WithSchema(r.schema))
	if err != nil {
		metrics.RecordErrorByComponent("ledger", "load")
		return nil, err
	}

	proc := sequence.New(l)
	ratings := engine.NewRatings()
	r.logger.Info(ctx, "recompute started",
		logger.Int("games", proc.Len()),
		logger.Float64("initial_rating", settings.InitialRating),
		logger.Int("k_factor", settings.KFactor),
		logger.Int("difference_divisor", settings.DifferenceDivisor),
	)

	for !proc.IsFinished() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		snap, err := proc.Next()
		if err != nil {
			return nil, err
		}
		outcomes, err := engine.Rate(snap.Participants(), ratings)
		if err != nil {
			metrics.RecordErrorByComponent("engine", "rate")
			return nil, fmt.Errorf("game %s: %w", snap.ID(), err)
		}
		if err := snap.Merge(rating.Updates(outcomes)); err != nil {
			return nil, fmt.Errorf("game %s: %w", snap.ID(), err)
		}
		if err := proc.Commit(snap); err != nil {
			metrics.RecordErrorByComponent("processor", "commit")
			return nil, fmt.Errorf("game %s: %w", snap.ID(), err)
		}
		ratings.Apply(outcomes)
		metrics.RecordGameProcessed()

		r.logger.Debug(ctx, "game rated",
			logger.String("game", snap.ID().String()),
			logger.Int("players", len(outcomes)),
		)
	}

	columns := make(map[model.Field][]string, len(model.ComputedFields))
	for _, f := range model.ComputedFields {
		values, err := l.ColumnValues(f)
		if err != nil {
			return nil, err
		}
		columns[f] = values
	}

	return &Result{
		Ledger:  l,
		Ratings: ratings,
		Games:   proc.Committed(),
		Columns: columns,
	}, nil
}
