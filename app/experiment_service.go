package app

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"robustbai/domain/bandit"
	"robustbai/domain/core"
	"robustbai/internal"
	"robustbai/internal/identifier"
	"robustbai/ports"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"
)

// ExperimentService runs repeated identification trials of one algorithm
type ExperimentService struct {
	envFactory ports.EnvironmentFactory
	rngPort    ports.RNGPort
	logger     *internal.Logger
}

// ExperimentRequest defines the inputs for a batch of trials
type ExperimentRequest struct {
	Name          string
	Instance      bandit.Instance
	Algorithm     string
	Params        identifier.Params
	MaxIterations int
	Trials        int
	Workers       int
	Seed          int64
	RunID         core.RunID // optional, will be generated if empty
}

// NewExperimentService creates an experiment service
func NewExperimentService(envFactory ports.EnvironmentFactory, rngPort ports.RNGPort, logger *internal.Logger) *ExperimentService {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	return &ExperimentService{
		envFactory: envFactory,
		rngPort:    rngPort,
		logger:     logger.Named("experiment"),
	}
}

// Run executes every trial with at most req.Workers in flight. Each trial
// draws its environment seed and tie-break source from its own RNG stream,
// so results do not depend on scheduling. A trial that hits its iteration
// cap is recorded as not converged; any other error aborts the experiment.
func (s *ExperimentService) Run(ctx context.Context, req ExperimentRequest) (*bandit.Experiment, error) {
	startTime := core.Now()

	if err := req.Instance.Validate(); err != nil {
		return nil, err
	}
	if req.Trials < 1 {
		return nil, fmt.Errorf("%w: trials must be at least 1, got %d", core.ErrInvalidConfig, req.Trials)
	}
	workers := req.Workers
	if workers < 1 {
		workers = 1
	}

	// Fail on a bad algorithm name or parameters before spawning anything
	probe, err := identifier.New(req.Algorithm, req.Params)
	if err != nil {
		return nil, err
	}
	algorithm := probe.Name()

	runID := req.RunID
	if runID.IsEmpty() {
		runID = core.NewRunID()
	}

	s.logger.Info("run %s: %d trials of %s on instance %s (%d groups, %d arms), %d workers",
		runID, req.Trials, algorithm, req.Instance.Fingerprint().Short(),
		req.Instance.NumGroups(), req.Instance.NumArms(), workers)

	results := make([]bandit.TrialResult, req.Trials)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for trial := 0; trial < req.Trials; trial++ {
		trial := trial
		g.Go(func() error {
			res, err := s.runTrial(gctx, runID, algorithm, req, trial)
			if err != nil {
				return fmt.Errorf("trial %d: %w", trial, err)
			}
			results[trial] = res
			s.logger.Debug("trial %d/%d: groups=%v samples=%d converged=%t",
				done.Add(1), req.Trials, res.Groups, res.Samples, res.Converged)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	summary, err := Summarize(results)
	if err != nil {
		return nil, err
	}

	exp := &bandit.Experiment{
		RunID:       runID,
		Name:        req.Name,
		Algorithm:   algorithm,
		Fingerprint: req.Instance.Fingerprint(),
		Instance:    req.Instance,
		BestGroups:  req.Instance.BestGroups(),
		BaseSeed:    req.Seed,
		Trials:      results,
		Summary:     summary,
		StartedAt:   startTime,
		Elapsed:     startTime.Since(),
	}

	s.logger.Info("run %s: accuracy %.3f, mean samples %.1f, %d not converged, took %v",
		runID, summary.Accuracy, summary.Samples.Mean, summary.Failed, exp.Elapsed)
	return exp, nil
}

func (s *ExperimentService) runTrial(ctx context.Context, runID core.RunID, algorithm bandit.Algorithm, req ExperimentRequest, trial int) (bandit.TrialResult, error) {
	rng, err := s.rngPort.Stream(ctx, runID.String(), string(algorithm), trial, req.Seed)
	if err != nil {
		return bandit.TrialResult{}, err
	}

	// Environment seed first, then the same stream breaks ties
	envSeed := rng.Int63()
	env, err := s.envFactory(req.Instance, envSeed)
	if err != nil {
		return bandit.TrialResult{}, err
	}

	id, err := identifier.New(string(algorithm), req.Params,
		identifier.WithRand(rng),
		identifier.WithLogger(s.logger),
		identifier.WithMaxIterations(req.MaxIterations),
	)
	if err != nil {
		return bandit.TrialResult{}, err
	}

	start := time.Now()
	out, err := id.Identify(ctx, env)
	if err != nil && !core.IsNonConvergenceError(err) {
		return bandit.TrialResult{}, err
	}

	return bandit.TrialResult{
		Trial:     trial,
		Seed:      envSeed,
		Groups:    out.Groups,
		Samples:   out.Samples,
		Rounds:    out.Rounds,
		Correct:   bandit.IsCorrect(req.Instance, out),
		Converged: out.Converged,
		Elapsed:   time.Since(start),
	}, nil
}

// Summarize aggregates trial results. Sample statistics cover every trial,
// converged or not.
func Summarize(results []bandit.TrialResult) (bandit.Summary, error) {
	if len(results) == 0 {
		return bandit.Summary{}, fmt.Errorf("%w: no trials to summarize", core.ErrDegenerateInput)
	}

	summary := bandit.Summary{Trials: len(results)}
	samples := make(stats.Float64Data, len(results))
	for i, r := range results {
		samples[i] = float64(r.Samples)
		if r.Correct {
			summary.Correct++
		}
		if !r.Converged {
			summary.Failed++
		}
	}
	summary.Accuracy = float64(summary.Correct) / float64(summary.Trials)

	var err error
	if summary.Samples.Mean, err = stats.Mean(samples); err != nil {
		return bandit.Summary{}, err
	}
	if summary.Samples.StdDev, err = stats.StandardDeviation(samples); err != nil {
		return bandit.Summary{}, err
	}
	if summary.Samples.Median, err = stats.Median(samples); err != nil {
		return bandit.Summary{}, err
	}
	if summary.Samples.P90, err = stats.Percentile(samples, 90); err != nil {
		return bandit.Summary{}, err
	}
	if summary.Samples.Min, err = stats.Min(samples); err != nil {
		return bandit.Summary{}, err
	}
	if summary.Samples.Max, err = stats.Max(samples); err != nil {
		return bandit.Summary{}, err
	}
	return summary, nil
}
