package rollout

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
	"github.com/stackgraph/stackgraph/graph"
	"github.com/stackgraph/stackgraph/synth"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// DefaultConcurrency is the default maximum number of resources provisioned
// or probed at the same time.
var DefaultConcurrency = runtime.NumCPU() * 2

// A Provisioner creates resources.
type Provisioner interface {
	Provision(ctx context.Context, res synth.Resource) error
}

// A Prober evaluates the gate predicate of a provisioned resource. A nil
// error means the gate is ready. Errors are retried unless wrapped with
// backoff.Permanent.
type Prober interface {
	Probe(ctx context.Context, res synth.Resource) error
}

// A Runner rolls out documents.
type Runner struct {
	// Provisioner creates resources. If not set, LogProvisioner with the
	// runner's logger is used.
	Provisioner Provisioner

	// Prober evaluates pending gates. If not set, every gate is ready.
	Prober Prober

	// Concurrency sets the maximum allowed concurrency to use.
	// If not set, DefaultConcurrency is used.
	Concurrency int

	// Logger logs rollout progress. If not set, logs are discarded.
	Logger *zap.Logger

	// Backoff is the backoff algorithm used for probing gates. If not set,
	// exponential backoff is used.
	Backoff func() backoff.BackOff
}

// Run rolls out a document. An error is only returned if the rollout could not
// complete, for example because ctx was cancelled; failed and blocked
// resources are reported in the result.
func (r *Runner) Run(ctx context.Context, doc *synth.Document) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	algo := r.Backoff
	if algo == nil {
		algo = func() backoff.BackOff {
			return backoff.NewExponentialBackOff()
		}
	}
	provisioner := r.Provisioner
	if provisioner == nil {
		provisioner = LogProvisioner{Logger: logger}
	}
	prober := r.Prober
	if prober == nil {
		prober = StaticProber{}
	}
	c := r.Concurrency
	if c <= 0 {
		c = DefaultConcurrency
	}

	id := ksuid.New().String()
	logger = logger.With(
		zap.String("stack", doc.Stack),
		zap.String("job_id", id),
	)
	logger.Info("Rollout", zap.Int("resources", len(doc.Resources)))
	logger.Debug("Set concurrency", zap.Int("max", c))

	j := &job{
		provisioner: provisioner,
		prober:      prober,
		backoff:     algo,
		sem:         semaphore.NewWeighted(int64(c)),
		logger:      logger,
		state:       make(map[string]*state, len(doc.Resources)),
	}
	for _, res := range doc.Resources {
		j.state[res.Name] = &state{done: make(chan struct{})}
	}
	for _, res := range doc.Resources {
		for _, dep := range append(append([]string(nil), res.DependsOn...), res.ReadyAfter...) {
			if _, ok := j.state[dep]; !ok {
				return nil, errors.Errorf("%s depends on %s, which is not in the document", res.Name, dep)
			}
		}
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for _, res := range doc.Resources {
		res := res
		g.Go(func() error {
			return j.process(gctx, res)
		})
	}
	if err := g.Wait(); err != nil {
		return nil, errors.Wrap(err, "rollout")
	}

	result := &Result{
		JobID: id,
		Stack: doc.Stack,
		Nodes: make([]NodeResult, len(doc.Resources)),
	}
	for i, res := range doc.Resources {
		result.Nodes[i] = j.state[res.Name].result
		result.Nodes[i].Name = res.Name
	}
	logger.Info("Done", zap.Duration("elapsed", time.Since(start)), zap.Stringer("result", result))
	return result, nil
}

type state struct {
	done   chan struct{}
	result NodeResult
}

type job struct {
	provisioner Provisioner
	prober      Prober
	backoff     func() backoff.BackOff
	sem         *semaphore.Weighted
	logger      *zap.Logger

	// state is not modified after creation; results are written before done
	// is closed.
	state map[string]*state
}

func (j *job) wait(ctx context.Context, name string) (NodeResult, error) {
	s := j.state[name]
	select {
	case <-s.done:
		return s.result, nil
	case <-ctx.Done():
		return NodeResult{}, ctx.Err()
	}
}

// blockedBy returns the result for a resource whose dependency is not
// satisfied, or nil.
func (j *job) blockedBy(ctx context.Context, res synth.Resource) (*NodeResult, error) {
	for _, dep := range res.DependsOn {
		r, err := j.wait(ctx, dep)
		if err != nil {
			return nil, err
		}
		if !r.Outcome.Exists() {
			return &NodeResult{Outcome: Blocked, Via: dep, Reason: fmt.Sprintf("%s does not exist (%s)", dep, r.Outcome)}, nil
		}
	}
	for _, dep := range res.ReadyAfter {
		r, err := j.wait(ctx, dep)
		if err != nil {
			return nil, err
		}
		if r.Outcome != Ready {
			return &NodeResult{Outcome: Blocked, Via: dep, Reason: fmt.Sprintf("%s is not ready (%s)", dep, r.Outcome)}, nil
		}
	}
	return nil, nil
}

func (j *job) process(ctx context.Context, res synth.Resource) error {
	s := j.state[res.Name]
	logger := j.logger.With(zap.String("resource", res.Name), zap.String("kind", string(res.Kind)))

	blocked, err := j.blockedBy(ctx, res)
	if err != nil {
		return err
	}
	if blocked != nil {
		logger.Info("Blocked", zap.String("via", blocked.Via), zap.String("reason", blocked.Reason))
		s.result = *blocked
		close(s.done)
		return nil
	}

	if err := j.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer j.sem.Release(1)
	defer close(s.done)

	logger.Info("Provisioning")
	if err := j.provisioner.Provision(ctx, res); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Provisioning failed", zap.Error(err))
		s.result = NodeResult{Outcome: ProvisionFailed, Reason: err.Error()}
		return nil
	}

	if res.Gate == nil || res.Gate.Status == graph.Ready {
		s.result = NodeResult{Outcome: Ready}
		return nil
	}

	logger.Debug("Probing gate", zap.String("predicate", res.Gate.Predicate))
	op := func() error {
		return j.prober.Probe(ctx, res)
	}
	notify := func(err error, dur time.Duration) {
		logger.Info("Retrying", zap.Error(err), zap.Duration("duration", dur))
	}
	if err := backoff.RetryNotify(op, backoff.WithContext(j.backoff(), ctx), notify); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		logger.Warn("Gate failed", zap.Error(err))
		s.result = NodeResult{Outcome: GateFailed, Reason: err.Error()}
		return nil
	}
	logger.Info("Gate ready")
	s.result = NodeResult{Outcome: Ready}
	return nil
}
