package worker

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/mfadel/brontes/internal/model"
	"github.com/mfadel/brontes/internal/remote"
	"github.com/mfadel/brontes/internal/store"
)

// ErrAlreadyStarted is returned by Start when the supervisor is running.
var ErrAlreadyStarted = errors.New("supervisor already started")

// Options holds process-wide runtime tuning consumed by the supervisor.
type Options struct {
	// MaxPollBatch caps the number of items requested in one poll call.
	MaxPollBatch int
	// BackoffCap bounds the exponential backoff applied to failing polls
	// and report deliveries.
	BackoffCap time.Duration
	// RebuildGrace is the drain budget used when a live re-registration or
	// unregistration tears down an existing pipeline.
	RebuildGrace time.Duration
	// Journal, when set, persists reports dropped after exhausted retries.
	Journal store.Journal
}

func (o Options) withDefaults() Options {
	if o.MaxPollBatch <= 0 {
		o.MaxPollBatch = 10
	}
	if o.BackoffCap <= 0 {
		o.BackoffCap = 60 * time.Second
	}
	if o.RebuildGrace <= 0 {
		o.RebuildGrace = 30 * time.Second
	}
	return o
}

// Health is the process-wide snapshot exposed for external monitoring.
type Health struct {
	Running      bool              `json:"running"`
	RegistrySize int               `json:"registry_size"`
	Pools        []model.PoolState `json:"pools"`
}

// pipeline groups the per-task-type runtime pieces built by Start.
type pipeline struct {
	spec       Spec
	state      *poolState
	pool       *pool
	leases     *leaseManager
	cancelPoll context.CancelFunc
	pollerDone chan struct{}
}

// Supervisor owns the registry and the lifecycle of every poller/pool pair
// in the process. Registration is accepted before or after Start; a live
// re-registration drains and rebuilds the pipeline for that task type.
type Supervisor struct {
	registry *Registry
	api      remote.API
	opts     Options
	logger   *slog.Logger

	mu        sync.Mutex
	running   bool
	pipelines map[string]*pipeline
}

// NewSupervisor creates a supervisor with its own registry.
func NewSupervisor(api remote.API, opts Options, logger *slog.Logger) *Supervisor {
	return &Supervisor{
		registry:  NewRegistry(),
		api:       api,
		opts:      opts.withDefaults(),
		logger:    logger,
		pipelines: make(map[string]*pipeline),
	}
}

// Register validates and stores the spec. If the supervisor is running, the
// task type's existing pipeline (if any) is drained and a new one built from
// the replacing spec — last registration wins.
func (s *Supervisor) Register(spec Spec) error {
	if err := s.registry.Register(spec); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return nil
	}

	if pl, ok := s.pipelines[spec.TaskType]; ok {
		s.teardown(pl, s.opts.RebuildGrace)
	}
	normalized, _ := s.registry.Get(spec.TaskType)
	s.pipelines[spec.TaskType] = s.launch(normalized)
	s.logger.Info("executor registered", "task_type", spec.TaskType, "concurrency", normalized.Concurrency)
	return nil
}

// Unregister removes the spec and, when running, stops the associated
// pipeline after the current work drains.
func (s *Supervisor) Unregister(taskType string) {
	s.registry.Unregister(taskType)

	s.mu.Lock()
	defer s.mu.Unlock()
	pl, ok := s.pipelines[taskType]
	if !ok {
		return
	}
	delete(s.pipelines, taskType)
	s.teardown(pl, s.opts.RebuildGrace)
	s.logger.Info("executor unregistered", "task_type", taskType)
}

// Specs returns a snapshot of all registered executor specs.
func (s *Supervisor) Specs() []Spec {
	return s.registry.List()
}

// Start builds one poller/pool pair per registered spec and begins polling
// concurrently.
func (s *Supervisor) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return ErrAlreadyStarted
	}

	for _, spec := range s.registry.List() {
		s.pipelines[spec.TaskType] = s.launch(spec)
	}
	s.running = true
	s.logger.Info("supervisor started", "task_types", len(s.pipelines))
	return nil
}

// Stop signals all pollers to stop issuing new polls, waits up to grace for
// in-flight dispatches to drain, then tears down remaining resources. A zero
// grace abandons in-flight work immediately.
func (s *Supervisor) Stop(grace time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}

	// Stop all pollers first so no new work arrives mid-drain.
	for _, pl := range s.pipelines {
		pl.cancelPoll()
	}
	for _, pl := range s.pipelines {
		<-pl.pollerDone
	}

	// Drain the pools concurrently within the shared grace budget.
	var wg sync.WaitGroup
	for _, pl := range s.pipelines {
		wg.Add(1)
		go func(pl *pipeline) {
			defer wg.Done()
			pl.pool.stop(grace)
			if pl.leases != nil {
				pl.leases.stop()
			}
		}(pl)
	}
	wg.Wait()

	s.pipelines = make(map[string]*pipeline)
	s.running = false
	s.logger.Info("supervisor stopped")
}

// Health returns the per-task-type pool states plus the registry size.
func (s *Supervisor) Health() Health {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := Health{
		Running:      s.running,
		RegistrySize: s.registry.Len(),
		Pools:        make([]model.PoolState, 0, len(s.pipelines)),
	}
	for _, pl := range s.pipelines {
		h.Pools = append(h.Pools, pl.state.snapshot())
	}
	sort.Slice(h.Pools, func(i, j int) bool {
		return h.Pools[i].TaskType < h.Pools[j].TaskType
	})
	return h
}

// launch builds and starts the pipeline for one spec. Callers hold s.mu.
func (s *Supervisor) launch(spec Spec) *pipeline {
	state := newPoolState(spec.TaskType)

	var leases *leaseManager
	if spec.LeaseExtendEnabled {
		leases = newLeaseManager(s.api, spec.TaskType, spec.LeaseExtendInterval, state, s.logger)
	}

	rep := newReporter(s.api, s.opts.BackoffCap, s.opts.Journal, s.logger)

	// Queue capacity absorbs a full batch on top of the slots so the poller
	// never blocks on handler execution, even if the server over-delivers.
	queueCap := spec.Concurrency + s.opts.MaxPollBatch
	pl := &pipeline{
		spec:   spec,
		state:  state,
		pool:   newPool(spec, queueCap, state, rep, leases, s.logger),
		leases: leases,
	}

	ctx, cancel := context.WithCancel(context.Background())
	pl.cancelPoll = cancel
	pl.pollerDone = make(chan struct{})

	po := &poller{
		spec:       spec,
		api:        s.api,
		pool:       pl.pool,
		state:      state,
		maxBatch:   s.opts.MaxPollBatch,
		backoffCap: s.opts.BackoffCap,
		logger:     s.logger,
	}
	go func() {
		defer close(pl.pollerDone)
		po.run(ctx)
	}()

	return pl
}

// teardown stops one pipeline: poller first, then pool drain, then leases.
// Callers hold s.mu.
func (s *Supervisor) teardown(pl *pipeline, grace time.Duration) {
	pl.cancelPoll()
	<-pl.pollerDone
	pl.pool.stop(grace)
	if pl.leases != nil {
		pl.leases.stop()
	}
}
