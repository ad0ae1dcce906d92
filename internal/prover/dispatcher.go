package prover

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/hyle-oof/oofprover/internal/metrics"
	"github.com/hyle-oof/oofprover/internal/models"
)

// DefaultMaxConcurrency bounds simultaneous calls to the prover.
const DefaultMaxConcurrency = 4

// ErrDispatcherClosed is reported for jobs dispatched after Shutdown.
var ErrDispatcherClosed = errors.New("dispatcher closed")

const (
	outcomeSubmitted   = "submitted"
	outcomeProveError  = "prove_error"
	outcomeSubmitError = "submit_error"
	outcomeCancelled   = "cancelled"
)

// TaskState is the stage an outstanding proof task is in.
type TaskState int

const (
	// TaskWaiting means the task is waiting for a prover slot.
	TaskWaiting TaskState = iota
	// TaskProving means the prover is computing the proof.
	TaskProving
	// TaskSubmitting means the proof is being sent to the chain.
	TaskSubmitting
)

func (s TaskState) String() string {
	switch s {
	case TaskWaiting:
		return "Waiting"
	case TaskProving:
		return "Proving"
	case TaskSubmitting:
		return "Submitting"
	default:
		return "Unknown"
	}
}

// Task describes an outstanding proof task.
type Task struct {
	ID           string
	Contract     models.ContractName
	TxHash       models.TxHash
	State        TaskState
	DispatchedAt time.Time
}

// Dispatcher runs each job in its own goroutine and keeps a registry of the
// tasks that have not finished yet. Tasks are never retried.
type Dispatcher struct {
	prover    Prover
	submitter Submitter
	observer  Observer
	metrics   *metrics.Metrics
	sem       *semaphore.Weighted
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.Mutex
	tasks  map[string]*Task
	closed bool
}

// DispatcherOption customises the dispatcher.
type DispatcherOption func(*dispatcherOptions)

type dispatcherOptions struct {
	observer       Observer
	metrics        *metrics.Metrics
	maxConcurrency int64
	now            func() time.Time
}

// WithObserver reports finished tasks to o.
func WithObserver(o Observer) DispatcherOption {
	return func(opts *dispatcherOptions) { opts.observer = o }
}

// WithMetrics records task outcomes on m.
func WithMetrics(m *metrics.Metrics) DispatcherOption {
	return func(opts *dispatcherOptions) { opts.metrics = m }
}

// WithMaxConcurrency bounds the number of simultaneous prover calls.
func WithMaxConcurrency(n int) DispatcherOption {
	return func(opts *dispatcherOptions) { opts.maxConcurrency = int64(n) }
}

// WithClock sets the function used to timestamp tasks.
func WithClock(now func() time.Time) DispatcherOption {
	return func(opts *dispatcherOptions) { opts.now = now }
}

// NewDispatcher creates a dispatcher proving with p and submitting with s.
func NewDispatcher(p Prover, s Submitter, opts ...DispatcherOption) *Dispatcher {
	o := dispatcherOptions{maxConcurrency: DefaultMaxConcurrency, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxConcurrency <= 0 {
		o.maxConcurrency = DefaultMaxConcurrency
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		prover:    p,
		submitter: s,
		observer:  o.observer,
		metrics:   o.metrics,
		sem:       semaphore.NewWeighted(o.maxConcurrency),
		now:       o.now,
		ctx:       ctx,
		cancel:    cancel,
		tasks:     make(map[string]*Task),
	}
}

// Dispatch starts a proof task for job and returns its id without waiting for
// a prover slot. The job is copied so the caller may keep mutating its inputs.
func (d *Dispatcher) Dispatch(job Job) string {
	if job.Calldata == nil {
		slog.Error("Dropping proof job without calldata", "contract", job.Contract)
		return ""
	}
	job = job.clone()
	task := &Task{
		ID:           uuid.NewString(),
		Contract:     job.Contract,
		TxHash:       job.Calldata.TxHash,
		State:        TaskWaiting,
		DispatchedAt: d.now(),
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		slog.Warn("Dropping proof job", "tx", task.TxHash, "contract", task.Contract, "error", ErrDispatcherClosed)
		return ""
	}
	d.tasks[task.ID] = task
	d.wg.Add(1)
	d.mu.Unlock()

	d.metrics.ProofStarted()
	go d.run(task, job)
	return task.ID
}

func (d *Dispatcher) run(task *Task, job Job) {
	defer d.wg.Done()
	start := d.now()

	outcome, proofTxHash, err := d.prove(task, job)

	d.mu.Lock()
	delete(d.tasks, task.ID)
	d.mu.Unlock()

	took := d.now().Sub(start)
	d.metrics.ProofFinished(string(task.Contract), outcome, took)
	if d.observer != nil {
		rec := models.ProofRecord{
			TaskID:       task.ID,
			ContractName: task.Contract,
			TxHash:       task.TxHash,
			ProofTxHash:  proofTxHash,
			Duration:     took,
			FinishedAt:   d.now(),
		}
		if err != nil {
			rec.Error = err.Error()
		}
		d.observer.ObserveProof(rec)
	}
}

func (d *Dispatcher) prove(task *Task, job Job) (string, models.TxHash, error) {
	if err := d.sem.Acquire(d.ctx, 1); err != nil {
		return outcomeCancelled, "", err
	}
	defer d.sem.Release(1)

	d.setState(task.ID, TaskProving)
	slog.Info("Proving tx", "tx", task.TxHash, "contract", task.Contract, "task", task.ID)

	proof, err := d.prover.Prove(d.ctx, job.CommitmentMetadata, job.Calldata)
	if err != nil {
		if d.ctx.Err() != nil {
			return outcomeCancelled, "", err
		}
		slog.Error("Error proving tx", "tx", task.TxHash, "contract", task.Contract, "error", err)
		return outcomeProveError, "", err
	}
	slog.Info("Proof generated for tx", "tx", task.TxHash, "contract", task.Contract)

	d.setState(task.ID, TaskSubmitting)
	proofTxHash, err := d.submitter.SendTxProof(d.ctx, models.ProofTransaction{
		ContractName: job.Contract,
		Proof:        proof,
	})
	if err != nil {
		slog.Error("Failed to send proof to node", "tx", task.TxHash, "contract", task.Contract, "error", err)
		return outcomeSubmitError, "", err
	}
	slog.Info("Proof submitted", "tx", task.TxHash, "contract", task.Contract, "proofTx", proofTxHash)
	return outcomeSubmitted, proofTxHash, nil
}

func (d *Dispatcher) setState(id string, state TaskState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if task, ok := d.tasks[id]; ok {
		task.State = state
	}
}

// Outstanding returns a snapshot of unfinished tasks ordered by dispatch time.
func (d *Dispatcher) Outstanding() []Task {
	d.mu.Lock()
	out := make([]Task, 0, len(d.tasks))
	for _, task := range d.tasks {
		out = append(out, *task)
	}
	d.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].DispatchedAt.Before(out[j].DispatchedAt) })
	return out
}

// Wait blocks until every dispatched task has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown stops accepting jobs and waits for outstanding tasks until ctx is
// done, at which point the remaining tasks are cancelled and abandoned.
func (d *Dispatcher) Shutdown(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		slog.Warn("Abandoning outstanding proofs", "count", len(d.Outstanding()))
		d.cancel()
		return ctx.Err()
	}
}
