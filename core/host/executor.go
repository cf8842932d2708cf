package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"soudefi/core/events"
	"soudefi/core/types"
	"soudefi/native/bank"
	"soudefi/observability"
	telemetry "soudefi/observability/otel"
	"soudefi/storage"
)

var errNilDatabase = errors.New("host: database required")

// Call is a single operation submitted to the executor.
type Call struct {
	Op  string
	Run func(env *Env) (any, error)
}

// Receipt describes a committed submission.
type Receipt struct {
	TxID      string        `json:"txId"`
	Op        string        `json:"op"`
	Result    any           `json:"result,omitempty"`
	Events    []types.Event `json:"events"`
	Timestamp uint64        `json:"timestamp"`
}

// Revert is returned when a call failed and every write it made was dropped.
type Revert struct {
	Op  string
	Err error
}

func (r *Revert) Error() string {
	return fmt.Sprintf("%s reverted: %v", r.Op, r.Err)
}

func (r *Revert) Unwrap() error { return r.Err }

// Journal persists committed submissions for audit and replay.
type Journal interface {
	Record(receipt *Receipt) error
}

// EventSink receives the events of every committed submission.
type EventSink interface {
	Append(ctx context.Context, txID string, timestamp uint64, evts []types.Event) error
}

// Options configures an Executor. Zero values are valid.
type Options struct {
	Deployment Deployment
	// Clock returns the current time. Defaults to time.Now.
	Clock    func() time.Time
	Journal  Journal
	Sinks    []EventSink
	Emitters []events.Emitter
	Logger   *slog.Logger
}

// Executor is a single-node sequential state machine. Submissions hold an
// exclusive lock for their whole run; views share a read lock.
type Executor struct {
	mu         sync.RWMutex
	db         storage.Database
	deployment Deployment
	clock      func() time.Time
	journal    Journal
	sinks      []EventSink
	emitter    events.Emitter
	logger     *slog.Logger
	tracer     trace.Tracer
}

// NewExecutor binds an executor to db.
func NewExecutor(db storage.Database, opts Options) (*Executor, error) {
	if db == nil {
		return nil, errNilDatabase
	}
	deployment := opts.Deployment
	if deployment.isZero() {
		deployment = DefaultDeployment()
	}
	if err := deployment.Validate(); err != nil {
		return nil, err
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		db:         db,
		deployment: deployment,
		clock:      clock,
		journal:    opts.Journal,
		sinks:      append([]EventSink(nil), opts.Sinks...),
		emitter:    events.Multi(append([]events.Emitter(nil), opts.Emitters...)),
		logger:     logger.With(slog.String("component", "executor")),
		tracer:     telemetry.Tracer(),
	}, nil
}

// Deployment returns the engine parameters in use.
func (x *Executor) Deployment() Deployment { return x.deployment }

func (x *Executor) now() uint64 {
	ts := x.clock().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Submit runs call atomically. Either every write and event of the call is
// committed, or none is and a *Revert is returned.
func (x *Executor) Submit(ctx context.Context, call Call) (*Receipt, error) {
	if call.Run == nil {
		return nil, &Revert{Op: call.Op, Err: errors.New("host: empty call")}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	txID := uuid.NewString()
	ctx, span := x.tracer.Start(ctx, "host.submit", trace.WithAttributes(
		attribute.String("sou.op", call.Op),
		attribute.String("sou.tx_id", txID),
	))
	defer span.End()

	x.mu.Lock()
	defer x.mu.Unlock()

	start := time.Now()
	now := x.now()
	overlay := storage.NewOverlay(x.db)
	recorder := &events.Recorder{}
	env := x.newEnv(ctx, overlay, txID, now, recorder)

	result, err := call.Run(env)
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		overlay.Discard()
		observability.Executor().Observe(call.Op, "reverted", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "reverted")
		x.logger.Debug("submission reverted",
			slog.String("tx_id", txID),
			slog.String("op", call.Op),
			slog.String("error", err.Error()))
		return nil, &Revert{Op: call.Op, Err: err}
	}

	dirty := overlay.Dirty()
	if err := overlay.Commit(); err != nil {
		observability.Executor().Observe(call.Op, "failed", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return nil, &Revert{Op: call.Op, Err: fmt.Errorf("host: commit: %w", err)}
	}
	observability.Executor().RecordBatch(dirty)

	receipt := &Receipt{
		TxID:      txID,
		Op:        call.Op,
		Result:    result,
		Events:    recorder.Records(),
		Timestamp: now,
	}
	x.publish(ctx, receipt, recorder.Events())
	x.refreshPoolMetrics()

	observability.Executor().Observe(call.Op, "committed", time.Since(start))
	span.SetAttributes(attribute.Int("sou.events", len(receipt.Events)), attribute.Int("sou.writes", dirty))
	x.logger.Info("submission committed",
		slog.String("tx_id", txID),
		slog.String("op", call.Op),
		slog.Int("events", len(receipt.Events)),
		slog.Int("writes", dirty))
	return receipt, nil
}

// publish forwards a committed receipt. State is already durable here, so
// downstream failures are logged and never undo the submission.
func (x *Executor) publish(ctx context.Context, receipt *Receipt, evts []events.Event) {
	if x.journal != nil {
		if err := x.journal.Record(receipt); err != nil {
			x.logger.Error("journal append failed", slog.String("tx_id", receipt.TxID), slog.String("error", err.Error()))
		}
	}
	for _, sink := range x.sinks {
		if err := sink.Append(ctx, receipt.TxID, receipt.Timestamp, receipt.Events); err != nil {
			x.logger.Error("event sink append failed", slog.String("tx_id", receipt.TxID), slog.String("error", err.Error()))
		}
	}
	for _, evt := range evts {
		observability.Events().RecordEvent(evt.EventType())
		x.emitter.Emit(evt)
	}
}

func (x *Executor) refreshPoolMetrics() {
	env := x.newEnv(context.Background(), readOnlyStore{Reader: x.db}, "", x.now(), events.NoopEmitter{})
	pool, err := env.Swap.Pool()
	if err != nil {
		return
	}
	observability.Pool().SetReserves(bank.NativeAsset, pool.ReserveBase, env.Swap.TokenAsset(), pool.ReserveToken, pool.TotalShares)
}

// View runs fn against committed state. Writes fail with an error.
func (x *Executor) View(ctx context.Context, fn func(env *Env) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	x.mu.RLock()
	defer x.mu.RUnlock()
	env := x.newEnv(ctx, readOnlyStore{Reader: x.db}, "", x.now(), events.NoopEmitter{})
	return fn(env)
}
