package sandbox

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/webide/backend/internal/preview"
)

// Executor runs preview JavaScript, one fresh realm per request.
type Executor struct {
	config    Config
	factory   RealmFactory
	logger    *zap.Logger
	teardowns atomic.Int64
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithLogger sets the executor's logger.
func WithLogger(logger *zap.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithFactory replaces how realms are created, e.g. with Pool.Factory.
func WithFactory(factory RealmFactory) ExecutorOption {
	return func(e *Executor) {
		if factory != nil {
			e.factory = factory
		}
	}
}

// NewExecutor creates an executor. A zero Timeout falls back to DefaultTimeoutMs.
func NewExecutor(config Config, opts ...ExecutorOption) *Executor {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeoutMs * time.Millisecond
	}
	e := &Executor{
		config: config,
		logger: zap.NewNop(),
	}
	e.factory = func() (Realm, error) { return NewRealm(e.config) }
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Teardowns reports how many realms this executor has torn down.
func (e *Executor) Teardowns() int64 {
	return e.teardowns.Load()
}

// Execute runs req.SourceCode and always returns a populated result. It returns
// no later than the request timeout plus scheduling overhead, or earlier when
// ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, req ExecutionRequest) *ExecutionResult {
	r, err := e.prepare(req)
	if err != nil {
		e.logger.Warn("Sandbox setup failed",
			zap.String("file", req.FileName),
			zap.Error(err),
		)
		return setupFailure(err)
	}
	return r.start(ctx, req.SourceCode, req.timeout(e.config.Timeout))
}

// prepare creates the realm and installs console capture and the DOM.
func (e *Executor) prepare(req ExecutionRequest) (r *run, err error) {
	defer func() {
		if p := recover(); p != nil {
			if r != nil {
				r.teardown()
			}
			r, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()

	realm, err := e.factory()
	if err != nil {
		return nil, err
	}
	r = &run{exec: e, realm: realm}

	if err := realm.InstallCapture(r.capture); err != nil {
		r.teardown()
		return nil, err
	}

	if e.config.EnableDOM && req.HTMLContext != "" {
		dom, err := ParseDOM(req.HTMLContext)
		if err == nil {
			err = realm.InstallDOM(dom)
		}
		if err != nil {
			r.teardown()
			return nil, err
		}
		r.dom = dom
	}
	return r, nil
}

func setupFailure(err error) *ExecutionResult {
	return &ExecutionResult{
		Success:         false,
		Errors:          []string{fmt.Sprintf("Sandbox setup failed: %v", err)},
		ExecutionTimeMs: 0,
		ErrorKind:       preview.ErrSetupFailure,
	}
}

// errRunStarted is returned when a run is started twice.
var errRunStarted = errors.New("execution already started")

// run is the state of one execution. It moves Created → Running → one
// terminal state → TornDown; exactly one of execute, expire and cancel wins
// the finished flag, records the terminal state and delivers the result.
type run struct {
	exec  *Executor
	realm Realm
	dom   *DOM

	state    atomic.Int32
	ended    atomic.Int32
	finished atomic.Bool
	once     sync.Once

	consoleMu sync.Mutex
	console   []LogEntry

	started time.Time
	timeout time.Duration
	results chan *ExecutionResult
}

// State is the current lifecycle position.
func (r *run) State() State {
	return State(r.state.Load())
}

// Ended is the terminal state the run finished in, or StateCreated while it
// has not finished.
func (r *run) Ended() State {
	return State(r.ended.Load())
}

func (r *run) capture(entry LogEntry) {
	r.consoleMu.Lock()
	r.console = append(r.console, entry)
	r.consoleMu.Unlock()
}

func (r *run) start(ctx context.Context, code string, timeout time.Duration) *ExecutionResult {
	if !r.state.CompareAndSwap(int32(StateCreated), int32(StateRunning)) {
		return setupFailure(errRunStarted)
	}
	r.timeout = timeout
	r.results = make(chan *ExecutionResult, 1)
	r.started = time.Now()

	timer := time.AfterFunc(timeout, r.expire)
	go r.execute(code, timer)

	select {
	case res := <-r.results:
		return res
	case <-ctx.Done():
		r.cancel(context.Cause(ctx))
		return <-r.results
	}
}

func (r *run) execute(code string, timer *time.Timer) {
	defer func() {
		if p := recover(); p != nil {
			r.fail(timer, fmt.Sprintf("panic: %v", p), time.Since(r.started))
		}
	}()

	out := r.realm.Run(code)
	elapsed := time.Since(r.started)
	if out.Err != nil {
		r.fail(timer, describeError(out.Err), elapsed)
		return
	}

	if !r.finish(StateCompleted) {
		return
	}
	timer.Stop()
	r.exec.logger.Debug("Preview script completed", zap.Duration("elapsed", elapsed))
	r.deliver(r.result(true, elapsed, &out, nil, preview.ErrNone))
}

func (r *run) fail(timer *time.Timer, message string, elapsed time.Duration) {
	if !r.finish(StateFailed) {
		return
	}
	timer.Stop()
	r.exec.logger.Debug("Preview script threw", zap.String("error", message))
	r.deliver(r.result(false, elapsed, nil, []string{message}, preview.ErrRuntimeException))
}

func (r *run) expire() {
	if !r.finish(StateTimedOut) {
		return
	}
	r.realm.Interrupt("execution timeout")
	r.exec.logger.Warn("Preview script timed out", zap.Duration("timeout", r.timeout))

	message := fmt.Sprintf("Execution timeout after %dms", r.timeout.Milliseconds())
	r.deliver(r.result(false, r.timeout, nil, []string{message}, preview.ErrTimeoutExceeded))
}

func (r *run) cancel(cause error) {
	if !r.finish(StateCancelled) {
		return
	}
	r.realm.Interrupt("execution cancelled")
	elapsed := min(time.Since(r.started), r.timeout)

	message := fmt.Sprintf("Execution cancelled: %v", cause)
	r.deliver(r.result(false, elapsed, nil, []string{message}, preview.ErrCancelled))
}

// finish flips the finished flag. Only the first caller gets true and moves
// the run from Running to its terminal state.
func (r *run) finish(to State) bool {
	if !r.finished.CompareAndSwap(false, true) {
		return false
	}
	r.ended.Store(int32(to))
	r.state.CompareAndSwap(int32(StateRunning), int32(to))
	return true
}

func (r *run) deliver(res *ExecutionResult) {
	r.exec.logger.Debug("Preview run finished", zap.Stringer("state", r.Ended()))
	r.teardown()
	r.results <- res
}

// teardown destroys the realm once; later calls do nothing.
func (r *run) teardown() {
	r.once.Do(func() {
		if err := r.realm.Destroy(); err != nil {
			r.exec.logger.Debug("Realm destroy failed", zap.Error(err))
		}
		r.state.Store(int32(StateTornDown))
		r.exec.teardowns.Add(1)
	})
}

func (r *run) result(success bool, elapsed time.Duration, out *Outcome, errs []string, kind preview.ErrorKind) *ExecutionResult {
	r.consoleMu.Lock()
	console := append([]LogEntry(nil), r.console...)
	r.consoleMu.Unlock()

	if errs == nil {
		errs = []string{}
	}
	res := &ExecutionResult{
		Success:         success,
		Errors:          errs,
		ExecutionTimeMs: float64(elapsed.Microseconds()) / 1000,
		ErrorKind:       kind,
		Console:         console,
	}

	lines := make([]string, 0, len(console)+1)
	for _, entry := range console {
		lines = append(lines, entry.line())
	}
	if out != nil && out.HasValue {
		res.ReturnValue = out.Value
		lines = append(lines, "Result: "+out.Display)
	}
	res.Output = strings.Join(lines, "\n")

	if r.dom != nil {
		res.DOMChanges = r.dom.Changes()
		// unchanged documents are omitted
		if len(res.DOMChanges) > 0 {
			doc, err := r.dom.HTML()
			if err != nil {
				r.exec.logger.Warn("Failed to serialize preview document", zap.Error(err))
			} else {
				res.Document = doc
			}
		}
	}
	return res
}

// line renders an entry for the combined output; log is unprefixed.
func (e LogEntry) line() string {
	if e.Level == "log" {
		return e.Message
	}
	return "[" + e.Level + "] " + e.Message
}

// describeError extracts the message of a thrown value or engine error.
func describeError(err error) string {
	var exc *goja.Exception
	if errors.As(err, &exc) {
		if v := exc.Value(); v != nil {
			return v.String()
		}
	}
	var interrupted *goja.InterruptedError
	if errors.As(err, &interrupted) {
		return fmt.Sprintf("Execution interrupted: %v", interrupted.Value())
	}
	return err.Error()
}
