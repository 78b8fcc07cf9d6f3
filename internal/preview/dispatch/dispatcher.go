// Package dispatch classifies files and routes them to the JavaScript
// executor, the HTML renderer or the CSS previewer.
package dispatch

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/webide/backend/internal/preview"
	"github.com/GriffinCanCode/webide/backend/internal/preview/monitor"
	"github.com/GriffinCanCode/webide/backend/internal/preview/render"
	"github.com/GriffinCanCode/webide/backend/internal/preview/sandbox"
	"github.com/GriffinCanCode/webide/backend/internal/shared/id"
)

// Observer is told about every routed execution.
type Observer interface {
	ObserveExecution(fileType, outcome string, duration time.Duration)
}

// Outcome is the dispatcher's result. Exactly one of Execution, Render and
// Style is set for supported files; none for unsupported ones.
type Outcome struct {
	ID              string                   `json:"id"`
	FileName        string                   `json:"fileName"`
	FileType        FileType                 `json:"fileType"`
	Kind            Kind                     `json:"kind"`
	Success         bool                     `json:"success"`
	Errors          []string                 `json:"errors"`
	ErrorKind       preview.ErrorKind        `json:"errorKind,omitempty"`
	ExecutionTimeMs float64                  `json:"executionTimeMs"`
	Execution       *sandbox.ExecutionResult `json:"execution,omitempty"`
	Render          *render.Descriptor       `json:"render,omitempty"`
	Style           *render.CSSPreview       `json:"style,omitempty"`
}

type handler func(ctx context.Context, req sandbox.ExecutionRequest, out *Outcome)

// Dispatcher routes preview requests by file kind.
type Dispatcher struct {
	executor *sandbox.Executor
	renderer *render.HTMLRenderer
	styles   *render.CSSPreviewer
	monitor  *monitor.Monitor
	observer Observer
	logger   *zap.Logger
	routes   map[Kind]handler
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithObserver reports executions to o.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// WithLogger sets the dispatcher's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// New creates a dispatcher. mon receives a record for every supported
// execution; a nil mon gets a fresh private monitor.
func New(executor *sandbox.Executor, renderer *render.HTMLRenderer, styles *render.CSSPreviewer, mon *monitor.Monitor, opts ...Option) *Dispatcher {
	if mon == nil {
		mon = monitor.New()
	}
	d := &Dispatcher{
		executor: executor,
		renderer: renderer,
		styles:   styles,
		monitor:  mon,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.routes = map[Kind]handler{
		KindJavaScript: d.runJavaScript,
		KindHTML:       d.renderHTML,
		KindCSS:        d.previewCSS,
	}
	return d
}

// Monitor returns the monitor executions are recorded in.
func (d *Dispatcher) Monitor() *monitor.Monitor {
	return d.monitor
}

// ExecuteSource is Execute with the default timeout.
func (d *Dispatcher) ExecuteSource(ctx context.Context, sourceCode, fileName string) *Outcome {
	return d.Execute(ctx, sandbox.ExecutionRequest{SourceCode: sourceCode, FileName: fileName})
}

// Execute routes req to the handler for its kind. It never panics; every
// failure is reported in the Outcome. Unsupported files are rejected without
// touching the monitor.
func (d *Dispatcher) Execute(ctx context.Context, req sandbox.ExecutionRequest) *Outcome {
	fileType := GetFileType(req.FileName)
	kind := Classify(req.FileName)
	out := &Outcome{
		ID:       id.NewExecutionID().String(),
		FileName: req.FileName,
		FileType: fileType,
		Kind:     kind,
		Errors:   []string{},
	}

	route, ok := d.routes[kind]
	if !ok {
		out.Errors = []string{fmt.Sprintf("Unsupported file type: %s (%s)", fileType, req.FileName)}
		out.ErrorKind = preview.ErrUnsupportedFileType
		d.logger.Debug("Rejected unsupported file",
			zap.String("file", req.FileName),
			zap.String("file_type", string(fileType)),
		)
		return out
	}

	start := time.Now()
	d.invoke(ctx, route, req, out)
	elapsed := time.Since(start)

	d.monitor.Record(req.FileName, string(fileType), out.ExecutionTimeMs, out.Success)
	if d.observer != nil {
		d.observer.ObserveExecution(string(fileType), outcomeLabel(out), elapsed)
	}

	d.logger.Info("Preview executed",
		zap.String("id", out.ID),
		zap.String("file", req.FileName),
		zap.String("kind", string(kind)),
		zap.Bool("success", out.Success),
		zap.Float64("execution_time_ms", out.ExecutionTimeMs),
	)
	return out
}

func (d *Dispatcher) invoke(ctx context.Context, route handler, req sandbox.ExecutionRequest, out *Outcome) {
	start := time.Now()
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error("Preview handler panicked",
				zap.String("file", req.FileName),
				zap.Any("panic", p),
			)
			out.Success = false
			out.Errors = []string{fmt.Sprintf("Internal preview error: %v", p)}
			out.ErrorKind = panicKind(out.Kind)
			out.ExecutionTimeMs = millis(time.Since(start))
		}
	}()
	route(ctx, req, out)
}

func (d *Dispatcher) runJavaScript(ctx context.Context, req sandbox.ExecutionRequest, out *Outcome) {
	result := d.executor.Execute(ctx, req)

	out.Execution = result
	out.Success = result.Success
	out.Errors = result.Errors
	out.ErrorKind = result.ErrorKind
	out.ExecutionTimeMs = result.ExecutionTimeMs
}

func (d *Dispatcher) renderHTML(_ context.Context, req sandbox.ExecutionRequest, out *Outcome) {
	start := time.Now()
	desc := d.renderer.Render(req.SourceCode)

	out.Render = desc
	out.Success = desc.Success
	out.ExecutionTimeMs = millis(time.Since(start))
}

func (d *Dispatcher) previewCSS(_ context.Context, req sandbox.ExecutionRequest, out *Outcome) {
	start := time.Now()
	style := d.styles.Preview(req.SourceCode, req.HTMLContext)

	out.Style = style
	out.Success = style.Success
	out.ExecutionTimeMs = millis(time.Since(start))
	if !style.Success {
		out.Errors = []string{style.Error}
		out.ErrorKind = preview.ErrRenderFailure
	}
}

// panicKind classifies a recovered handler panic by route.
func panicKind(kind Kind) preview.ErrorKind {
	if kind == KindJavaScript {
		return preview.ErrRuntimeException
	}
	return preview.ErrRenderFailure
}

func outcomeLabel(out *Outcome) string {
	if out.Success {
		return "success"
	}
	return out.ErrorKind.String()
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
