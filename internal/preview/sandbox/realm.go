package sandbox

import (
	"errors"
	"sync"

	"github.com/dop251/goja"
)

var (
	ErrRealmDestroyed = errors.New("sandbox realm destroyed")
	ErrRealmReused    = errors.New("sandbox realm already ran")
	errNoJSON         = errors.New("realm has no JSON.stringify")
	errNotCallable    = errors.New("invocation wrapper is not callable")
)

// invocationWrapper evaluates source inside a function scope so var declarations
// stay off the realm's global object and the completion value comes back.
const invocationWrapper = `(function (__previewSource__) { return eval(__previewSource__); })`

var consoleLevels = []string{"log", "warn", "error", "info", "debug"}

// Realm is an ephemeral isolated execution environment. A realm runs code at
// most once and is destroyed afterwards.
type Realm interface {
	// InstallCapture routes console calls to sink.
	InstallCapture(sink CaptureFunc) error
	// InstallDOM exposes document over dom.
	InstallDOM(dom *DOM) error
	// Run executes code and blocks until it returns, throws or is interrupted.
	// A second call reports ErrRealmReused.
	Run(code string) Outcome
	// Interrupt stops running code. Safe to call from any goroutine.
	Interrupt(reason string)
	// Destroy releases the realm. Calling it again is a no-op.
	Destroy() error
}

// CaptureFunc receives one formatted console call.
type CaptureFunc func(LogEntry)

// Outcome is what a realm reports after running code.
type Outcome struct {
	Value    any    // exported trailing expression value
	Display  string // formatted for the "Result:" line
	HasValue bool
	Err      error
}

// RealmFactory creates a realm for one request.
type RealmFactory func() (Realm, error)

// gojaRealm is a Realm backed by its own goja VM.
type gojaRealm struct {
	config    Config
	mu        sync.Mutex
	vm        *goja.Runtime
	fmt       *formatter
	ran       bool
	destroyed bool
}

// NewRealm creates a goja realm with dangerous globals removed.
func NewRealm(config Config) (Realm, error) {
	vm := goja.New()
	if config.MaxCallStack > 0 {
		vm.SetMaxCallStackSize(config.MaxCallStack)
	}

	f, err := newFormatter(vm)
	if err != nil {
		return nil, err
	}

	r := &gojaRealm{
		config: config,
		vm:     vm,
		fmt:    f,
	}
	if err := r.setupGlobals(); err != nil {
		return nil, err
	}
	return r, nil
}

// setupGlobals removes host-like globals and stubs timers
func (r *gojaRealm) setupGlobals() error {
	for _, name := range []string{"require", "process", "module", "exports"} {
		if err := r.vm.Set(name, goja.Undefined()); err != nil {
			return err
		}
	}

	// Timers never fire; a realm does not outlive its synchronous run.
	inert := func(goja.FunctionCall) goja.Value { return r.vm.ToValue(0) }
	for _, name := range []string{"setTimeout", "setInterval", "clearTimeout", "clearInterval"} {
		if err := r.vm.Set(name, inert); err != nil {
			return err
		}
	}
	return nil
}

func (r *gojaRealm) runtime() (*goja.Runtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm == nil {
		return nil, ErrRealmDestroyed
	}
	return r.vm, nil
}

func (r *gojaRealm) InstallCapture(sink CaptureFunc) error {
	vm, err := r.runtime()
	if err != nil {
		return err
	}

	console := vm.NewObject()
	for _, level := range consoleLevels {
		if err := console.Set(level, r.makeConsoleFunc(level, sink)); err != nil {
			return err
		}
	}
	return vm.Set("console", console)
}

// makeConsoleFunc creates a console function
func (r *gojaRealm) makeConsoleFunc(level string, sink CaptureFunc) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if r.config.EnableConsole && sink != nil {
			sink(LogEntry{Level: level, Message: r.fmt.join(call.Arguments)})
		}
		return goja.Undefined()
	}
}

func (r *gojaRealm) InstallDOM(dom *DOM) error {
	if dom == nil || !r.config.EnableDOM {
		return nil
	}
	vm, err := r.runtime()
	if err != nil {
		return err
	}

	document := vm.NewObject()
	methods := map[string]func(string) string{
		"querySelector":          func(s string) string { return s },
		"getElementById":         func(s string) string { return "#" + s },
		"querySelectorAll":       func(s string) string { return s },
		"getElementsByClassName": func(s string) string { return "." + s },
		"getElementsByTagName":   func(s string) string { return s },
	}
	for name, toSelector := range methods {
		all := name != "querySelector" && name != "getElementById"
		if err := document.Set(name, r.makeDOMFunc(vm, dom, toSelector, all)); err != nil {
			return err
		}
	}
	return vm.Set("document", document)
}

// makeDOMFunc creates a document lookup returning one proxy or an array of them
func (r *gojaRealm) makeDOMFunc(vm *goja.Runtime, dom *DOM, toSelector func(string) string, all bool) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		if len(call.Arguments) == 0 {
			if all {
				return vm.NewArray()
			}
			return goja.Null()
		}

		elements := dom.Query(toSelector(call.Argument(0).String()))
		if !all {
			if len(elements) == 0 {
				return goja.Null()
			}
			return vm.ToValue(r.elementProxy(elements[0]))
		}

		proxies := make([]any, len(elements))
		for i, elem := range elements {
			proxies[i] = r.elementProxy(elem)
		}
		return vm.NewArray(proxies...)
	}
}

// elementProxy snapshots readable fields and exposes mutators that go through the DOM.
func (r *gojaRealm) elementProxy(elem *Element) map[string]any {
	return map[string]any{
		"tagName":     elem.TagName(),
		"id":          elem.ID(),
		"className":   elem.ClassName(),
		"textContent": elem.TextContent(),
		"getAttribute": func(name string) any {
			if v, ok := elem.GetAttribute(name); ok {
				return v
			}
			return nil
		},
		"setAttribute": func(name, value string) {
			elem.SetAttribute(name, value)
		},
		"setText": func(text string) {
			elem.SetText(text)
		},
	}
}

// claim marks the realm as used and returns its VM.
func (r *gojaRealm) claim() (*goja.Runtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	switch {
	case r.vm == nil:
		return nil, ErrRealmDestroyed
	case r.ran:
		return nil, ErrRealmReused
	}
	r.ran = true
	return r.vm, nil
}

func (r *gojaRealm) Run(code string) Outcome {
	vm, err := r.claim()
	if err != nil {
		return Outcome{Err: err}
	}

	wrapper, err := vm.RunString(invocationWrapper)
	if err != nil {
		return Outcome{Err: err}
	}
	invoke, ok := goja.AssertFunction(wrapper)
	if !ok {
		return Outcome{Err: errNotCallable}
	}

	val, err := invoke(goja.Undefined(), vm.ToValue(code))
	if err != nil {
		return Outcome{Err: err}
	}

	value, has := r.fmt.export(val)
	out := Outcome{Value: value, HasValue: has}
	if has {
		out.Display = r.fmt.format(val)
	}
	return out
}

func (r *gojaRealm) Interrupt(reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.vm != nil {
		r.vm.Interrupt(reason)
	}
}

func (r *gojaRealm) Destroy() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.destroyed {
		return nil
	}
	r.destroyed = true
	r.vm.Interrupt("realm destroyed")
	r.vm = nil
	return nil
}
